// Package bootstrap starts the shared clients of a long-running binary and
// tears them down again on exit.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/procurement-backend/pkg/config"
	"github.com/angelmondragon/procurement-backend/pkg/db"
	"github.com/angelmondragon/procurement-backend/pkg/instance"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/migrate"
	"github.com/angelmondragon/procurement-backend/pkg/pubsub"
	"github.com/angelmondragon/procurement-backend/pkg/redis"
)

// Options selects which clients a binary needs. The database is always opened.
type Options struct {
	Service    string
	Redis      bool
	PubSub     bool
	PubSubRole pubsub.Role
}

// Runtime is what a binary's run function receives.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client
	PubSub *pubsub.Client

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// RunFunc is a binary's body. Returning context.Canceled counts as a clean stop.
type RunFunc func(ctx context.Context, rt *Runtime) error

// Main starts the runtime, runs fn until SIGINT or SIGTERM, closes every
// client and exits non-zero on failure.
func Main(opts Options, fn RunFunc) {
	os.Exit(run(opts, fn))
}

func run(opts Options, fn RunFunc) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := Start(ctx, opts)
	if err != nil {
		if rt != nil {
			rt.Logger.Error(ctx, "startup failed", err)
			_ = rt.Close()
		} else {
			logger.New(logger.Options{ServiceName: opts.Service}).Error(ctx, "startup failed", err)
		}
		return 1
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.Logger.Error(context.Background(), "shutdown cleanup failed", err)
		}
	}()

	ctx = rt.Fields(ctx)
	if err := fn(ctx, rt); err != nil && !errors.Is(err, context.Canceled) {
		rt.Logger.Error(ctx, opts.Service+" stopped unexpectedly", err)
		return 1
	}
	rt.Logger.Info(ctx, opts.Service+" shut down gracefully")
	return 0
}

// Start loads configuration and opens the requested clients. On error the
// returned Runtime, when non-nil, holds whatever was opened so far.
func Start(ctx context.Context, opts Options) (*Runtime, error) {
	bootLog := logger.New(logger.Options{ServiceName: opts.Service})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = opts.Service

	rt := &Runtime{Config: cfg, Logger: logger.New(cfg.App.LoggerOptions(opts.Service))}

	rt.DB, err = db.New(ctx, cfg.DB, rt.Logger)
	if err != nil {
		return rt, fmt.Errorf("database: %w", err)
	}
	rt.OnClose("database", rt.DB.Close)
	if pool, err := rt.DB.PoolCollector(opts.Service); err == nil {
		if err := prometheus.Register(pool); err != nil {
			rt.Logger.Warn(ctx, "db pool metrics not registered: "+err.Error())
		}
	}

	if err := migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
		return rt, fmt.Errorf("dev migrations: %w", err)
	}

	if opts.Redis {
		rt.Redis, err = redis.New(ctx, cfg.Redis, rt.Logger)
		if err != nil {
			return rt, fmt.Errorf("redis: %w", err)
		}
		rt.OnClose("redis", rt.Redis.Close)
	}

	if opts.PubSub {
		rt.PubSub, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, opts.PubSubRole, rt.Logger)
		if err != nil {
			return rt, fmt.Errorf("pubsub: %w", err)
		}
		rt.OnClose("pubsub", rt.PubSub.Close)
	}
	return rt, nil
}

// OnClose registers fn to run on Close. Closers run in reverse order.
func (rt *Runtime) OnClose(name string, fn func() error) {
	rt.closers = append(rt.closers, namedCloser{name: name, close: fn})
}

func (rt *Runtime) Close() error {
	var errs error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		c := rt.closers[i]
		if err := c.close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	rt.closers = nil
	return errs
}

// Fields attaches the process identity to ctx's logger.
func (rt *Runtime) Fields(ctx context.Context) context.Context {
	return rt.Logger.WithFields(ctx, map[string]any{
		"env":         rt.Config.App.Env,
		"serviceKind": rt.Config.Service.Kind,
		"instance":    instance.GetID(),
	})
}
