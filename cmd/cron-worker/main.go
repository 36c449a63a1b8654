package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/procurement-backend/internal/cron"
	"github.com/angelmondragon/procurement-backend/internal/notifications"
	"github.com/angelmondragon/procurement-backend/internal/orders"
	"github.com/angelmondragon/procurement-backend/pkg/bootstrap"
	"github.com/angelmondragon/procurement-backend/pkg/config"
	"github.com/angelmondragon/procurement-backend/pkg/db"
	"github.com/angelmondragon/procurement-backend/pkg/metrics"
	"github.com/angelmondragon/procurement-backend/pkg/outbox"
)

var once = flag.Bool("once", false, "run a single cycle and exit")

func main() {
	flag.Parse()
	bootstrap.Main(bootstrap.Options{Service: "cron-worker", Redis: true}, schedule)
}

func schedule(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg := rt.Config
	lock, err := cron.NewRedisLock(rt.Redis, rt.Redis.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}
	jobs, err := buildRegistry(cfg, rt.DB)
	if err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     rt.Logger,
		Registry:   jobs,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	if *once {
		rt.Logger.Info(ctx, "running single cron cycle")
		return service.RunOnce(ctx)
	}

	rt.Logger.Info(ctx, "starting cron worker")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return service.Run(gctx) })
	g.Go(func() error { return metrics.Serve(gctx, metrics.NewServer(":"+cfg.App.Port)) })
	return g.Wait()
}

// buildRegistry lists the maintenance jobs in run order. The DLQ report window
// matches the cycle interval so each dead letter is reported once.
func buildRegistry(cfg *config.Config, dbClient *db.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	outboxRetention, err := cron.NewOutboxRetentionJob(dbClient, outbox.NewRepository(conn), cfg.Outbox.RetentionDays)
	if err != nil {
		return nil, err
	}
	notificationCleanup, err := cron.NewNotificationCleanupJob(notifications.NewRepository(conn), cfg.Notifications.RetentionDays)
	if err != nil {
		return nil, err
	}
	sequencePrune, err := cron.NewSequencePruneJob(orders.NewSequencePruner(conn), cfg.Cron.SequenceRetentionDays)
	if err != nil {
		return nil, err
	}
	dlqReport, err := cron.NewDLQReportJob(outbox.NewDLQRepository(conn), cfg.Cron.Interval)
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(outboxRetention, notificationCleanup, sequencePrune, dlqReport)
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("cron-worker:%s", env)
}
