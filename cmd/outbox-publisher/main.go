package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/procurement-backend/pkg/bootstrap"
	"github.com/angelmondragon/procurement-backend/pkg/metrics"
	"github.com/angelmondragon/procurement-backend/pkg/outbox"
	"github.com/angelmondragon/procurement-backend/pkg/outbox/registry"
	"github.com/angelmondragon/procurement-backend/pkg/pubsub"
)

func main() {
	bootstrap.Main(bootstrap.Options{
		Service:    "outbox-publisher",
		PubSub:     true,
		PubSubRole: pubsub.RolePublisher,
	}, publish)
}

func publish(ctx context.Context, rt *bootstrap.Runtime) error {
	events, err := registry.NewRouter(rt.Config.PubSub)
	if err != nil {
		return fmt.Errorf("event routes: %w", err)
	}

	conn := rt.DB.DB()
	service, err := NewService(ServiceParams{
		Config:        rt.Config,
		Logger:        rt.Logger,
		DB:            rt.DB,
		PubSub:        rt.PubSub,
		Repository:    outbox.NewRepository(conn),
		Registry:      events,
		DLQRepository: outbox.NewDLQRepository(conn),
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("outbox publisher: %w", err)
	}

	ctx = rt.Logger.WithField(ctx, "topics", events.Topics())
	rt.Logger.Info(ctx, "starting outbox publisher")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return service.Run(gctx) })
	g.Go(func() error { return metrics.Serve(gctx, metrics.NewServer(":"+rt.Config.App.Port)) })
	return g.Wait()
}
