package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/procurement-backend/internal/directory"
	"github.com/angelmondragon/procurement-backend/internal/notifications"
	"github.com/angelmondragon/procurement-backend/pkg/bootstrap"
	"github.com/angelmondragon/procurement-backend/pkg/config"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/metrics"
	"github.com/angelmondragon/procurement-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/procurement-backend/pkg/pubsub"
)

func main() {
	bootstrap.Main(bootstrap.Options{
		Service:    "worker",
		Redis:      true,
		PubSub:     true,
		PubSubRole: pubsub.RoleSubscriber,
	}, consume)
}

func consume(ctx context.Context, rt *bootstrap.Runtime) error {
	guard, err := idempotency.NewGuard(rt.Redis, rt.Config.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency guard: %w", err)
	}

	subs := rt.PubSub.NotificationSubscribers()
	subscribers := make([]notifications.Subscriber, len(subs))
	for i, sub := range subs {
		subscribers[i] = sub
	}
	conn := rt.DB.DB()
	consumer, err := notifications.NewConsumer(
		notifications.NewRepository(conn),
		directory.NewRepository(conn),
		subscribers,
		guard,
		newDispatcher(rt.Config, rt.Logger),
		metrics.NewNotificationMetrics(prometheus.DefaultRegisterer),
		rt.Logger,
	)
	if err != nil {
		return fmt.Errorf("notification consumer: %w", err)
	}

	service, err := NewService(ServiceParams{
		Logger: rt.Logger,
		Dependencies: map[string]pinger{
			"database": rt.DB,
			"redis":    rt.Redis,
			"pubsub":   rt.PubSub,
		},
		Consumer:      consumer,
		MetricsServer: metrics.NewServer(":" + rt.Config.App.Port),
	})
	if err != nil {
		return fmt.Errorf("worker service: %w", err)
	}

	rt.Logger.Info(ctx, "starting worker")
	return service.Run(ctx)
}

// newDispatcher picks the outbound channel: none when notifications are
// disabled, the log dispatcher when no webhook endpoint can be reached.
func newDispatcher(cfg *config.Config, logg *logger.Logger) notifications.Dispatcher {
	if !cfg.Notifications.Enabled {
		return nil
	}
	if cfg.Notifications.DefaultWebhookURL == "" && !cfg.App.IsProd() {
		return notifications.NewLogDispatcher(logg)
	}
	return notifications.NewWebhookDispatcher(cfg.Notifications, &http.Client{Timeout: cfg.Notifications.Timeout})
}
