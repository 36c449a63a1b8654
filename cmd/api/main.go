package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/procurement-backend/api/controllers"
	"github.com/angelmondragon/procurement-backend/api/middleware"
	"github.com/angelmondragon/procurement-backend/api/routes"
	"github.com/angelmondragon/procurement-backend/internal/address"
	"github.com/angelmondragon/procurement-backend/internal/cart"
	"github.com/angelmondragon/procurement-backend/internal/checkout"
	"github.com/angelmondragon/procurement-backend/internal/contacts"
	"github.com/angelmondragon/procurement-backend/internal/directory"
	"github.com/angelmondragon/procurement-backend/internal/invoices"
	"github.com/angelmondragon/procurement-backend/internal/locations"
	"github.com/angelmondragon/procurement-backend/internal/notifications"
	"github.com/angelmondragon/procurement-backend/internal/orders"
	product "github.com/angelmondragon/procurement-backend/internal/products"
	"github.com/angelmondragon/procurement-backend/pkg/bootstrap"
	"github.com/angelmondragon/procurement-backend/pkg/config"
	"github.com/angelmondragon/procurement-backend/pkg/db"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	"github.com/angelmondragon/procurement-backend/pkg/metrics"
	"github.com/angelmondragon/procurement-backend/pkg/outbox"
)

const shutdownTimeout = 15 * time.Second

func main() {
	bootstrap.Main(bootstrap.Options{Service: "api", Redis: true}, serve)
}

func serve(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg, logg := rt.Config, rt.Logger

	services, err := buildServices(cfg, logg, rt.DB)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}

	var sessions middleware.SessionChecker
	if cfg.JWT.CheckSessions {
		sessions = rt.Redis
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr: ":" + port,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			Redis:    rt.Redis,
			Sessions: sessions,
			Ready: map[string]controllers.Pinger{
				"database": rt.DB,
				"redis":    rt.Redis,
			},
			Services: services,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx = logg.WithField(ctx, "addr", server.Addr)

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildServices wires every domain service over one database client. The cart
// service and checkout share a queue so cart edits and submissions of the same
// owner never interleave.
func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	conn := dbClient.DB()

	productRepo := product.NewRepository(conn)
	locationRepo := locations.NewRepository(conn)
	contactRepo := contacts.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	dir := directory.NewRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)
	queue := cart.NewQueue()

	productService, err := product.NewService(productRepo, dbClient)
	if err != nil {
		return routes.Services{}, err
	}
	cartService, err := cart.NewService(cartRepo, dbClient, productRepo, locationRepo, queue, logg)
	if err != nil {
		return routes.Services{}, err
	}
	locationService, err := locations.NewService(locationRepo)
	if err != nil {
		return routes.Services{}, err
	}
	contactService, err := contacts.NewService(contactRepo)
	if err != nil {
		return routes.Services{}, err
	}
	resolver, err := address.NewResolver(locationRepo)
	if err != nil {
		return routes.Services{}, err
	}
	checkoutService, err := checkout.NewService(
		dbClient,
		cartRepo,
		queue,
		ordersRepo,
		orders.NewGenerator(),
		resolver,
		contactService,
		outboxService,
		cfg.Checkout,
		metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		return routes.Services{}, err
	}
	ordersService, err := orders.NewService(ordersRepo, dir)
	if err != nil {
		return routes.Services{}, err
	}
	invoiceService, err := invoices.NewService(invoices.NewRepository(conn), ordersRepo, dbClient, outboxService)
	if err != nil {
		return routes.Services{}, err
	}
	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Products:      productService,
		Cart:          cartService,
		Checkout:      checkoutService,
		Orders:        ordersService,
		Invoices:      invoiceService,
		Notifications: notificationService,
		Locations:     locationService,
		Contacts:      contactService,
	}, nil
}
