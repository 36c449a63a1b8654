package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/procurement-backend/api/controllers"
	"github.com/angelmondragon/procurement-backend/api/middleware"
	"github.com/angelmondragon/procurement-backend/internal/cart"
	"github.com/angelmondragon/procurement-backend/internal/checkout"
	"github.com/angelmondragon/procurement-backend/internal/invoices"
	"github.com/angelmondragon/procurement-backend/internal/notifications"
	"github.com/angelmondragon/procurement-backend/internal/orders"
	product "github.com/angelmondragon/procurement-backend/internal/products"
	"github.com/angelmondragon/procurement-backend/pkg/auth"
	"github.com/angelmondragon/procurement-backend/pkg/config"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/procurement-backend/pkg/redis"
)

// RedisStore backs idempotency replay and rate limiting.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Services are the handlers' dependencies. A nil service makes its routes
// answer with an internal error.
type Services struct {
	Products      product.Service
	Cart          cart.Service
	Checkout      checkout.Service
	Orders        orders.Service
	Invoices      invoices.Service
	Notifications notifications.Service
	Locations     controllers.LocationService
	Contacts      controllers.ContactService
}

// Deps bundles everything NewRouter wires.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    RedisStore
	Sessions middleware.SessionChecker
	Ready    map[string]controllers.Pinger
	// Metrics serves /metrics; promhttp.Handler() when nil.
	Metrics  http.Handler
	Services Services
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	svc := deps.Services

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins...),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Ready, logg))
	})

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	var idempotencyStore pkgredis.IdempotencyStore
	var limiter interface {
		FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	}
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		limiter = deps.Redis
	}
	replay := middleware.NewReplayer(idempotencyStore, logg)
	standard := replay.Idempotent(middleware.ReplayStandard)
	critical := replay.Idempotent(middleware.ReplayCritical)
	apiPolicy := middleware.RateLimitPolicy{Name: "api", Limit: cfg.App.RateLimitPerMinute, Window: time.Minute}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(auth.NewTokens(cfg.JWT), deps.Sessions, logg))
		r.Use(middleware.RateLimit(apiPolicy, limiter, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(svc.Products, logg))
			r.Get("/{productId}", controllers.GetProduct(svc.Products, logg))
		})
		r.Get("/suppliers/{supplierId}/pickup-locations", controllers.ListSupplierPickupLocations(svc.Locations, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.CompanyContext(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(svc.Cart, logg))
				r.With(standard).Post("/lines", controllers.AddCartLine(svc.Cart, logg))
				r.Patch("/lines/{lineId}", controllers.UpdateCartLine(svc.Cart, logg))
				r.Delete("/lines/{lineId}", controllers.RemoveCartLine(svc.Cart, logg))
				r.Put("/groups/{supplierId}/delivery", controllers.SetCartGroupDelivery(svc.Cart, logg))
				r.Put("/groups/{supplierId}/address", controllers.SetCartGroupAddress(svc.Cart, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.With(critical).Post("/", controllers.Checkout(svc.Checkout, logg))
				r.Post("/{checkoutId}/abort", controllers.AbortCheckout(svc.Checkout, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListCompanyOrders(svc.Orders, logg))
				r.Get("/{poId}", controllers.GetCompanyOrder(svc.Orders, logg))
			})

			r.Route("/locations", func(r chi.Router) {
				r.Get("/", controllers.ListDeliveryLocations(svc.Locations, logg))
				r.With(standard).Post("/", controllers.CreateDeliveryLocation(svc.Locations, logg))
				r.Delete("/{locationId}", controllers.DeleteDeliveryLocation(svc.Locations, logg))
			})

			r.Route("/contacts", func(r chi.Router) {
				r.Get("/", controllers.ListContacts(svc.Contacts, logg))
				r.With(standard).Post("/", controllers.CreateContact(svc.Contacts, logg))
				r.Get("/{contactId}", controllers.GetContact(svc.Contacts, logg))
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", controllers.ListCompanyInvoices(svc.Invoices, logg))
				r.Get("/{invoiceId}", controllers.GetCompanyInvoice(svc.Invoices, logg))
			})

			mountNotifications(r, svc.Notifications, logg)
		})

		r.Route("/supplier", func(r chi.Router) {
			r.Use(middleware.SupplierContext(logg))

			r.Route("/products", func(r chi.Router) {
				r.With(standard).Post("/", controllers.CreateProduct(svc.Products, logg))
				r.Patch("/{productId}", controllers.UpdateProduct(svc.Products, logg))
				r.With(replay.Idempotent(middleware.ReplayRequired)).Post("/{productId}/stock", controllers.AdjustStock(svc.Products, logg))
				r.Get("/{productId}/stock-movements", controllers.ListStockMovements(svc.Products, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListSupplierOrders(svc.Orders, logg))
				r.Get("/{poId}", controllers.GetSupplierOrder(svc.Orders, logg))
				r.With(critical).Post("/{poId}/invoice", controllers.IssueInvoice(svc.Invoices, logg))
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", controllers.ListSupplierInvoices(svc.Invoices, logg))
				r.Get("/{invoiceId}", controllers.GetSupplierInvoice(svc.Invoices, logg))
				r.With(critical).Post("/{invoiceId}/paid", controllers.MarkInvoicePaid(svc.Invoices, logg))
			})

			r.Route("/pickup-locations", func(r chi.Router) {
				r.Get("/", controllers.ListPickupLocations(svc.Locations, logg))
				r.With(standard).Post("/", controllers.CreatePickupLocation(svc.Locations, logg))
			})

			mountNotifications(r, svc.Notifications, logg)
		})
	})

	return r
}

func mountNotifications(r chi.Router, svc notifications.Service, logg *logger.Logger) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", controllers.ListNotifications(svc, logg))
		r.Post("/read-all", controllers.MarkAllNotificationsRead(svc, logg))
		r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svc, logg))
	})
}
