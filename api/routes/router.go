package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lromero/storefront-backend/api/controllers"
	cartcontrollers "github.com/lromero/storefront-backend/api/controllers/cart"
	"github.com/lromero/storefront-backend/api/middleware"
	cartsvc "github.com/lromero/storefront-backend/internal/cart"
	checkoutsvc "github.com/lromero/storefront-backend/internal/checkout"
	integritysvc "github.com/lromero/storefront-backend/internal/integrity"
	ordersvc "github.com/lromero/storefront-backend/internal/orders"
	"github.com/lromero/storefront-backend/pkg/config"
	"github.com/lromero/storefront-backend/pkg/db"
	"github.com/lromero/storefront-backend/pkg/logger"
	"github.com/lromero/storefront-backend/pkg/metrics"
	"github.com/lromero/storefront-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               db.Pinger
	Redis            *redis.Client
	CartService      cartsvc.Service
	CheckoutService  checkoutsvc.Service
	OrdersService    ordersvc.Service
	IntegrityService integritysvc.Service
	HTTPMetrics      *metrics.HTTPMetrics
	CheckoutMetrics  *metrics.CheckoutMetrics
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(params.HTTPMetrics),
		middleware.CORS(),
	)

	var rateStore middleware.RateLimiterStore
	var redisPing db.Pinger
	if params.Redis != nil {
		rateStore = params.Redis
		redisPing = params.Redis
	}

	cartPolicy := middleware.NewRateLimitPolicy(
		"cart",
		cfg.RateLimit.CartWindow,
		cfg.RateLimit.CartLimit,
	)
	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, redisPing))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, logg))

		r.Route("/v1/cart", func(r chi.Router) {
			r.Use(middleware.RateLimit(cartPolicy, rateStore, logg))
			r.Get("/", cartcontrollers.CartFetch(params.CartService, logg))
			r.Delete("/", cartcontrollers.CartClear(params.CartService, logg))
			r.Post("/items", cartcontrollers.CartAddItem(params.CartService, logg))
			r.Patch("/items/{productID}", cartcontrollers.CartUpdateItem(params.CartService, logg))
			r.Delete("/items/{productID}", cartcontrollers.CartRemoveItem(params.CartService, logg))
			r.With(middleware.RequireCustomer(logg)).Post("/merge", cartcontrollers.CartMerge(params.CartService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCustomer(logg))
			r.With(middleware.RateLimit(checkoutPolicy, rateStore, logg)).
				Post("/v1/checkout", controllers.Checkout(params.CheckoutService, params.CheckoutMetrics, logg))
			r.Route("/v1/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderHistory(params.OrdersService, logg))
				r.Get("/{orderID}", controllers.OrderDetail(params.OrdersService, logg))
			})
		})
	})

	r.Route("/api/admin/v1/integrity", func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(cfg.Admin, logg))
		r.Post("/scan", controllers.IntegrityScan(params.IntegrityService, logg))
		r.Post("/repair", controllers.IntegrityRepair(params.IntegrityService, logg))
	})

	return r
}
