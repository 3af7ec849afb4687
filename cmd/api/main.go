package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lromero/storefront-backend/api/routes"
	cartsvc "github.com/lromero/storefront-backend/internal/cart"
	checkoutsvc "github.com/lromero/storefront-backend/internal/checkout"
	integritysvc "github.com/lromero/storefront-backend/internal/integrity"
	ordersvc "github.com/lromero/storefront-backend/internal/orders"
	"github.com/lromero/storefront-backend/internal/payments"
	"github.com/lromero/storefront-backend/internal/pricing"
	"github.com/lromero/storefront-backend/internal/products"
	"github.com/lromero/storefront-backend/pkg/config"
	"github.com/lromero/storefront-backend/pkg/db"
	"github.com/lromero/storefront-backend/pkg/logger"
	"github.com/lromero/storefront-backend/pkg/metrics"
	"github.com/lromero/storefront-backend/pkg/migrate"
	"github.com/lromero/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	catalog := products.NewRepository(dbClient.DB())

	cartService, err := cartsvc.NewService(cartsvc.NewRepository(dbClient.DB()), dbClient, catalog)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	calculator, err := pricing.NewCalculator(cfg.Checkout)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing calculator", err)
		os.Exit(1)
	}

	ordersRepo := ordersvc.NewRepository(dbClient.DB())
	ordersService, err := ordersvc.NewService(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(
		cartService,
		ordersRepo,
		catalog,
		payments.NewSimulator(0),
		calculator,
		dbClient,
		cfg.Checkout,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	integrityService, err := integritysvc.NewService(
		integritysvc.NewRepository(dbClient.DB()),
		dbClient,
		cfg.Cart.GuestRetentionWindow(),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create integrity service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:           cfg,
			Logger:           logg,
			DB:               dbClient,
			Redis:            redisClient,
			CartService:      cartService,
			CheckoutService:  checkoutService,
			OrdersService:    ordersService,
			IntegrityService: integrityService,
			HTTPMetrics:      metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
			CheckoutMetrics:  metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
