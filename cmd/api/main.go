package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/giftlane/giftlane-backend/api/routes"
	"github.com/giftlane/giftlane-backend/internal/cart"
	"github.com/giftlane/giftlane-backend/internal/catalog"
	"github.com/giftlane/giftlane-backend/internal/orders"
	"github.com/giftlane/giftlane-backend/internal/pricing"
	"github.com/giftlane/giftlane-backend/internal/reservation"
	"github.com/giftlane/giftlane-backend/internal/stock"
	"github.com/giftlane/giftlane-backend/internal/wallet"
	"github.com/giftlane/giftlane-backend/pkg/auth/session"
	"github.com/giftlane/giftlane-backend/pkg/config"
	"github.com/giftlane/giftlane-backend/pkg/db"
	"github.com/giftlane/giftlane-backend/pkg/dispatch"
	"github.com/giftlane/giftlane-backend/pkg/env"
	"github.com/giftlane/giftlane-backend/pkg/logger"
	"github.com/giftlane/giftlane-backend/pkg/migrate"
	"github.com/giftlane/giftlane-backend/pkg/outbox"
	"github.com/giftlane/giftlane-backend/pkg/payments"
	"github.com/giftlane/giftlane-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	catalogRepo := catalog.NewRepository(conn)
	walletRepo := wallet.NewRepository(conn)
	stockRepo := stock.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	reservationService, err := reservation.NewService(reservation.NewRepository(conn), dbClient, cfg.Checkout)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.NewRepository(conn), dbClient, catalogRepo, reservationService, cfg.Checkout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(walletRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	stockService, err := stock.NewService(stockRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	pricingService, err := pricing.NewService(catalogRepo, pricing.NewCouponRepository(conn), walletRepo, dbClient, cfg.Pricing)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	gateway, err := paymentGateway(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	courier, err := dispatchCourier(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch courier", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(
		ordersRepo,
		dbClient,
		cartService,
		catalogRepo,
		pricingService,
		stockRepo,
		walletService,
		gateway,
		courier,
		outboxService,
		cfg.Orders,
		cfg.Pricing,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Cache:    redisClient,
		Sessions: sessionManager,
		Carts:    cartService,
		Pricing:  pricingService,
		Orders:   ordersService,
		Stocks:   stockService,
		Wallets:  walletService,
	})

	addr := ":" + env.Get("PORT", cfg.App.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{Addr: addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

func paymentGateway(cfg *config.Config, logg *logger.Logger) (payments.Gateway, error) {
	if cfg.Payments.BaseURL == "" {
		if cfg.App.IsProd() {
			return nil, errMissingProvider("payments")
		}
		logg.Warn(context.Background(), "payments base url not set, using sandbox gateway")
		return payments.NewSandbox(), nil
	}
	return payments.NewClient(cfg.Payments)
}

func dispatchCourier(cfg *config.Config, logg *logger.Logger) (dispatch.Courier, error) {
	if cfg.Dispatch.BaseURL == "" {
		if cfg.App.IsProd() {
			return nil, errMissingProvider("dispatch")
		}
		logg.Warn(context.Background(), "dispatch base url not set, using sandbox courier")
		return dispatch.NewSandbox(), nil
	}
	return dispatch.NewClient(cfg.Dispatch)
}

type errMissingProvider string

func (e errMissingProvider) Error() string {
	return string(e) + " base url is required outside dev"
}
