package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/pmartell/storefront-checkout/api/routes"
	"github.com/pmartell/storefront-checkout/internal/catalog"
	"github.com/pmartell/storefront-checkout/internal/intents"
	"github.com/pmartell/storefront-checkout/internal/pricing"
	"github.com/pmartell/storefront-checkout/internal/webhooks"
	"github.com/pmartell/storefront-checkout/pkg/config"
	"github.com/pmartell/storefront-checkout/pkg/logger"
	"github.com/pmartell/storefront-checkout/pkg/metrics"
	"github.com/pmartell/storefront-checkout/pkg/redis"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

const shutdownGrace = 10 * time.Second

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

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	provider, err := stripe.NewClient(context.Background(), cfg.Stripe, logg, stripe.WithMetrics(checkoutMetrics))
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap provider client", err)
		os.Exit(1)
	}

	var markerStore redis.MarkerStore
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		markerStore = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, webhook redeliveries will not be observed")
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{Provider: provider})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	pricingService, err := pricing.NewService(pricing.ServiceParams{
		Catalog: catalogService,
		Store:   cfg.Store,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	intentService, err := intents.NewService(intents.ServiceParams{
		Provider: provider,
		Pricing:  pricingService,
		Store:    cfg.Store,
		Logger:   logg,
		Metrics:  checkoutMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create intent service", err)
		os.Exit(1)
	}

	observer := webhooks.NewObserver(webhooks.ObserverParams{
		Store:   markerStore,
		Logger:  logg,
		Metrics: checkoutMetrics,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"addr":             addr,
		"store_country":    cfg.Store.Country,
		"store_currency":   cfg.Store.Currency,
		"signed_webhooks":  cfg.Stripe.HasWebhookSecret(),
		"tunnel_enabled":   cfg.Tunnel.Enabled,
		"redis_configured": cfg.Redis.Enabled(),
	})
	if !cfg.Stripe.HasWebhookSecret() {
		logg.Warn(ctx, "webhook secret not set, inbound events will not be signature-checked")
	}
	logg.Info(ctx, "starting checkout server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:   cfg,
			Logger:   logg,
			Catalog:  catalogService,
			Intents:  intentService,
			Webhooks: intentService,
			Provider: provider,
			Observer: observer,
			Gatherer: registry,
		}),
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "checkout server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	closeErr := server.Shutdown(shutdownCtx)
	if redisClient != nil {
		closeErr = multierr.Append(closeErr, redisClient.Close())
	}
	if closeErr != nil {
		logg.Error(ctx, "error during shutdown", closeErr)
		os.Exit(1)
	}
	logg.Info(ctx, "checkout server shut down gracefully")
}
