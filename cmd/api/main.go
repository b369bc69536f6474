package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handler"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/settings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Order store and catalogue
	if err := database.Migrate(cfg.Database.ConnectionString(), logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Cart store
	mongoDB, err := database.ConnectMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cart store: %w", err)
	}
	defer func() {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		if err := mongoDB.Client().Disconnect(disconnectCtx); err != nil {
			logger.Error().Err(err).Msg("failed to disconnect from MongoDB")
		}
	}()

	if err := repository.EnsureCartIndexes(ctx, mongoDB, logger); err != nil {
		return fmt.Errorf("failed to initialize cart indexes: %w", err)
	}

	// Settings cache
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize settings cache: %w", err)
	}
	defer redisClient.Close()

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	cartRepo := repository.NewCartRepository(mongoDB, logger)

	settingsProvider, err := newSettingsProvider(ctx, cfg, redisClient, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize settings: %w", err)
	}

	gateway, verifier, err := newPayment(cfg.Payment, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize payment gateway: %w", err)
	}

	publisher := events.NewNopPublisher()
	if cfg.Events.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic, logger)
		logger.Info().Strs("brokers", cfg.Events.Brokers).Str("topic", cfg.Events.Topic).Msg("order events enabled")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	// Initialize services
	productService := service.NewProductService(productRepo, logger)
	cartService := service.NewCartService(cartRepo, productRepo, settingsProvider, logger)
	checkoutService := service.NewCheckoutService(cartService, settingsProvider, gateway, service.CheckoutOptions{
		Currency:  cfg.Payment.Currency,
		ReturnURL: cfg.Payment.ReturnURL,
		Label:     cfg.Payment.ProductLineLabel,
	}, logger)
	settlementService := service.NewSettlementService(verifier, gateway, cartRepo, orderRepo, publisher, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, logger)

	// Initialize router
	mux := router.New(router.Handlers{
		Product:  handler.NewProductHandler(productService, logger),
		Cart:     handler.NewCartHandler(cartService, logger),
		Checkout: handler.NewCheckoutHandler(checkoutService, logger),
		Order:    handler.NewOrderHandler(orderService, logger),
		Webhook:  handler.NewWebhookHandler(settlementService, cfg.Payment.MaxWebhookBytes, logger),
	}, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newSettingsProvider reads the settings document from S3 when enabled, with
// the local file as fallback, and caches it in Redis.
func newSettingsProvider(ctx context.Context, cfg *config.Config, cache redis.Cmdable, logger zerolog.Logger) (settings.Provider, error) {
	defaults, err := settings.Defaults(cfg.Settings)
	if err != nil {
		return nil, err
	}

	fileLoader := settings.NewFileLoader(logger)
	var s3Loader settings.Loader

	if cfg.S3.Enabled {
		s3Loader, err = settings.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
			s3Loader = nil
		}
	} else {
		logger.Info().Msg("using local file system for settings document (S3 disabled)")
	}

	loader := settings.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, s3Loader != nil, logger)
	ttl := time.Duration(cfg.Redis.SettingsTTL) * time.Second

	return settings.NewCachedProvider(cache, loader, cfg.Settings.Path, defaults, ttl, logger), nil
}

// newPayment builds the gateway and webhook verifier. Missing secrets leave
// the server running with checkout and settlement refusing requests.
func newPayment(cfg config.PaymentConfig, logger zerolog.Logger) (payment.Gateway, payment.Verifier, error) {
	if !cfg.PaymentConfigured() {
		logger.Warn().Msg("payment secret key not set, checkout is disabled")
		return payment.NewUnconfiguredGateway(), nil, nil
	}

	gateway := payment.NewBreakerGateway(
		payment.NewStripeGateway(cfg.SecretKey, nil, logger),
		uint32(cfg.BreakerFailures),
		time.Duration(cfg.BreakerTimeout)*time.Second,
		logger,
	)

	if !cfg.WebhookConfigured() {
		logger.Warn().Msg("payment webhook secret not set, settlement is disabled")
		return gateway, nil, nil
	}

	verifier, err := payment.NewSvixVerifier(cfg.WebhookSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise webhook verifier: %w", err)
	}

	return gateway, verifier, nil
}
