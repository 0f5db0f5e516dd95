package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bistro/internal/cart"
	"bistro/internal/config"
	"bistro/internal/database"
	"bistro/internal/handler"
	"bistro/internal/imaging"
	"bistro/internal/notify"
	"bistro/internal/oplock"
	"bistro/internal/repository"
	"bistro/internal/router"
	"bistro/internal/service"
	"bistro/internal/storage"

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
	logger.Info().Msg("starting bistro API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize repositories
	categoryRepo := repository.NewCategoryRepository(pool, logger)
	dishRepo := repository.NewDishRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)

	// Initialize image storage
	store, err := storage.NewS3Store(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize image storage: %w", err)
	}
	uploader := storage.NewUploader(store, cfg.Storage.Bucket, cfg.Storage.MaxObjectBytes, logger)
	if status := uploader.CheckAvailability(ctx); !status.Ready {
		logger.Warn().
			Str("bucket", status.Bucket).
			Str("reason", status.Message).
			Msg("image storage is not ready, uploads will fail until it is")
	}

	processor := imaging.NewProcessor()
	locks := &oplock.Set{}

	// Initialize services
	menuService := service.NewMenuService(
		categoryRepo,
		dishRepo,
		processor,
		uploader,
		locks,
		cfg.Storage.UploadRetries,
		logger,
	)
	orderService := service.NewOrderService(
		orderRepo,
		notifiers(cfg, logger),
		processor,
		uploader,
		locks,
		cfg.Storage.UploadRetries,
		logger,
	)
	carts := cart.NewStore(cfg.Cart.IdleTTL)
	go carts.Run(ctx, cfg.Cart.SweepInterval, func(evicted int) {
		if evicted > 0 {
			logger.Debug().Int("evicted", evicted).Msg("idle carts evicted")
		}
	})
	cartService := service.NewCartService(carts, menuService, orderService, locks, logger)

	// Initialize router
	mux := router.New(router.Handlers{
		Health: handler.NewHealthHandler(pool, logger),
		Menu:   handler.NewMenuHandler(menuService, logger),
		Order:  handler.NewOrderHandler(orderService, logger),
		Cart:   handler.NewCartHandler(cartService, logger),
	}, router.Options{
		APIKey:         cfg.Auth.APIKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: 60 * time.Second,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
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

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// notifiers builds the configured order notifiers. A channel that fails to
// initialise is logged and left out.
func notifiers(cfg *config.Config, logger zerolog.Logger) notify.Notifier {
	var multi notify.Multi

	if cfg.Mail.Enabled() {
		mailer, err := notify.NewMailNotifier(cfg.Mail, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialise mail notifier, order emails disabled")
		} else {
			multi = append(multi, mailer)
		}
	}

	if cfg.Telegram.Enabled() {
		bot, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.AdminChatID, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialise telegram notifier, admin messages disabled")
		} else {
			multi = append(multi, bot)
		}
	}

	if len(multi) == 0 {
		logger.Info().Msg("no order notifiers configured")
		return nil
	}
	return multi
}
