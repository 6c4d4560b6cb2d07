/**
 * @description
 * This is the main entry point for the newsletter service. It initializes
 * and wires together all the components of the application: configuration,
 * the file-backed registries, the SendGrid mailer, the notification
 * dispatcher, the admin authenticator, the expiry sweep scheduler, and the
 * HTTP router. Finally, it starts the HTTP server and handles graceful
 * shutdown.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files during local development.
 * - The service's internal packages for config, storage, business logic, and API handling.
 */
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rabbithole/newsletter-service/internal/api"
	"github.com/rabbithole/newsletter-service/internal/app"
	"github.com/rabbithole/newsletter-service/internal/config"
	"github.com/rabbithole/newsletter-service/internal/store"
	"github.com/rabbithole/newsletter-service/pkg/mailer"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env file for local development.
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	// Load application configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if cfg.SendGridAPIKey == "" {
		logger.Warn("SENDGRID_API_KEY not set, email delivery will fail at runtime")
	}

	// Prepare the data directory and the flat-file registries.
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data directory", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	pendingRepo := store.NewPendingRepository(filepath.Join(cfg.DataDir, "pendingSubscribers.json"))
	subscriberRepo := store.NewSubscriberRepository(filepath.Join(cfg.DataDir, "subscribers.json"))
	postRepo := store.NewPostRepository(filepath.Join(cfg.DataDir, "posts.json"))

	for _, init := range []func() error{pendingRepo.Init, subscriberRepo.Init, postRepo.Init} {
		if err := init(); err != nil {
			logger.Error("failed to initialize data files", "error", err)
			os.Exit(1)
		}
	}

	// Initialize application layers
	sendgrid := mailer.NewSendGridMailer(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName)
	notifier := app.NewNotifier(sendgrid, cfg.FrontendURL, logger)
	service := app.NewService(pendingRepo, subscriberRepo, postRepo, sendgrid, notifier, logger, cfg.FrontendURL, cfg.BackendURL)
	auth := app.NewAuth(cfg.AdminUsername, cfg.AdminPasswordHash, cfg.AdminTokenSecret, logger)
	handler := api.NewHandler(service, auth, logger)
	router := api.NewRouter(handler, cfg.FrontendURL, cfg.StaticDir)

	// Start the recurring pending-expiry sweep.
	scheduler := app.NewScheduler(service, logger)
	scheduler.Start()
	defer scheduler.Stop()

	// Configure and start the HTTP server.
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for an OS signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	// Create a context with a timeout for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Attempt to gracefully shut down the server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
