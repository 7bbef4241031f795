package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marco/formflow/internal/api"
	"github.com/marco/formflow/internal/backend"
	"github.com/marco/formflow/internal/batch"
	"github.com/marco/formflow/internal/config"
	"github.com/marco/formflow/internal/download"
	"github.com/marco/formflow/internal/ingest"
	"github.com/marco/formflow/internal/logger"
	"github.com/marco/formflow/internal/repository"
	"github.com/marco/formflow/internal/storage"
	"github.com/marco/formflow/internal/wizard"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.New(logger.LoadFromEnv())
	logger.SetDefault(appLogger)
	defer logger.Sync()

	// Initialize database for batch history
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	batchRepo := repository.NewBatchRepository(db)

	// Backend client shared by every component that talks upstream
	client := backend.NewClient(cfg.Backend.BaseURL)

	// Artifact sink for downloads
	sink, err := storage.NewSink(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize artifact storage")
	}

	// Wire the engine
	validator := ingest.NewValidator(client)
	processor := batch.NewProcessor(client, batchRepo)
	notifier := download.NewNotifier(cfg.Notify.DismissAfter)
	orchestrator := download.NewOrchestrator(client, sink, notifier)
	manager := wizard.NewManager(client, validator, processor)

	// Setup router
	router := api.SetupRouter(cfg, manager, client, orchestrator, batchRepo)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting gateway server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
