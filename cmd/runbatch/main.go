package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

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

// runbatch drives one wizard run end to end without the HTTP gateway:
// select a template, validate a CSV from disk, submit, and save the
// generated archive.
func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "formflow-runbatch",
	})
	logger.SetDefault(appLogger)

	// Parse command line flags
	templateID := flag.String("template", "", "Template id to render with")
	dataPath := flag.String("data", "", "Path to the CSV dataset")
	downloadAll := flag.Bool("download", true, "Download the batch archive after processing")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *templateID == "" || *dataPath == "" {
		appLogger.Fatal("Both -template and -data are required")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize database for batch history
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	batchRepo := repository.NewBatchRepository(db)

	// Initialize backend client and artifact sink
	client := backend.NewClient(cfg.Backend.BaseURL)
	sink, err := storage.NewSink(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize artifact storage")
	}

	// Wire the engine
	validator := ingest.NewValidator(client)
	processor := batch.NewProcessor(client, batchRepo)
	notifier := download.NewNotifier(cfg.Notify.DismissAfter)
	orchestrator := download.NewOrchestrator(client, sink, notifier)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	// Run the wizard headless
	session := wizard.NewSession(client, validator, processor)
	ctx = logger.SetSessionID(ctx, session.ID)

	if err := session.SelectTemplate(ctx, *templateID); err != nil {
		appLogger.WithError(err).Fatal("Failed to select template")
	}

	f, err := os.Open(*dataPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to open dataset")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		appLogger.WithError(err).Fatal("Failed to stat dataset")
	}

	dataset, err := session.AttachDataset(ctx, ingest.File{
		Name:   filepath.Base(*dataPath),
		Size:   info.Size(),
		Reader: f,
	})
	f.Close()
	if err != nil {
		appLogger.WithError(err).Fatal("Dataset validation failed")
	}
	appLogger.WithFields(logger.Fields{
		"file": dataset.FileName,
		"rows": dataset.RowCount,
	}).Info("Dataset validated")

	job, err := session.Submit(ctx)
	if err != nil {
		appLogger.WithError(err).Fatal("Batch submission failed")
	}
	appLogger.WithFields(logger.Fields{
		"batch_id":     job.BatchID,
		"files":        len(job.GeneratedFiles),
		"success_rate": job.SuccessRate,
	}).Info("Batch completed")

	if *downloadAll {
		location, err := orchestrator.DownloadAll(ctx, job.BatchID)
		if err != nil {
			appLogger.WithError(err).Fatal("Archive download failed")
		}
		appLogger.WithField("location", location).Info("Archive saved")
	}
}
