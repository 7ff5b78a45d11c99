package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spesefx/internal/amqp"
	"spesefx/internal/cli"
	"spesefx/internal/config"
	"spesefx/internal/log"
	gsheet "spesefx/internal/sheets/google"
	"spesefx/internal/storage"
	"spesefx/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting spese-worker")

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteRepo.Close()

	sheetsClient, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	if err := sheetsClient.EnsureHeader(ctx); err != nil {
		// Not fatal: rows can still be appended.
		logger.Warn("Failed to ensure header row", log.FieldError, err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	syncWorker := worker.NewSyncWorker(sqliteRepo, sheetsClient, cfg.SyncBatchSize, logger)

	// Catch up on anything saved while the worker was down
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			err := amqpClient.ConsumeExpensesChanged(gctx, syncWorker.HandleChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, relying on periodic sync only")
	}

	// Periodic sync covers missed messages
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if _, err := syncWorker.ProcessPending(gctx); err != nil && gctx.Err() == nil {
					logger.Error("Periodic sync failed", log.FieldOperation, log.OpSync, log.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
