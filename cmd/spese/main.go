package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"spesefx/internal/amqp"
	"spesefx/internal/cli"
	apphttp "spesefx/internal/http"
	"spesefx/internal/log"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger("info").Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	pipeline, err := cli.BuildPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to build pipeline", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.Error("Failed to close pipeline", log.FieldError, err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	// Cross-process change notifications are optional
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		forwarder := amqp.NewForwarder(amqpClient, pipeline.Bus, uuid.NewString(), logger)
		defer forwarder.Close()
		g.Go(func() error { return forwarder.Run(gctx) })
		logger.Info("AMQP change notifications enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:              ":" + cfg.Port,
		ReferenceCurrency: cfg.ReferenceCurrencyCode,
		Logger:            logger,
	}, pipeline.Normalizer, pipeline.Listing)

	g.Go(func() error {
		logger.Info("Starting spese server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"reference_currency", cfg.ReferenceCurrencyCode,
			"rate_provider", cfg.RateProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
