// Package cli provides common initialization shared by cmd/spese,
// cmd/spese-worker and cmd/spese-cli.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"spesefx/internal/backend"
	"spesefx/internal/bus"
	"spesefx/internal/cache"
	"spesefx/internal/config"
	"spesefx/internal/log"
	"spesefx/internal/rates"
	"spesefx/internal/services"
	"spesefx/internal/store"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging at the given level and makes
// it the process default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, stop
}

// NewRateProvider builds the rate source selected by RATE_PROVIDER.
func NewRateProvider(cfg *config.Config) (rates.Provider, error) {
	switch cfg.RateProvider {
	case config.RateProviderHTTP:
		return rates.NewHTTPProvider(cfg.RatesAPIURL, cfg.RatesTimeout), nil
	case config.RateProviderStatic:
		p, err := rates.ParseStatic(cfg.RatesStatic)
		if err != nil {
			return nil, fmt.Errorf("parse RATES_STATIC: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown rate provider %q", cfg.RateProvider)
	}
}

// Pipeline is the wired save path and listing of one process.
type Pipeline struct {
	Bus        *bus.Bus
	Store      store.Store
	Listing    *cache.ListCache
	Normalizer *services.Normalizer

	cleanup backend.CleanupFunc
}

// BuildPipeline connects storage, rates, the bus, the listing cache and the
// normalizer, then loads the listing once. A failed initial load is logged
// and leaves the listing stale.
func BuildPipeline(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Pipeline, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	provider, err := NewRateProvider(cfg)
	if err != nil {
		if result.Cleanup != nil {
			_ = result.Cleanup()
		}
		return nil, err
	}

	b := bus.New(logger)
	listing := cache.NewListCache(result.Store, b, logger, cfg.RefreshTimeout)
	resolver := rates.NewResolver(provider, cfg.ReferenceCurrencyCode, logger)
	normalizer := services.NewNormalizer(resolver, result.Store, b, cfg.ReferenceCurrencyCode, logger)

	if _, err := listing.Refresh(ctx); err != nil {
		logger.WarnContext(ctx, "Initial listing load failed", log.FieldError, err)
	}

	return &Pipeline{
		Bus:        b,
		Store:      result.Store,
		Listing:    listing,
		Normalizer: normalizer,
		cleanup:    result.Cleanup,
	}, nil
}

// Close stops the listing cache and releases the store.
func (p *Pipeline) Close() error {
	p.Listing.Close()
	if p.cleanup != nil {
		return p.cleanup()
	}
	return nil
}
