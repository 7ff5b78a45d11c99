package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"spesefx/internal/core"
)

const (
	RateProviderHTTP   = "http"
	RateProviderStatic = "static"
)

type Config struct {
	// HTTP Server
	Port string

	// Logging
	LogLevel string

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// Normalization
	ReferenceCurrencyCode string
	RateProvider          string
	RatesAPIURL           string
	RatesTimeout          time.Duration
	RatesStatic           string

	// Listing cache
	RefreshTimeout time.Duration

	// AMQP (optional change notifications)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/spese.db"),

		ReferenceCurrencyCode: core.NormalizeCurrencyCode(getEnv("REFERENCE_CURRENCY_CODE", "USD")),
		RateProvider:          getEnv("RATE_PROVIDER", RateProviderHTTP),
		RatesAPIURL:           getEnv("RATES_API_URL", "https://open.er-api.com/v6"),
		RatesTimeout:          getEnvDuration("RATES_TIMEOUT", 5*time.Second),
		RatesStatic:           getEnv("RATES_STATIC", ""),

		RefreshTimeout: getEnvDuration("REFRESH_TIMEOUT", 10*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spese"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expenses_changed"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Expenses"),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		errors = append(errors, c.validateSQLitePath()...)
	}

	if !core.IsCurrencyCode(c.ReferenceCurrencyCode) {
		errors = append(errors, fmt.Sprintf("invalid reference currency '%s': must be a 3-letter ISO-4217 code", c.ReferenceCurrencyCode))
	}

	switch c.RateProvider {
	case RateProviderHTTP:
		if u, err := url.Parse(c.RatesAPIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid rates API URL '%s': must be an absolute http(s) URL", c.RatesAPIURL))
		}
	case RateProviderStatic:
		// RATES_STATIC may be empty: every foreign currency is then stored unconverted.
	default:
		errors = append(errors, fmt.Sprintf("invalid rate provider '%s': must be one of [http static]", c.RateProvider))
	}

	if c.RatesTimeout <= 0 || c.RatesTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rates timeout %v: must be between 0 and 1 minute", c.RatesTimeout))
	}
	if c.RefreshTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid refresh timeout %v: must be positive", c.RefreshTimeout))
	}

	errors = append(errors, c.validateAMQP()...)

	return combine(errors)
}

// ValidateWorker checks the settings the sheets mirror worker needs on top
// of the storage settings.
func (c *Config) ValidateWorker() error {
	var errors []string

	if c.DataBackend != "sqlite" {
		errors = append(errors, "the sync worker requires DATA_BACKEND=sqlite")
	}
	errors = append(errors, c.validateSQLitePath()...)

	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for the sync worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required for the sync worker")
	}

	errors = append(errors, c.validateAMQP()...)

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	return combine(errors)
}

func (c *Config) validateSQLitePath() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func combine(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
