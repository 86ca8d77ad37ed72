package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/rezonia/invoice-engine/internal/logger"
)

type Config struct {
	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string

	// HTTP server
	ServerAddress string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	Debug         bool

	// Import reconciliation
	ImportMode         string
	ImportTolerance    decimal.Decimal
	CurrencyTolerances map[string]decimal.Decimal

	// Validation
	Peppol bool
}

// Load reads the optional dotenv files (".env" when none are given) and then
// the process environment. Variables already set in the environment win.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	config := &Config{
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		LogTimeFormat: getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:     getEnv("LOG_OUTPUT", "stderr"),
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		ImportMode:    strings.ToLower(getEnv("IMPORT_MODE", "strict")),
	}

	var err error
	if config.ReadTimeout, err = time.ParseDuration(getEnv("SERVER_READ_TIMEOUT", "30s")); err != nil {
		return nil, fmt.Errorf("SERVER_READ_TIMEOUT: %w", err)
	}
	if config.WriteTimeout, err = time.ParseDuration(getEnv("SERVER_WRITE_TIMEOUT", "60s")); err != nil {
		return nil, fmt.Errorf("SERVER_WRITE_TIMEOUT: %w", err)
	}
	if config.Debug, err = strconv.ParseBool(getEnv("SERVER_DEBUG", "false")); err != nil {
		return nil, fmt.Errorf("SERVER_DEBUG: %w", err)
	}
	if config.ImportTolerance, err = decimal.NewFromString(getEnv("IMPORT_TOLERANCE", "0.02")); err != nil {
		return nil, fmt.Errorf("IMPORT_TOLERANCE: %w", err)
	}
	if config.CurrencyTolerances, err = parseTolerances(getEnv("IMPORT_CURRENCY_TOLERANCE", "")); err != nil {
		return nil, fmt.Errorf("IMPORT_CURRENCY_TOLERANCE: %w", err)
	}
	if config.Peppol, err = strconv.ParseBool(getEnv("VALIDATION_PEPPOL", "false")); err != nil {
		return nil, fmt.Errorf("VALIDATION_PEPPOL: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.ImportMode {
	case "strict", "lenient":
	default:
		return fmt.Errorf("IMPORT_MODE must be strict or lenient, got %q", c.ImportMode)
	}
	if c.ImportTolerance.IsNegative() {
		return fmt.Errorf("IMPORT_TOLERANCE must not be negative")
	}
	for cur, tol := range c.CurrencyTolerances {
		if tol.IsNegative() {
			return fmt.Errorf("tolerance for %s must not be negative", cur)
		}
	}
	if c.ServerAddress == "" {
		return fmt.Errorf("SERVER_ADDRESS is required")
	}
	return nil
}

// LoggerConfig returns the logger configuration from the main config
func (c *Config) LoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// parseTolerances reads "JPY=1,EUR=0.02" style overrides
func parseTolerances(s string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		cur, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected CUR=amount, got %q", pair)
		}
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cur, err)
		}
		out[strings.ToUpper(strings.TrimSpace(cur))] = d
	}
	return out, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
