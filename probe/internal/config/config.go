package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/discipl/ipv8-healthcheck/probe/internal/core/domain"
)

// Log levels accepted in PROBE_LOG_LEVEL.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelOff   = "off"
)

// EnvKeys lists every environment variable Load reads.
var EnvKeys = []string{
	"PROBE_URL",
	"PROBE_EXPECTED_PEERS",
	"PROBE_TIMEOUT",
	"PROBE_LOG_LEVEL",
	"PROBE_LISTEN_ADDR",
	"PROBE_INTERVAL",
	"PROBE_MIN_INTERVAL",
	"PROBE_CORS_ALLOWED_ORIGINS",
}

var validate = validator.New()

// Config holds the probe target and the sidecar settings.
// With no environment set it describes exactly the stock IPv8 probe.
type Config struct {
	URL           string        `validate:"required,url"`
	ExpectedPeers []string      `validate:"required,min=1,dive,required"`
	Timeout       time.Duration `validate:"gte=0"`
	LogLevel      string        `validate:"oneof=debug info warn error off"`

	// Sidecar only
	ListenAddr     string        `validate:"required"`
	Interval       time.Duration `validate:"gt=0"`
	MinInterval    time.Duration `validate:"gte=0"`
	AllowedOrigins []string
}

// Load reads an optional .env file, then the environment, and validates the result.
func Load() (*Config, error) {
	// Variables already present in the environment take precedence over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read .env: %w", err)
	}

	timeout, err := getDuration("PROBE_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}
	interval, err := getDuration("PROBE_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	minInterval, err := getDuration("PROBE_MIN_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		URL:           getEnv("PROBE_URL", domain.DefaultAttestationURL),
		ExpectedPeers: splitList(getEnv("PROBE_EXPECTED_PEERS", strings.Join(domain.DefaultExpectedPeers, ","))),
		Timeout:       timeout,
		LogLevel:      strings.ToLower(getEnv("PROBE_LOG_LEVEL", LogLevelOff)),

		ListenAddr:     getEnv("PROBE_LISTEN_ADDR", ":14411"),
		Interval:       interval,
		MinInterval:    minInterval,
		AllowedOrigins: splitList(getEnv("PROBE_CORS_ALLOWED_ORIGINS", "*")),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

// splitList splits a comma separated value, dropping blank entries.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
