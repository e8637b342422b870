// Package config loads the server's runtime settings from the environment,
// with an optional .env file, and validates them.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// RateLimitConfig defines the parameters for per-connection message rate
// limiting. A zero Burst disables the limiter.
type RateLimitConfig struct {
	Burst          int           `env:"RATE_LIMIT_BURST" envDefault:"0"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1s"`
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port           string   `env:"SERVER_PORT" envDefault:":8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:8080" envSeparator:","`
	MaxMessageSize int64    `env:"MAX_MESSAGE_SIZE" envDefault:"1048576"`
	RateLimit      RateLimitConfig

	// QueueLimit bounds each connection's outbound queue; 0 means unbounded.
	QueueLimit int `env:"HUB_QUEUE_LIMIT" envDefault:"0"`

	PingInterval    time.Duration `env:"PING_INTERVAL" envDefault:"54s"`
	PongWait        time.Duration `env:"PONG_WAIT" envDefault:"60s"`
	WriteWait       time.Duration `env:"WRITE_WAIT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	MetricsEnabled bool       `env:"METRICS_ENABLED" envDefault:"true"`
	LogLevel       slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string     `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads an optional .env file from the working directory and parses the
// environment into a validated Config. Variables already set in the
// environment take precedence over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the current environment without reading .env.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.AllowedOrigins = trimOrigins(cfg.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no variables are set.
func Default() *Config {
	return &Config{
		Port:           ":8080",
		AllowedOrigins: []string{"http://localhost:8080"},
		MaxMessageSize: 1 << 20,
		RateLimit: RateLimitConfig{
			RefillInterval: time.Second,
		},
		PingInterval:    54 * time.Second,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MetricsEnabled:  true,
		LogLevel:        slog.LevelInfo,
		LogFormat:       "text",
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT must not be empty"))
	}
	if c.MaxMessageSize <= 0 {
		errs = append(errs, fmt.Errorf("MAX_MESSAGE_SIZE must be positive, got %d", c.MaxMessageSize))
	}
	if c.RateLimit.Burst < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must not be negative, got %d", c.RateLimit.Burst))
	}
	if c.RateLimit.Burst > 0 && c.RateLimit.RefillInterval <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_REFILL_INTERVAL must be positive, got %s", c.RateLimit.RefillInterval))
	}
	if c.QueueLimit < 0 {
		errs = append(errs, fmt.Errorf("HUB_QUEUE_LIMIT must not be negative, got %d", c.QueueLimit))
	}
	if c.PongWait <= 0 || c.WriteWait <= 0 || c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("PONG_WAIT, WRITE_WAIT and SHUTDOWN_TIMEOUT must be positive"))
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		errs = append(errs, fmt.Errorf("PING_INTERVAL must be positive and shorter than PONG_WAIT, got %s", c.PingInterval))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// NewLogger builds the process logger described by the configuration.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func trimOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
