package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DatabaseURL      string        `env:"DATABASE_URL"`
	DBDriver         string        `env:"DB_DRIVER" envDefault:"sqlite"`
	SQLitePath       string        `env:"SQLITE_PATH" envDefault:"tubecost.db"`
	DBMaxOpenConns   int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"30s"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisTTL      time.Duration `env:"REDIS_TTL" envDefault:"1h"`

	// ExchangeRate is the default CNY -> TWD rate; empty means none
	ExchangeRate string `env:"EXCHANGE_RATE"`
	CatalogPath  string `env:"CATALOG_PATH"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogDev   bool   `env:"LOG_DEV" envDefault:"false"`
}

// Load reads an optional .env file, then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the combinations env tags cannot express
func (c *Config) Validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))

	switch c.DBDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DB_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", c.DBDriver)
	}

	if _, err := c.DefaultRate(); err != nil {
		return err
	}

	return nil
}

// DefaultRate parses EXCHANGE_RATE. A blank value is a valid "no rate".
func (c *Config) DefaultRate() (decimal.NullDecimal, error) {
	raw := strings.TrimSpace(c.ExchangeRate)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid EXCHANGE_RATE %q: %w", raw, err)
	}
	return decimal.NewNullDecimal(rate), nil
}

// DSN returns the data source for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return c.DatabaseURL
	}
	return c.SQLitePath
}
