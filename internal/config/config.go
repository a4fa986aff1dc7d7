// Package config loads settings for the sandbox API and the checkout client.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"tokocheckout/internal/pricing"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting of the module.
type Config struct {
	App      App
	Log      Log
	Database Database
	Redis    Redis
	RabbitMQ RabbitMQ
	JWT      JWT
	Checkout Checkout
	API      API
}

type App struct {
	Port        string
	Environment string
}

type Log struct {
	Level  string
	Format string
}

type Database struct {
	Driver string // "sqlite" or "postgres"
	DSN    string
}

// Redis is optional; an empty address keeps idempotency keys in memory.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQ is optional; an empty URL disables event publishing.
type RabbitMQ struct {
	URL string
}

type JWT struct {
	Secret   string
	TokenTTL time.Duration
}

// Checkout holds pricing constants and payment timings shared by both sides.
type Checkout struct {
	ServiceFee          int64
	ApplicationFee      int64
	WarrantyCostPerItem int64
	MaxBonus            int64
	PollInterval        time.Duration
	PaymentExpiry       time.Duration
	IdempotencyTTL      time.Duration
}

// Fees returns the fixed charges added to every checkout.
func (c Checkout) Fees() pricing.Fees {
	return pricing.Fees{ServiceFee: c.ServiceFee, ApplicationFee: c.ApplicationFee}
}

// API is the client's view of the backend.
type API struct {
	BaseURL        string
	Timeout        time.Duration
	TokenStorePath string
	SessionKey     string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:toko.db?cache=shared")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("CHECKOUT_SERVICE_FEE", 1000)
	v.SetDefault("CHECKOUT_APPLICATION_FEE", 0)
	v.SetDefault("CHECKOUT_WARRANTY_PER_ITEM", 1100)
	v.SetDefault("CHECKOUT_MAX_BONUS", 10000)
	v.SetDefault("CHECKOUT_POLL_INTERVAL", "5s")
	v.SetDefault("CHECKOUT_PAYMENT_EXPIRY", "24h")
	v.SetDefault("CHECKOUT_IDEMPOTENCY_TTL", "24h")
	v.SetDefault("API_BASE_URL", "http://localhost:8080/api/v1")
	v.SetDefault("API_TIMEOUT", "30s")
	v.SetDefault("API_TOKEN_STORE", "toko-client.db")
	v.SetDefault("API_SESSION_KEY", "default")
}

// LoadDotEnv exports the variables of the given .env files, ".env" when none
// are named. Variables already set in the environment win; missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the configuration from v, typically a viper instance with
// AutomaticEnv enabled.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	cfg := Config{
		App: App{
			Port:        v.GetString("APP_PORT"),
			Environment: v.GetString("APP_ENV"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Database: Database{
			Driver: v.GetString("DATABASE_DRIVER"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RabbitMQ: RabbitMQ{URL: v.GetString("RABBITMQ_URL")},
		JWT: JWT{
			Secret:   v.GetString("JWT_SECRET"),
			TokenTTL: v.GetDuration("JWT_TTL"),
		},
		Checkout: Checkout{
			ServiceFee:          v.GetInt64("CHECKOUT_SERVICE_FEE"),
			ApplicationFee:      v.GetInt64("CHECKOUT_APPLICATION_FEE"),
			WarrantyCostPerItem: v.GetInt64("CHECKOUT_WARRANTY_PER_ITEM"),
			MaxBonus:            v.GetInt64("CHECKOUT_MAX_BONUS"),
			PollInterval:        v.GetDuration("CHECKOUT_POLL_INTERVAL"),
			PaymentExpiry:       v.GetDuration("CHECKOUT_PAYMENT_EXPIRY"),
			IdempotencyTTL:      v.GetDuration("CHECKOUT_IDEMPOTENCY_TTL"),
		},
		API: API{
			BaseURL:        v.GetString("API_BASE_URL"),
			Timeout:        v.GetDuration("API_TIMEOUT"),
			TokenStorePath: v.GetString("API_TOKEN_STORE"),
			SessionKey:     v.GetString("API_SESSION_KEY"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}
	if c.Checkout.PollInterval <= 0 {
		return fmt.Errorf("CHECKOUT_POLL_INTERVAL must be positive, got %s", c.Checkout.PollInterval)
	}
	if c.Checkout.PaymentExpiry <= 0 {
		return fmt.Errorf("CHECKOUT_PAYMENT_EXPIRY must be positive, got %s", c.Checkout.PaymentExpiry)
	}
	if c.Checkout.IdempotencyTTL <= 0 {
		return fmt.Errorf("CHECKOUT_IDEMPOTENCY_TTL must be positive, got %s", c.Checkout.IdempotencyTTL)
	}
	if c.Checkout.ServiceFee < 0 || c.Checkout.ApplicationFee < 0 || c.Checkout.WarrantyCostPerItem < 0 || c.Checkout.MaxBonus < 0 {
		return fmt.Errorf("checkout fees must not be negative")
	}
	return nil
}
