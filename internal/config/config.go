package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds the runtime settings of the shop backend.
type Config struct {
	AppPort string

	DBDriver        string // "postgres" or "sqlite"
	DatabaseDSN     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBConnMaxLife   time.Duration
	SeedDemoData    bool
	AdminUsername   string
	AdminEmail      string
	AdminPassword   string
	JWTSecret       string
	TokenTTL        time.Duration
	RabbitMQURL     string
	RedisAddr       string
	RedisPassword   string
	CartCacheTTL    time.Duration
	CheckoutTimeout time.Duration
	LockTimeout     time.Duration
	OrderTimezone   string

	RestoreStockOnCancel bool
}

// setDefaults registers every key so AutomaticEnv can resolve it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=shop port=5432 sslmode=disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("SEED_DEMO_DATA", false)
	v.SetDefault("ADMIN_USERNAME", "")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("CART_CACHE_TTL", "15m")
	v.SetDefault("CHECKOUT_TIMEOUT", "10s")
	v.SetDefault("CHECKOUT_LOCK_TIMEOUT", "5s")
	v.SetDefault("ORDER_TIMEZONE", "Asia/Taipei")
	v.SetDefault("RESTORE_STOCK_ON_CANCEL", true)
}

// New returns a viper instance with defaults, environment binding and an
// optional config.yaml in the working directory.
func New() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	v.AutomaticEnv()
	return v, nil
}

// Load reads configuration from the environment and config.yaml.
func Load() (*Config, error) {
	v, err := New()
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:              v.GetString("APP_PORT"),
		DBDriver:             v.GetString("DB_DRIVER"),
		DatabaseDSN:          v.GetString("DATABASE_DSN"),
		DBMaxOpenConns:       v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:       v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLife:        v.GetDuration("DB_CONN_MAX_LIFETIME"),
		SeedDemoData:         v.GetBool("SEED_DEMO_DATA"),
		AdminUsername:        v.GetString("ADMIN_USERNAME"),
		AdminEmail:           v.GetString("ADMIN_EMAIL"),
		AdminPassword:        v.GetString("ADMIN_PASSWORD"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		TokenTTL:             v.GetDuration("TOKEN_TTL"),
		RabbitMQURL:          v.GetString("RABBITMQ_URL"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		RedisPassword:        v.GetString("REDIS_PASSWORD"),
		CartCacheTTL:         v.GetDuration("CART_CACHE_TTL"),
		CheckoutTimeout:      v.GetDuration("CHECKOUT_TIMEOUT"),
		LockTimeout:          v.GetDuration("CHECKOUT_LOCK_TIMEOUT"),
		OrderTimezone:        v.GetString("ORDER_TIMEZONE"),
		RestoreStockOnCancel: v.GetBool("RESTORE_STOCK_ON_CANCEL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have no safe default.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.CheckoutTimeout <= 0 {
		return errors.New("CHECKOUT_TIMEOUT must be positive")
	}
	if _, err := time.LoadLocation(c.OrderTimezone); err != nil {
		return fmt.Errorf("invalid ORDER_TIMEZONE %q: %w", c.OrderTimezone, err)
	}
	return nil
}

// Location resolves OrderTimezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.OrderTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
