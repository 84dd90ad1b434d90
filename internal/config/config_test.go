package config_test

import (
	"testing"
	"time"

	"shoppingmall/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file::memory:")
	t.Setenv("CHECKOUT_LOCK_TIMEOUT", "2s")
	t.Setenv("RESTORE_STOCK_ON_CANCEL", "false")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "file::memory:", cfg.DatabaseDSN)
	assert.Equal(t, 2*time.Second, cfg.LockTimeout)
	assert.Equal(t, 10*time.Second, cfg.CheckoutTimeout)
	assert.False(t, cfg.RestoreStockOnCancel)
	assert.Equal(t, ":8080", cfg.AppPort)
}

func TestFromViper_Validation(t *testing.T) {
	v := viper.New()
	v.Set("DB_DRIVER", "postgres")
	v.Set("CHECKOUT_TIMEOUT", "5s")
	v.Set("ORDER_TIMEZONE", "UTC")

	_, err := config.FromViper(v)
	assert.ErrorContains(t, err, "JWT_SECRET")

	v.Set("JWT_SECRET", "s")
	v.Set("DB_DRIVER", "mysql")
	_, err = config.FromViper(v)
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")

	v.Set("DB_DRIVER", "postgres")
	v.Set("ORDER_TIMEZONE", "Mars/Olympus")
	_, err = config.FromViper(v)
	assert.ErrorContains(t, err, "invalid ORDER_TIMEZONE")

	v.Set("ORDER_TIMEZONE", "Asia/Taipei")
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Taipei", cfg.Location().String())
}
