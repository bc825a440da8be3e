package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL": "postgres://localhost/pos",
		"REDIS_URL":    "redis://localhost:6379",
		"JWT_SECRET":   "secret",
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.EqualValues(t, 20_000, cfg.PointsDivisor)
	require.False(t, cfg.StrictOverpay)
	require.Equal(t, 30*time.Minute, cfg.CartTTL)
	require.Equal(t, "Toko Kasirku", cfg.StoreName)
	require.Equal(t, "10-M", cfg.LoginRateLimit)
}

func TestLoadRequiresCoreKeys(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379",
		"JWT_SECRET":   "secret",
	})
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":           "postgres://localhost/pos",
		"REDIS_URL":              "redis://localhost:6379",
		"JWT_SECRET":             "secret",
		"LOYALTY_POINTS_DIVISOR": "10000",
		"DEBT_STRICT_OVERPAY":    "true",
		"CART_TTL":               "15m",
		"PORT":                   "9090",
	})
	require.NoError(t, err)
	require.EqualValues(t, 10_000, cfg.PointsDivisor)
	require.True(t, cfg.StrictOverpay)
	require.Equal(t, 15*time.Minute, cfg.CartTTL)
	require.Equal(t, ":9090", cfg.HTTPAddr())
}

func TestInvalidPointsDivisorRejected(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL":           "postgres://localhost/pos",
		"REDIS_URL":              "redis://localhost:6379",
		"JWT_SECRET":             "secret",
		"LOYALTY_POINTS_DIVISOR": "-5",
	})
	require.Error(t, err)
}
