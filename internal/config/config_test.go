package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("PairingCodeTTL converts hours to duration", func(t *testing.T) {
		cfg := &Config{PairingCodeTTLHours: 24}
		assert.Equal(t, 24*time.Hour, cfg.PairingCodeTTL())
	})

	t.Run("OfflineMode when no database URL", func(t *testing.T) {
		assert.True(t, (&Config{}).OfflineMode())
		assert.False(t, (&Config{DatabaseURL: "postgres://localhost/pairing"}).OfflineMode())
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":                   os.Getenv("PORT"),
		"DATABASE_URL":           os.Getenv("DATABASE_URL"),
		"REDIS_URL":              os.Getenv("REDIS_URL"),
		"PAIRING_CODE_TTL_HOURS": os.Getenv("PAIRING_CODE_TTL_HOURS"),
		"REDEEM_RATE_PER_MINUTE": os.Getenv("REDEEM_RATE_PER_MINUTE"),
		"LOG_LEVEL":              os.Getenv("LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads defaults", func(t *testing.T) {
		for k := range originalEnv {
			os.Unsetenv(k)
		}

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, 24, cfg.PairingCodeTTLHours)
		assert.Equal(t, 10, cfg.RedeemRatePerMin)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.True(t, cfg.OfflineMode())
	})

	t.Run("loads from environment", func(t *testing.T) {
		os.Setenv("PORT", "9090")
		os.Setenv("DATABASE_URL", "postgres://localhost/pairing")
		os.Setenv("PAIRING_CODE_TTL_HOURS", "12")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, "postgres://localhost/pairing", cfg.DatabaseURL)
		assert.Equal(t, 12*time.Hour, cfg.PairingCodeTTL())
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.False(t, cfg.OfflineMode())
	})
}
