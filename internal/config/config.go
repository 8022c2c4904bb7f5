package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port                int    `env:"PORT" envDefault:"8080"`
	DatabaseURL         string `env:"DATABASE_URL"`
	RedisURL            string `env:"REDIS_URL"`
	PairingCodeTTLHours int    `env:"PAIRING_CODE_TTL_HOURS" envDefault:"24"`
	RedeemRatePerMin    int    `env:"REDEEM_RATE_PER_MINUTE" envDefault:"10"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) PairingCodeTTL() time.Duration {
	return time.Duration(c.PairingCodeTTLHours) * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// OfflineMode reports whether the service runs against the in-memory
// store instead of Postgres. Intended for demo and local development;
// all state is lost on restart.
func (c *Config) OfflineMode() bool {
	return c.DatabaseURL == ""
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
