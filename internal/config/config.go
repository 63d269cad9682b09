package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port                  int    `env:"PORT" envDefault:"8080"`
	DatabaseURL           string `env:"DATABASE_URL,required"`
	RedisURL              string `env:"REDIS_URL,required"`
	SiteID                string `env:"SITE_ID" envDefault:"default"`
	SessionTimeoutSeconds int    `env:"SESSION_TIMEOUT_SECONDS" envDefault:"1800"`
	SessionGraceSeconds   int    `env:"SESSION_GRACE_SECONDS" envDefault:"1800"`
	SweepIntervalSeconds  int    `env:"SWEEP_INTERVAL_SECONDS" envDefault:"60"`
	TrackingEnabled       bool   `env:"TRACKING_ENABLED" envDefault:"true"`
	BroadcastEnabled      bool   `env:"BROADCAST_ENABLED" envDefault:"true"`
	AnonymizeIP           bool   `env:"ANONYMIZE_IP" envDefault:"false"`
	RateLimitPerMin       int    `env:"RATE_LIMIT_PER_MIN" envDefault:"600"`
	LogLevel              string `env:"LOG_LEVEL" envDefault:"info"`
}

// SessionTimeout is how long a session may sit without activity before the
// sweep marks it idle.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSeconds) * time.Second
}

// SessionGrace is the additional idle time before an idle session is ended.
func (c *Config) SessionGrace() time.Duration {
	return time.Duration(c.SessionGraceSeconds) * time.Second
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate() error {
	if c.SessionTimeoutSeconds <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT_SECONDS must be positive")
	}
	if c.SessionGraceSeconds <= 0 {
		return fmt.Errorf("SESSION_GRACE_SECONDS must be positive")
	}
	if c.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_SECONDS must be positive")
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
