// internal/api/config.go
package api

import (
	"time"

	"buy-assistant/internal/common/config"
)

type Config struct {
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		RateLimitEnabled:  cfg.Server.RateLimit.Enabled,
		RateLimitRequests: cfg.Server.RateLimit.Requests,
		RateLimitWindow:   config.GetDuration(cfg.Server.RateLimit.Window),
	}
}
