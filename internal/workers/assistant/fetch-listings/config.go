// internal/workers/assistant/fetch-listings/config.go
package fetchlistings

import (
	"time"

	"buy-assistant/internal/common/config"
)

type Config struct {
	BaseURL  string
	Site     string
	PageSize int
	Sort     string
	Timeout  time.Duration
	// CacheTTL of zero disables caching even when a redis client is given.
	CacheTTL time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		BaseURL:  cfg.APIs.Marketplace.BaseURL,
		Site:     cfg.APIs.Marketplace.Site,
		PageSize: cfg.APIs.Marketplace.PageSize,
		Sort:     cfg.APIs.Marketplace.Sort,
		Timeout:  config.GetDuration(cfg.APIs.Marketplace.Timeout),
	}
	if cfg.Database.Redis.Enabled {
		c.CacheTTL = config.GetDuration(cfg.Database.Redis.ListingsTTL)
	}
	return c
}
