// internal/workers/assistant/build-carousels/config.go
package buildcarousels

import (
	"time"

	"buy-assistant/internal/common/config"
)

type Config struct {
	ItemsByCarousel  int
	FetchConcurrency int
	// Timeout bounds one job on the workflow surface.
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	workerCfg := config.GetWorkerConfig(cfg, config.WorkerBuildCarousels)
	return &Config{
		ItemsByCarousel:  cfg.Assistant.ItemsByCarousel,
		FetchConcurrency: cfg.Assistant.FetchConcurrency,
		Timeout:          config.GetDuration(workerCfg.Timeout),
	}
}
