// internal/workers/assistant/plan-intent/config.go
package planintent

import (
	"time"

	"buy-assistant/internal/common/config"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int

	CarouselsToBuild    int
	QuestionsByCategory int
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		BaseURL:             cfg.APIs.OpenAI.BaseURL,
		APIKey:              cfg.APIs.OpenAI.APIKey,
		Model:               cfg.APIs.OpenAI.Model,
		Temperature:         cfg.APIs.OpenAI.Temperature,
		Timeout:             config.GetDuration(cfg.APIs.OpenAI.Timeout),
		MaxRetries:          cfg.APIs.OpenAI.MaxRetries,
		CarouselsToBuild:    cfg.Assistant.CarouselsToBuild,
		QuestionsByCategory: cfg.Assistant.QuestionsByCategory,
	}
}
