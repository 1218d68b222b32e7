// internal/workers/assistant/match-category/config.go
package matchcategory

import (
	"time"

	"buy-assistant/internal/common/config"
)

type Config struct {
	Index         string
	NumCandidates int
	// MinSimilarity rejects nearest hits scoring below it. Zero accepts any hit.
	MinSimilarity float64
	Timeout       time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Index:         cfg.Database.Elasticsearch.TaxonomyIndex,
		NumCandidates: cfg.Assistant.NumCandidates,
		MinSimilarity: cfg.Assistant.MinSimilarity,
		Timeout:       config.GetDuration(cfg.Assistant.MatchTimeout),
	}
}

// EmbedderConfig configures the OpenAI embeddings client.
type EmbedderConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxRetries int
}

func LoadEmbedderConfig(cfg *config.Config) *EmbedderConfig {
	return &EmbedderConfig{
		BaseURL:    cfg.APIs.OpenAI.BaseURL,
		APIKey:     cfg.APIs.OpenAI.APIKey,
		Model:      cfg.APIs.OpenAI.EmbeddingModel,
		MaxRetries: cfg.APIs.OpenAI.MaxRetries,
	}
}
