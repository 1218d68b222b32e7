// internal/common/config/config.go
package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Server    ServerConfig            `mapstructure:"server"`
	Assistant AssistantConfig         `mapstructure:"assistant"`
	Camunda   CamundaConfig           `mapstructure:"camunda"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Workers   map[string]WorkerConfig `mapstructure:"workers"`
	APIs      APIsConfig              `mapstructure:"apis"`
	Logging   LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address      string          `mapstructure:"address"`
	ReadTimeout  int             `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int             `mapstructure:"write_timeout"` // milliseconds
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Requests int  `mapstructure:"requests"`
	Window   int  `mapstructure:"window"` // milliseconds
}

// AssistantConfig holds the carousel pipeline knobs.
type AssistantConfig struct {
	CarouselsToBuild    int     `mapstructure:"carousels_to_build"`
	QuestionsByCategory int     `mapstructure:"questions_by_category"`
	ItemsByCarousel     int     `mapstructure:"items_by_carousel"`
	MinSimilarity       float64 `mapstructure:"min_similarity"`
	NumCandidates       int     `mapstructure:"num_candidates"`
	FetchConcurrency    int     `mapstructure:"fetch_concurrency"`
	MatchTimeout        int     `mapstructure:"match_timeout"` // milliseconds
}

type CamundaConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	BrokerAddress     string `mapstructure:"broker_address"`
	ConnectionTimeout int    `mapstructure:"connection_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type ElasticsearchConfig struct {
	Addresses     []string `mapstructure:"addresses"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	URL           string   `mapstructure:"url"` // Single URL for backwards compatibility
	TaxonomyIndex string   `mapstructure:"taxonomy_index"`
}

// GetAddresses returns the configured addresses, falling back to URL
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Address     string `mapstructure:"address"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	ListingsTTL int    `mapstructure:"listings_ttl"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every job worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	OpenAI struct {
		BaseURL        string  `mapstructure:"base_url"`
		APIKey         string  `mapstructure:"api_key"`
		Model          string  `mapstructure:"model"`
		EmbeddingModel string  `mapstructure:"embedding_model"`
		Temperature    float64 `mapstructure:"temperature"`
		Timeout        int     `mapstructure:"timeout"` // milliseconds
		MaxRetries     int     `mapstructure:"max_retries"`
	} `mapstructure:"openai"`

	Marketplace struct {
		BaseURL  string `mapstructure:"base_url"`
		Site     string `mapstructure:"site"`
		PageSize int    `mapstructure:"page_size"`
		Sort     string `mapstructure:"sort"`
		Timeout  int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"marketplace"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
