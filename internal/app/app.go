// internal/app/app.go
package app

import (
	"buy-assistant/internal/api"
	"buy-assistant/internal/common/config"
	"buy-assistant/internal/common/database"
	commonhttp "buy-assistant/internal/common/http"
	"buy-assistant/internal/common/logger"
	"buy-assistant/internal/common/observability"
	buildcarousels "buy-assistant/internal/workers/assistant/build-carousels"
	fetchlistings "buy-assistant/internal/workers/assistant/fetch-listings"
	matchcategory "buy-assistant/internal/workers/assistant/match-category"
	planintent "buy-assistant/internal/workers/assistant/plan-intent"

	"github.com/openai/openai-go/v3/option"
	"github.com/redis/go-redis/v9"
)

// Deps are the process-wide clients shared by both surfaces.
type Deps struct {
	Config        *config.Config
	Logger        logger.Logger
	Elasticsearch *database.ElasticsearchClient
	// Redis is nil when the listing cache is disabled.
	Redis         *database.RedisClient
	Observability *observability.Observability
	// OpenAIOptions are appended to the planner and embedder client options.
	OpenAIOptions []option.RequestOption
}

// App holds the wired pipeline and its two surfaces.
type App struct {
	Pipeline   *buildcarousels.Pipeline
	JobHandler *buildcarousels.Handler
	Server     *api.Server
}

func New(d Deps) *App {
	cfg := d.Config
	log := d.Logger

	planner := planintent.NewHandler(
		planintent.LoadConfig(cfg),
		&planIntentLoggerAdapter{log},
		d.OpenAIOptions...,
	)

	matcher := matchcategory.NewHandler(
		matchcategory.LoadConfig(cfg),
		d.Elasticsearch.Client,
		matchcategory.NewOpenAIEmbedder(matchcategory.LoadEmbedderConfig(cfg), d.OpenAIOptions...),
		&matchCategoryLoggerAdapter{log},
	)

	fetchCfg := fetchlistings.LoadConfig(cfg)
	var rdb redis.Cmdable
	if d.Redis != nil {
		rdb = d.Redis.Client
	}
	fetcher := fetchlistings.NewHandler(
		fetchCfg,
		commonhttp.NewClient(fetchCfg.Timeout),
		rdb,
		&fetchListingsLoggerAdapter{log},
	)

	buildCfg := buildcarousels.LoadConfig(cfg)
	pipeline := buildcarousels.NewPipeline(buildCfg, planner, matcher, fetcher, &buildCarouselsLoggerAdapter{log})

	checks := map[string]api.Pinger{"elasticsearch": d.Elasticsearch}
	if d.Redis != nil {
		checks["redis"] = d.Redis
	}

	return &App{
		Pipeline:   pipeline,
		JobHandler: buildcarousels.NewHandler(buildCfg, pipeline, d.Observability, &buildCarouselsLoggerAdapter{log}),
		Server:     api.NewServer(api.LoadConfig(cfg), pipeline, d.Observability, checks, log),
	}
}
