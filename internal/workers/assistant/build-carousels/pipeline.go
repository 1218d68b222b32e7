package buildcarousels

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "buy-assistant/internal/common/errors"
	"buy-assistant/internal/common/logger"
	"buy-assistant/internal/common/metrics"
	fetchlistings "buy-assistant/internal/workers/assistant/fetch-listings"
	matchcategory "buy-assistant/internal/workers/assistant/match-category"
	planintent "buy-assistant/internal/workers/assistant/plan-intent"
	"buy-assistant/internal/models"

	"golang.org/x/sync/errgroup"
)

type Planner interface {
	Plan(ctx context.Context, message string) (*models.Plan, error)
}

type Matcher interface {
	Resolve(ctx context.Context, categoryName string) (*models.ResolvedCategory, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, categoryID string) (*models.ListingBatch, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Pipeline runs plan -> match -> fetch -> assemble for one message.
type Pipeline struct {
	config  *Config
	planner Planner
	matcher Matcher
	fetcher Fetcher
	logger  Logger
}

func NewPipeline(config *Config, planner Planner, matcher Matcher, fetcher Fetcher, log Logger) *Pipeline {
	return &Pipeline{
		config:  config,
		planner: planner,
		matcher: matcher,
		fetcher: fetcher,
		logger:  log,
	}
}

// Run returns the carousels for message. Unmatched categories and failed
// listing fetches are dropped; planner failures and assembly faults are
// returned as *errors.StandardError.
func (p *Pipeline) Run(ctx context.Context, message string) (*models.Response, error) {
	log := p.logger
	if id := logger.RequestIDFromContext(ctx); id != "" {
		log = log.With(map[string]interface{}{"requestId": id})
	}

	resp, err := p.run(ctx, log, message)
	if err != nil {
		stdErr := apperrors.Normalize(err)
		metrics.AssistantRequests.WithLabelValues(string(stdErr.Code)).Inc()
		return nil, stdErr
	}

	metrics.AssistantRequests.WithLabelValues("ok").Inc()
	metrics.CarouselsEmitted.Observe(float64(len(resp.Carousels)))
	return resp, nil
}

func (p *Pipeline) run(ctx context.Context, log Logger, message string) (*models.Response, error) {
	stage := time.Now()
	plan, err := p.planner.Plan(ctx, message)
	observeStage("plan", stage)
	if err != nil {
		log.Error("planner failed", map[string]interface{}{"error": err.Error()})
		if errors.Is(err, planintent.ErrPlannerTimeout) {
			return nil, apperrors.NewPlannerTimeoutError(err)
		}
		return nil, apperrors.NewPlannerFailureError(err)
	}

	log.Info("3. Matching with MeLi categories", map[string]interface{}{
		"proposals": len(plan.Categories),
	})
	stage = time.Now()
	resolved := p.resolveAll(ctx, log, plan)
	observeStage("match", stage)

	log.Info("4. Calling Search API for each MeLi category", map[string]interface{}{
		"resolved": len(resolved),
	})
	stage = time.Now()
	batches, failed := p.fetchAll(ctx, log, distinctCategoryIDs(resolved))
	observeStage("fetch", stage)

	kept := resolved[:0:0]
	for _, rc := range resolved {
		if _, ok := failed[rc.CategoryID]; ok {
			log.Warn("dropping category with failed listing fetch", map[string]interface{}{
				"category":   rc.CategoryRaw,
				"categoryId": rc.CategoryID,
			})
			continue
		}
		kept = append(kept, rc)
	}

	log.Info("5. Building the carousels and joining category questions", map[string]interface{}{
		"kept": len(kept),
	})
	stage = time.Now()
	carousels, err := Assemble(kept, batches, plan, p.config.ItemsByCarousel)
	observeStage("assemble", stage)
	if err != nil {
		log.Error("carousel assembly fault", map[string]interface{}{"error": err.Error()})
		return nil, apperrors.NewInternalConsistencyError(err)
	}

	return &models.Response{
		Message:   plan.Message,
		Carousels: carousels,
	}, nil
}

// resolveAll matches proposals in order. Misses and matcher errors drop the
// proposal.
func (p *Pipeline) resolveAll(ctx context.Context, log Logger, plan *models.Plan) []models.ResolvedCategory {
	resolved := make([]models.ResolvedCategory, 0, len(plan.Categories))
	for _, proposal := range plan.Categories {
		rc, err := p.matcher.Resolve(ctx, proposal.Name)
		switch {
		case err == nil:
			resolved = append(resolved, *rc)
		case errors.Is(err, matchcategory.ErrCategoryNotMatched):
			metrics.CategoriesNotMatched.Inc()
			log.Warn("Category not matched", map[string]interface{}{
				"category": proposal.Name,
			})
		default:
			metrics.CategoriesNotMatched.Inc()
			log.Error("category matching failed", map[string]interface{}{
				"category": proposal.Name,
				"error":    err.Error(),
			})
		}
	}
	return resolved
}

// fetchAll fetches every id concurrently and returns the successful batches in
// ids order plus the set of ids whose fetch failed.
func (p *Pipeline) fetchAll(ctx context.Context, log Logger, ids []string) ([]models.ListingBatch, map[string]error) {
	results := make([]*models.ListingBatch, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	if p.config.FetchConcurrency > 0 {
		g.SetLimit(p.config.FetchConcurrency)
	}
	for i, id := range ids {
		g.Go(func() error {
			results[i], errs[i] = p.fetcher.Fetch(ctx, id)
			if errs[i] == nil && results[i] == nil {
				errs[i] = fmt.Errorf("%w: category %s: no listing batch returned", fetchlistings.ErrListingFetchFailed, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	batches := make([]models.ListingBatch, 0, len(ids))
	failed := make(map[string]error)
	for i, id := range ids {
		if errs[i] != nil {
			code := apperrors.ErrCodeListingFetchFailed
			if errors.Is(errs[i], fetchlistings.ErrListingFetchTimeout) {
				code = apperrors.ErrCodeListingFetchTimeout
			}
			metrics.ListingFetchFailures.WithLabelValues(string(code)).Inc()
			log.Warn("listing fetch failed", map[string]interface{}{
				"categoryId": id,
				"errorCode":  string(code),
				"error":      errs[i].Error(),
			})
			failed[id] = errs[i]
			continue
		}
		batches = append(batches, *results[i])
	}

	return batches, failed
}

// distinctCategoryIDs returns category ids in first-appearance order.
func distinctCategoryIDs(resolved []models.ResolvedCategory) []string {
	seen := make(map[string]struct{}, len(resolved))
	ids := make([]string, 0, len(resolved))
	for _, rc := range resolved {
		if _, ok := seen[rc.CategoryID]; ok {
			continue
		}
		seen[rc.CategoryID] = struct{}{}
		ids = append(ids, rc.CategoryID)
	}
	return ids
}

func observeStage(name string, start time.Time) {
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
