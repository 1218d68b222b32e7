// internal/workers/assistant/fetch-listings/handler.go
package fetchlistings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	commonhttp "buy-assistant/internal/common/http"
	"buy-assistant/internal/common/metrics"
	"buy-assistant/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "fetch-listings"
)

var (
	ErrListingFetchFailed  = errors.New("LISTING_FETCH_FAILED")
	ErrListingFetchTimeout = errors.New("LISTING_FETCH_TIMEOUT")
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	client *commonhttp.Client
	redis  redis.Cmdable
	logger Logger
}

// NewHandler builds a fetcher. rdb may be nil to run without a cache.
func NewHandler(config *Config, client *commonhttp.Client, rdb redis.Cmdable, log Logger) *Handler {
	return &Handler{
		config: config,
		client: client,
		redis:  rdb,
		logger: log.With(map[string]interface{}{
			"component": TaskType,
			"site":      config.Site,
		}),
	}
}

// Fetch returns one relevance-sorted page of listings for categoryID.
func (h *Handler) Fetch(ctx context.Context, categoryID string) (*models.ListingBatch, error) {
	return h.Execute(ctx, &Input{CategoryID: categoryID})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*models.ListingBatch, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*models.ListingBatch, error) {
	if batch, ok := h.fromCache(ctx, input.CategoryID); ok {
		return batch, nil
	}

	var resp searchResponse
	if err := h.client.GetJSON(ctx, h.searchURL(input.CategoryID), &resp); err != nil {
		if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: category %s: %v", ErrListingFetchTimeout, input.CategoryID, err)
		}
		return nil, fmt.Errorf("%w: category %s: %v", ErrListingFetchFailed, input.CategoryID, err)
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("%w: category %s: response has no results", ErrListingFetchFailed, input.CategoryID)
	}

	batch := &models.ListingBatch{
		CategoryID: input.CategoryID,
		Listings:   make([]models.Listing, 0, len(*resp.Results)),
	}
	skipped := 0
	for _, raw := range *resp.Results {
		if raw.ID == "" {
			skipped++
			continue
		}
		batch.Listings = append(batch.Listings, raw.toListing())
	}
	if skipped > 0 {
		h.logger.Warn("skipped listings without id", map[string]interface{}{
			"categoryId": input.CategoryID,
			"skipped":    skipped,
		})
	}

	h.toCache(ctx, batch)

	return batch, nil
}

func (h *Handler) searchURL(categoryID string) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(h.config.PageSize))
	q.Set("sort", h.config.Sort)
	q.Set("category", categoryID)

	return fmt.Sprintf("%s/sites/%s/search?%s",
		strings.TrimRight(h.config.BaseURL, "/"), url.PathEscape(h.config.Site), q.Encode())
}

func cacheKey(site, categoryID string) string {
	return "assistant:listings:" + site + ":" + categoryID
}

func (h *Handler) cacheEnabled() bool {
	return h.redis != nil && h.config.CacheTTL > 0
}

func (h *Handler) fromCache(ctx context.Context, categoryID string) (*models.ListingBatch, bool) {
	if !h.cacheEnabled() {
		return nil, false
	}

	val, err := h.redis.Get(ctx, cacheKey(h.config.Site, categoryID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.logger.Warn("listing cache read failed", map[string]interface{}{
				"categoryId": categoryID,
				"error":      err.Error(),
			})
		}
		metrics.ListingCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}

	var batch models.ListingBatch
	if err := json.Unmarshal([]byte(val), &batch); err != nil {
		h.logger.Warn("discarding corrupt listing cache entry", map[string]interface{}{
			"categoryId": categoryID,
			"error":      err.Error(),
		})
		if err := h.redis.Del(ctx, cacheKey(h.config.Site, categoryID)).Err(); err != nil {
			h.logger.Warn("listing cache delete failed", map[string]interface{}{
				"categoryId": categoryID,
				"error":      err.Error(),
			})
		}
		metrics.ListingCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.ListingCacheHits.WithLabelValues("hit").Inc()
	h.logger.Debug("listing cache hit", map[string]interface{}{"categoryId": categoryID})
	return &batch, true
}

func (h *Handler) toCache(ctx context.Context, batch *models.ListingBatch) {
	if !h.cacheEnabled() {
		return
	}

	data, err := json.Marshal(batch)
	if err != nil {
		return
	}
	if err := h.redis.Set(ctx, cacheKey(h.config.Site, batch.CategoryID), data, h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("listing cache write failed", map[string]interface{}{
			"categoryId": batch.CategoryID,
			"error":      err.Error(),
		})
	}
}
