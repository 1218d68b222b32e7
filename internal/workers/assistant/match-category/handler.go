// internal/workers/assistant/match-category/handler.go
package matchcategory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"buy-assistant/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	TaskType = "match-category"
)

var (
	ErrCategoryNotMatched = errors.New("CATEGORY_NOT_MATCHED")
	ErrSearchQueryFailed  = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout      = errors.New("SEARCH_TIMEOUT")
	ErrIndexNotFound      = errors.New("INDEX_NOT_FOUND")
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config   *Config
	client   *elasticsearch.Client
	embedder Embedder
	logger   Logger
}

func NewHandler(config *Config, client *elasticsearch.Client, embedder Embedder, log Logger) *Handler {
	return &Handler{
		config:   config,
		client:   client,
		embedder: embedder,
		logger: log.With(map[string]interface{}{
			"component": TaskType,
			"index":     config.Index,
		}),
	}
}

// Resolve returns the nearest taxonomy entry for a free-text category name.
func (h *Handler) Resolve(ctx context.Context, categoryName string) (*models.ResolvedCategory, error) {
	return h.Execute(ctx, &Input{CategoryName: categoryName})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*models.ResolvedCategory, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*models.ResolvedCategory, error) {
	vector, err := h.embedder.Embed(ctx, input.CategoryName)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: embedding: %v", ErrSearchTimeout, err)
		}
		return nil, err
	}

	hits, err := h.search(ctx, vector)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", ErrSearchTimeout, err)
		}
		return nil, err
	}

	if len(hits.Hits.Hits) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrCategoryNotMatched, input.CategoryName)
	}

	hit := hits.Hits.Hits[0]
	if hit.Score < h.config.MinSimilarity {
		h.logger.Debug("nearest entry below similarity threshold", map[string]interface{}{
			"category":  input.CategoryName,
			"score":     hit.Score,
			"threshold": h.config.MinSimilarity,
		})
		return nil, fmt.Errorf("%w: %q scored %.4f", ErrCategoryNotMatched, input.CategoryName, hit.Score)
	}

	entry := hit.Source
	entry.fillFromDescriptor()
	if entry.CategoryID == "" {
		h.logger.Warn("taxonomy entry without category id", map[string]interface{}{
			"docId": hit.ID,
		})
		return nil, fmt.Errorf("%w: entry %s has no category id", ErrCategoryNotMatched, hit.ID)
	}

	return &models.ResolvedCategory{
		CategoryRaw:     input.CategoryName,
		CategoryID:      entry.CategoryID,
		CategoryName:    entry.CategoryName,
		DomainID:        entry.DomainID,
		SimilarityScore: hit.Score,
	}, nil
}

func (h *Handler) search(ctx context.Context, vector []float64) (*searchResponse, error) {
	body, err := json.Marshal(buildKNNQuery(vector, h.config.NumCandidates))
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", ErrSearchQueryFailed, err)
	}

	req := esapi.SearchRequest{
		Index: []string{h.config.Index},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, h.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, h.config.Index)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchQueryFailed, err)
	}

	return &parsed, nil
}

func buildKNNQuery(vector []float64, numCandidates int) map[string]interface{} {
	if numCandidates < 1 {
		numCandidates = 1
	}
	return map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "embedding",
			"query_vector":   vector,
			"k":              1,
			"num_candidates": numCandidates,
		},
		"_source": []string{"category_id_l3", "category_name_l3", "domain_id", "descriptor"},
		"size":    1,
	}
}
