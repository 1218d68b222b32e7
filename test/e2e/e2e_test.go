// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buy-assistant/internal/app"
	"buy-assistant/internal/common/config"
	"buy-assistant/internal/common/database"
	"buy-assistant/internal/common/logger"
	"buy-assistant/internal/models"
	buildcarousels "buy-assistant/internal/workers/assistant/build-carousels"
)

// ==========================
// Fake upstreams
// ==========================

// vectorByName encodes each category name as a one-dimensional embedding so
// the fake index can answer by the first vector component.
var vectorByName = map[string]float64{
	"Licuadoras": 1,
	"Batidoras":  2,
	"Sartenes":   3,
	"Heladeras":  99,
}

const kitchenPlan = "```json\n" + `{
  "message": "¡Hola! Te ayudo a equipar tu cocina",
  "categories": [
    {"name": "Licuadoras", "questions": ["¿Para cuántas personas?", "¿Vaso de vidrio?"]},
    {"name": "Batidoras", "questions": ["¿De mano o de pie?", "¿Qué potencia?"]},
    {"name": "Sartenes", "questions": ["¿Antiadherente?", "¿Para inducción?"]},
    {"name": "Heladeras", "questions": ["¿No frost?", "¿Con freezer?"]}
  ]
}` + "\n```"

type fakeOpenAI struct {
	server      *httptest.Server
	planContent string
}

func newFakeOpenAI(t *testing.T, planContent string) *fakeOpenAI {
	t.Helper()
	f := &fakeOpenAI{planContent: planContent}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"id":      "chatcmpl-e2e",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]interface{}{"role": "assistant", "content": f.planContent},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		vector, ok := vectorByName[req.Input]
		if !ok {
			vector = 99
		}
		resp := map[string]interface{}{
			"object": "list",
			"model":  "text-embedding-ada-002",
			"data": []map[string]interface{}{{
				"object":    "embedding",
				"index":     0,
				"embedding": []float64{vector},
			}},
			"usage": map[string]interface{}{"prompt_tokens": 1, "total_tokens": 1},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// taxonomy hits keyed by the first embedding component.
var taxonomyHits = map[float64]string{
	1: `{"_id":"1","_score":0.93,"_source":{"category_id_l3":"MLA123","category_name_l3":"Licuadoras","domain_id":"MLA-BLENDERS"}}`,
	2: `{"_id":"2","_score":0.88,"_source":{"category_id_l3":"MLA123","category_name_l3":"Batidoras","domain_id":"MLA-MIXERS"}}`,
	3: `{"_id":"3","_score":0.81,"_source":{"category_id_l3":"MLA456","category_name_l3":"Sartenes","domain_id":"MLA-PANS"}}`,
}

func newFakeES(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		if !strings.HasSuffix(r.URL.Path, "/_search") {
			_, _ = io.WriteString(w, `{"version":{"number":"8.11.0"},"tagline":"You Know, for Search"}`)
			return
		}

		var query struct {
			KNN struct {
				QueryVector []float64 `json:"query_vector"`
			} `json:"knn"`
		}
		_ = json.NewDecoder(r.Body).Decode(&query)

		hits := ""
		if len(query.KNN.QueryVector) > 0 {
			hits = taxonomyHits[query.KNN.QueryVector[0]]
		}
		total := 0
		if hits != "" {
			total = 1
		}
		fmt.Fprintf(w, `{"took":1,"timed_out":false,"hits":{"total":{"value":%d,"relation":"eq"},"hits":[%s]}}`, total, hits)
	}))
	t.Cleanup(server.Close)
	return server.URL
}

type fakeMarketplace struct {
	server *httptest.Server
	mu     sync.Mutex
	calls  map[string]int
}

func newFakeMarketplace(t *testing.T) *fakeMarketplace {
	t.Helper()
	f := &fakeMarketplace{calls: map[string]int{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		f.mu.Lock()
		f.calls[category]++
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch category {
		case "MLA123":
			_, _ = io.WriteString(w, `{"results":[
			  {"id":"I1","title":"Licuadora Oster","permalink":"https://x/I1","thumbnail":"https://t/I1","category_id":"MLA123","domain_id":"MLA-BLENDERS"},
			  {"id":"I2","title":"Batidora Philips","category_id":"MLA123","domain_id":"MLA-MIXERS"},
			  {"id":"I3","title":"Licuadora Liliana","category_id":"MLA123","domain_id":"MLA-BLENDERS"},
			  {"id":"I4","title":"Repuesto vaso","category_id":"MLA123","domain_id":"MLA-SPARE-PARTS"}
			]}`)
		default:
			// truncated body for every other category
			_, _ = io.WriteString(w, `{"results":[{"id":"X1",`)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeMarketplace) callsFor(category string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[category]
}

// ==========================
// Harness
// ==========================

type harness struct {
	app         *app.App
	server      *httptest.Server
	marketplace *fakeMarketplace
}

func newHarness(t *testing.T, planContent string, withCache bool) *harness {
	t.Helper()

	openaiFake := newFakeOpenAI(t, planContent)
	esURL := newFakeES(t)
	marketplace := newFakeMarketplace(t)

	cfg := &config.Config{}
	cfg.App.Name = "buy-assistant"
	cfg.Assistant = config.AssistantConfig{
		CarouselsToBuild:    4,
		QuestionsByCategory: 2,
		ItemsByCarousel:     5,
		NumCandidates:       50,
		FetchConcurrency:    4,
		MatchTimeout:        5000,
	}
	cfg.Database.Elasticsearch = config.ElasticsearchConfig{
		Addresses:     []string{esURL},
		TaxonomyIndex: "meli_category_tree",
	}
	cfg.APIs.OpenAI.BaseURL = openaiFake.server.URL + "/"
	cfg.APIs.OpenAI.APIKey = "sk-test"
	cfg.APIs.OpenAI.Model = "gpt-4"
	cfg.APIs.OpenAI.EmbeddingModel = "text-embedding-ada-002"
	cfg.APIs.OpenAI.Timeout = 5000
	cfg.APIs.Marketplace.BaseURL = marketplace.server.URL
	cfg.APIs.Marketplace.Site = "MLA"
	cfg.APIs.Marketplace.PageSize = 50
	cfg.APIs.Marketplace.Sort = "relevance"
	cfg.APIs.Marketplace.Timeout = 5000
	cfg.Workers = map[string]config.WorkerConfig{
		config.WorkerBuildCarousels: {Enabled: true, MaxJobsActive: 1, Timeout: 10000, MaxRetries: 3},
	}

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err)

	var rdb *database.RedisClient
	if withCache {
		mr := miniredis.RunT(t)
		cfg.Database.Redis = config.RedisConfig{Enabled: true, Address: mr.Addr(), ListingsTTL: 60000}
		rdb = database.NewRedis(cfg.Database.Redis)
		t.Cleanup(func() { _ = rdb.Close() })
	}

	a := app.New(app.Deps{
		Config:        cfg,
		Logger:        logger.NewTestLogger(t),
		Elasticsearch: es,
		Redis:         rdb,
	})

	srv := httptest.NewServer(a.Server.Routes())
	t.Cleanup(srv.Close)

	return &harness{app: a, server: srv, marketplace: marketplace}
}

func (h *harness) chat(t *testing.T, message string) (int, []byte) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"message": message})
	resp, err := http.Post(h.server.URL+"/chat", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

// ==========================
// Scenarios
// ==========================

func TestE2E_ChatBuildsCarousels(t *testing.T) {
	h := newHarness(t, kitchenPlan, false)

	status, data := h.chat(t, "quiero equipar mi cocina")
	require.Equal(t, http.StatusOK, status, string(data))

	var resp models.Response
	require.NoError(t, json.Unmarshal(data, &resp))

	assert.Equal(t, "¡Hola! Te ayudo a equipar tu cocina", resp.Message)

	// Heladeras is not matched and Sartenes listings fail to decode
	require.Len(t, resp.Carousels, 2)

	blenders := resp.Carousels[0]
	assert.Equal(t, "Licuadoras", blenders.CategoryRaw)
	assert.Equal(t, "MLA123", blenders.CategoryID)
	assert.Equal(t, "MLA-BLENDERS", blenders.DomainID)
	assert.InDelta(t, 0.93, blenders.SimilarityScore, 1e-9)
	require.Len(t, blenders.Items, 2)
	assert.Equal(t, "I1", blenders.Items[0].ItemID)
	assert.Equal(t, "https://x/I1", blenders.Items[0].Permalink)
	assert.Equal(t, "I3", blenders.Items[1].ItemID)
	assert.Equal(t, []string{"¿Para cuántas personas?", "¿Vaso de vidrio?"}, blenders.Questions)

	mixers := resp.Carousels[1]
	assert.Equal(t, "Batidoras", mixers.CategoryRaw)
	require.Len(t, mixers.Items, 1)
	assert.Equal(t, "I2", mixers.Items[0].ItemID)

	// one search per distinct category id
	assert.Equal(t, 1, h.marketplace.callsFor("MLA123"))
	assert.Equal(t, 1, h.marketplace.callsFor("MLA456"))
}

func TestE2E_ListingCacheAvoidsSecondSearch(t *testing.T) {
	h := newHarness(t, kitchenPlan, true)

	for i := 0; i < 2; i++ {
		status, data := h.chat(t, "quiero equipar mi cocina")
		require.Equal(t, http.StatusOK, status, string(data))

		var resp models.Response
		require.NoError(t, json.Unmarshal(data, &resp))
		assert.Len(t, resp.Carousels, 2)
	}

	assert.Equal(t, 1, h.marketplace.callsFor("MLA123"))
	// failed fetches are never cached
	assert.Equal(t, 2, h.marketplace.callsFor("MLA456"))
}

func TestE2E_PlannerGarbageIsBadGateway(t *testing.T) {
	h := newHarness(t, "lo siento, no puedo ayudarte", false)

	status, data := h.chat(t, "hola")
	assert.Equal(t, http.StatusBadGateway, status)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "PLANNER_FAILURE", body.Error.Code)
	assert.NotContains(t, string(data), "carousels")
}

func TestE2E_InvalidRequest(t *testing.T) {
	h := newHarness(t, kitchenPlan, false)

	resp, err := http.Post(h.server.URL+"/chat", "application/json", strings.NewReader(`{"message":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestE2E_JobSurfaceMatchesHTTP(t *testing.T) {
	h := newHarness(t, kitchenPlan, false)

	out, err := h.app.JobHandler.Execute(context.Background(), &buildcarousels.Input{Message: "quiero equipar mi cocina"})
	require.NoError(t, err)

	require.Len(t, out.Response.Carousels, 2)
	assert.Equal(t, "Licuadoras", out.Response.Carousels[0].CategoryRaw)
	assert.Equal(t, "Batidoras", out.Response.Carousels[1].CategoryRaw)

	vars, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(vars), `"response":{"message"`)
}

func TestE2E_Ready(t *testing.T) {
	h := newHarness(t, kitchenPlan, true)

	resp, err := http.Get(h.server.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
