// internal/workers/assistant/fetch-listings/handler_test.go
package fetchlistings

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	commonhttp "buy-assistant/internal/common/http"
	"buy-assistant/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t     *testing.T
	mu    sync.Mutex
	warns []string
}

func (l *TestLogger) Debug(msg string, fields map[string]interface{}) {
	l.t.Logf("DEBUG: %s %v", msg, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
	l.t.Logf("WARN: %s %v", msg, fields)
}

func (l *TestLogger) warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger { return l }

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig(baseURL string) *Config {
	return &Config{
		BaseURL:  baseURL,
		Site:     "MLA",
		PageSize: 50,
		Sort:     "relevance",
		Timeout:  2 * time.Second,
	}
}

type fakeMarketplace struct {
	server *httptest.Server
	calls  int32
	query  atomic.Value
}

func newFakeMarketplace(t *testing.T, status int, body string) *fakeMarketplace {
	t.Helper()
	f := &fakeMarketplace{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.calls, 1)
		f.query.Store(r.URL.Path + "?" + r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(f.server.Close)
	return f
}

const sevenResults = `{"site_id":"MLA","results":[
  {"id":"MLA1","title":"Licuadora Oster","permalink":"https://x/1","thumbnail":"https://t/1","category_id":"123","domain_id":"MLA-BLENDERS"},
  {"id":"MLA2","title":"Batidora","category_id":"123","domain_id":"MLA-MIXERS"},
  {"id":"MLA3","title":"Licuadora Philips","category_id":"123","domain_id":"MLA-BLENDERS"},
  {"id":"MLA4","title":"Vaso repuesto","category_id":"123","domain_id":"MLA-SPARE_PARTS"},
  {"id":"MLA5","title":"Licuadora Atma","category_id":"123","domain_id":"MLA-BLENDERS"},
  {"id":"MLA6","title":"Procesadora","category_id":"123","domain_id":"MLA-FOOD_PROCESSORS"},
  {"id":"MLA7","title":"Licuadora Liliana","category_id":"123","domain_id":"MLA-BLENDERS"}
]}`

func newHandler(t *testing.T, cfg *Config, rdb redis.Cmdable) *Handler {
	return NewHandler(cfg, commonhttp.NewClient(5*time.Second), rdb, &TestLogger{t: t})
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Fetch_Success(t *testing.T) {
	mp := newFakeMarketplace(t, http.StatusOK, sevenResults)
	h := newHandler(t, createTestConfig(mp.server.URL), nil)

	batch, err := h.Fetch(context.Background(), "123")
	require.NoError(t, err)

	assert.Equal(t, "123", batch.CategoryID)
	require.Len(t, batch.Listings, 7)
	assert.Equal(t, models.Listing{
		ItemID:     "MLA1",
		Title:      "Licuadora Oster",
		Permalink:  "https://x/1",
		Thumbnail:  "https://t/1",
		CategoryID: "123",
		DomainID:   "MLA-BLENDERS",
	}, batch.Listings[0])
	// relevance order is preserved
	assert.Equal(t, "MLA7", batch.Listings[6].ItemID)

	assert.Equal(t, "/sites/MLA/search?category=123&limit=50&sort=relevance", mp.query.Load())
}

func TestHandler_Fetch_MissingOptionalFields(t *testing.T) {
	mp := newFakeMarketplace(t, http.StatusOK, `{"results":[{"id":"MLA9"},{"title":"sin id"},{"id":"MLA10","title":null}]}`)
	h := newHandler(t, createTestConfig(mp.server.URL), nil)

	batch, err := h.Fetch(context.Background(), "123")
	require.NoError(t, err)

	require.Len(t, batch.Listings, 2)
	assert.Equal(t, models.Listing{ItemID: "MLA9"}, batch.Listings[0])
	assert.Equal(t, models.Listing{ItemID: "MLA10"}, batch.Listings[1])
}

func TestHandler_Fetch_EmptyPage(t *testing.T) {
	mp := newFakeMarketplace(t, http.StatusOK, `{"results":[]}`)
	h := newHandler(t, createTestConfig(mp.server.URL), nil)

	batch, err := h.Fetch(context.Background(), "123")
	require.NoError(t, err)
	assert.Empty(t, batch.Listings)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Fetch_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "malformed json", status: http.StatusOK, body: `{"results": [ {"id": `},
		{name: "no results key", status: http.StatusOK, body: `{"error":"not_found"}`},
		{name: "server error", status: http.StatusInternalServerError, body: `{"message":"internal"}`},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mp := newFakeMarketplace(t, tt.status, tt.body)
			h := newHandler(t, createTestConfig(mp.server.URL), nil)

			batch, err := h.Fetch(context.Background(), "123")
			assert.Nil(t, batch)
			assert.True(t, errors.Is(err, ErrListingFetchFailed), "got %v", err)
		})
	}
}

func TestHandler_Fetch_NetworkError(t *testing.T) {
	mp := newFakeMarketplace(t, http.StatusOK, sevenResults)
	url := mp.server.URL
	mp.server.Close()

	h := newHandler(t, createTestConfig(url), nil)

	_, err := h.Fetch(context.Background(), "123")
	assert.ErrorIs(t, err, ErrListingFetchFailed)
}

func TestHandler_Fetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	cfg := createTestConfig(server.URL)
	cfg.Timeout = 30 * time.Millisecond
	h := newHandler(t, cfg, nil)

	_, err := h.Fetch(context.Background(), "123")
	assert.ErrorIs(t, err, ErrListingFetchTimeout)
}

// ==========================
// Cache Tests
// ==========================

func TestHandler_Fetch_CachesSuccessfulBatches(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	mp := newFakeMarketplace(t, http.StatusOK, sevenResults)
	cfg := createTestConfig(mp.server.URL)
	cfg.CacheTTL = time.Minute
	h := newHandler(t, cfg, rdb)

	first, err := h.Fetch(context.Background(), "123")
	require.NoError(t, err)
	second, err := h.Fetch(context.Background(), "123")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&mp.calls))
	assert.Equal(t, first, second)

	require.True(t, mr.Exists("assistant:listings:MLA:123"))
	assert.Equal(t, time.Minute, mr.TTL("assistant:listings:MLA:123"))

	var cached models.ListingBatch
	raw, _ := mr.Get("assistant:listings:MLA:123")
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Len(t, cached.Listings, 7)
}

func TestHandler_Fetch_DoesNotCacheFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	mp := newFakeMarketplace(t, http.StatusOK, `not json`)
	cfg := createTestConfig(mp.server.URL)
	cfg.CacheTTL = time.Minute
	h := newHandler(t, cfg, rdb)

	_, err := h.Fetch(context.Background(), "123")
	require.Error(t, err)
	assert.False(t, mr.Exists("assistant:listings:MLA:123"))
}

func TestHandler_Fetch_IgnoresCacheErrors(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("assistant:listings:MLA:123").SetErr(errors.New("connection refused"))

	mp := newFakeMarketplace(t, http.StatusOK, sevenResults)
	cfg := createTestConfig(mp.server.URL)
	cfg.CacheTTL = time.Minute
	h := newHandler(t, cfg, rdb)

	batch, err := h.Fetch(context.Background(), "123")
	require.NoError(t, err)
	assert.Len(t, batch.Listings, 7)
	assert.Equal(t, int32(1), atomic.LoadInt32(&mp.calls))
}

func TestHandler_Fetch_CacheDisabledWithoutTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	mp := newFakeMarketplace(t, http.StatusOK, sevenResults)
	h := newHandler(t, createTestConfig(mp.server.URL), rdb)

	_, err := h.Fetch(context.Background(), "123")
	require.NoError(t, err)
	assert.False(t, mr.Exists("assistant:listings:MLA:123"))
}

func TestHandler_Fetch_DropsCorruptCacheEntry(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("assistant:listings:MLA:123").SetVal(`{"category_id":`)
	mock.ExpectDel("assistant:listings:MLA:123").SetVal(1)

	mp := newFakeMarketplace(t, http.StatusOK, sevenResults)
	cfg := createTestConfig(mp.server.URL)
	cfg.CacheTTL = time.Minute
	log := &TestLogger{t: t}
	h := NewHandler(cfg, commonhttp.NewClient(5*time.Second), rdb, log)

	batch, err := h.Fetch(context.Background(), "123")
	require.NoError(t, err)
	assert.Len(t, batch.Listings, 7)
	assert.Equal(t, int32(1), atomic.LoadInt32(&mp.calls))
	assert.Contains(t, log.warnings(), "discarding corrupt listing cache entry")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Fetch_RefreshesCorruptCacheEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	require.NoError(t, mr.Set("assistant:listings:MLA:123", "garbage"))

	mp := newFakeMarketplace(t, http.StatusOK, sevenResults)
	cfg := createTestConfig(mp.server.URL)
	cfg.CacheTTL = time.Minute
	h := newHandler(t, cfg, rdb)

	_, err := h.Fetch(context.Background(), "123")
	require.NoError(t, err)

	var cached models.ListingBatch
	raw, _ := mr.Get("assistant:listings:MLA:123")
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Len(t, cached.Listings, 7)
}
