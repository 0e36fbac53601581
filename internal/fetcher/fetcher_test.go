package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codepr/ottocrawl/internal/cache"
	"github.com/codepr/ottocrawl/internal/eventsink"
	"github.com/codepr/ottocrawl/internal/metrics"
	"github.com/codepr/ottocrawl/internal/ratelimiter"
)

type alwaysAllowed struct{}

func (alwaysAllowed) IsAllowed(context.Context, string) (bool, error) { return true, nil }

type alwaysDisallowed struct{}

func (alwaysDisallowed) IsAllowed(context.Context, string) (bool, error) { return false, nil }

func testFetcher(cfg Config) (*Fetcher, *cache.MemoryCache, *eventsink.MemorySink) {
	c := cache.NewMemoryCache()
	s := eventsink.NewMemorySink()
	limiter := ratelimiter.NewMemoryLimiter(0)
	f := New(c, s, limiter, alwaysAllowed{}, cfg, metrics.Noop{}, zerolog.Nop())
	return f, c, s
}

func defaultConfig() Config {
	return Config{
		Topic:            "webpage_log",
		CacheTTL:         time.Hour,
		RequestTimeout:   5 * time.Second,
		MaxRetries:       2,
		RetryBackoffBase: 2,
		UserAgent:        "test-agent",
		MaxRedirects:     5,
	}
}

func TestProcessSkipsWhenRobotsDisallow(t *testing.T) {
	c := cache.NewMemoryCache()
	s := eventsink.NewMemorySink()
	limiter := ratelimiter.NewMemoryLimiter(0)
	f := New(c, s, limiter, alwaysDisallowed{}, defaultConfig(), metrics.Noop{}, zerolog.Nop())

	outcome, err := f.Process(context.Background(), "https://example.com/blocked")
	require.NoError(t, err)
	skipped, ok := outcome.(SkippedRobots)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/blocked", skipped.URL)
}

func TestProcessSuccessCachesAndPublishes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>hello</html>"))
	}))
	defer server.Close()

	f, c, s := testFetcher(defaultConfig())
	outcome, err := f.Process(context.Background(), server.URL+"/page")
	require.NoError(t, err)

	event, ok := outcome.(WebpageEvent)
	require.True(t, ok)
	assert.Equal(t, 200, event.StatusCode)
	assert.Equal(t, "text/html", event.ContentType)
	assert.NotEmpty(t, event.ContentHash)

	body, found, err := c.Get(context.Background(), event.CacheKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "<html>hello</html>", body)

	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "webpage_log", records[0].Topic)
	var published WebpageEvent
	require.NoError(t, json.Unmarshal(records[0].Value, &published))
	assert.Equal(t, event.URL, published.URL)
}

func Test4xxIsUrlSpecificFailureNoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f, _, _ := testFetcher(defaultConfig())
	outcome, err := f.Process(context.Background(), server.URL+"/missing")
	require.NoError(t, err)

	failure, ok := outcome.(UrlSpecificFailure)
	require.True(t, ok)
	assert.Equal(t, 404, failure.StatusCode)
	assert.Equal(t, 1, attempts, "4xx must not be retried")
}

func Test5xxIsSiteWideFailureNoInProcessRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := defaultConfig()
	cfg.MaxRetries = 2
	f, _, _ := testFetcher(cfg)
	f.sleep = func(context.Context, time.Duration) error { return nil }

	outcome, err := f.Process(context.Background(), server.URL+"/flaky")
	require.NoError(t, err)

	_, ok := outcome.(SiteWideFailure)
	require.True(t, ok, "5xx must classify as a site-wide failure, handled by the driver's circuit breaker, not retried in-process")
	assert.Equal(t, 1, attempts)
}

func TestProcessTransportErrorIsSiteWideFailure(t *testing.T) {
	f, _, _ := testFetcher(defaultConfig())
	f.sleep = func(context.Context, time.Duration) error { return nil }

	outcome, err := f.Process(context.Background(), "http://127.0.0.1:1/unreachable")
	require.NoError(t, err)
	_, ok := outcome.(SiteWideFailure)
	assert.True(t, ok)
}

func TestProcessSuccessRecordsDurationAndContentSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>hello</html>"))
	}))
	defer server.Close()

	c := cache.NewMemoryCache()
	s := eventsink.NewMemorySink()
	limiter := ratelimiter.NewMemoryLimiter(0)
	rec := metrics.NewRecorder()
	f := New(c, s, limiter, alwaysAllowed{}, defaultConfig(), rec, zerolog.Nop())

	_, err := f.Process(context.Background(), server.URL+"/page")
	require.NoError(t, err)

	require.Len(t, rec.FetchDurations, 1)
	require.Len(t, rec.ContentSizes, 1)
	assert.Equal(t, len("<html>hello</html>"), rec.ContentSizes[0])
	assert.Equal(t, 0, rec.RetriesAttempted, "no retry without a preceding looped attempt")
}

func TestProbeDomainTargetsHTTPS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f, _, _ := testFetcher(defaultConfig())
	ok := f.ProbeDomain(context.Background(), server.Listener.Addr().String())
	// The probe always dials https://{domain}/ so against a plain-http
	// httptest server it must fail to connect, not panic.
	assert.False(t, ok)
}
