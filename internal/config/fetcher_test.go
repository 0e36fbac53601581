package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFetcherConfigDefaults(t *testing.T) {
	os.Setenv("PAGE_FETCHER_CRAWL_DOMAIN", "example.com")
	defer os.Unsetenv("PAGE_FETCHER_CRAWL_DOMAIN")

	cfg, err := LoadFetcherConfig()
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, "localhost:9092", cfg.KafkaBootstrapServers)
	assert.Equal(t, "crawler_queue", cfg.InputQueue)
	assert.Equal(t, "page_fetcher_dlq", cfg.DLQQueue)
	assert.Equal(t, "webpage_log", cfg.WebpageLogTopic)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 2.0, cfg.RetryBackoffBase)
	assert.Equal(t, "OttoBot/1.0", cfg.UserAgent)
	assert.Equal(t, 5, cfg.MaxRedirects)
	assert.Equal(t, 3600, cfg.CacheTTLSeconds)
	assert.Equal(t, 1.0, cfg.RateLimitPerSec)
	assert.Equal(t, 5, cfg.CircuitBreakerFailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.CircuitBreakerInitialBackoff)
	assert.Equal(t, 300*time.Second, cfg.CircuitBreakerMaxBackoff)
	assert.Equal(t, 2.0, cfg.CircuitBreakerMultiplier)
	assert.Equal(t, 86400, cfg.RobotsTxtCacheTTLSeconds)
	assert.Equal(t, 5*time.Second, cfg.PollTimeout)
	assert.Equal(t, 1, cfg.WorkerCount)
}

func TestLoadFetcherConfigRequiresCrawlDomain(t *testing.T) {
	os.Unsetenv("PAGE_FETCHER_CRAWL_DOMAIN")
	_, err := LoadFetcherConfig()
	assert.Error(t, err)
}

func TestLoadFetcherConfigRejectsNegativeRateLimit(t *testing.T) {
	os.Setenv("PAGE_FETCHER_CRAWL_DOMAIN", "example.com")
	os.Setenv("PAGE_FETCHER_RATE_LIMIT_PER_SECOND", "-1")
	defer os.Unsetenv("PAGE_FETCHER_CRAWL_DOMAIN")
	defer os.Unsetenv("PAGE_FETCHER_RATE_LIMIT_PER_SECOND")

	_, err := LoadFetcherConfig()
	assert.Error(t, err)
}
