package config

import (
	"fmt"
	"time"
)

// FetcherConfig holds the environment-driven settings for the page fetcher
// binary. Every field has a PAGE_FETCHER_-prefixed environment variable.
type FetcherConfig struct {
	RedisURL              string
	KafkaBootstrapServers string

	InputQueue string
	DLQQueue   string

	WebpageLogTopic string

	RequestTimeout    time.Duration
	MaxRetries        int
	RetryBackoffBase  float64
	UserAgent         string
	MaxRedirects      int
	CacheTTLSeconds   int
	RateLimitPerSec   float64

	CircuitBreakerFailureThreshold int
	CircuitBreakerInitialBackoff   time.Duration
	CircuitBreakerMaxBackoff       time.Duration
	CircuitBreakerMultiplier       float64

	RobotsTxtCacheTTLSeconds int

	PollTimeout time.Duration
	CrawlDomain string

	WorkerCount int
}

// LoadFetcherConfig reads PAGE_FETCHER_* environment variables, applying the
// defaults from spec.md §6. It returns an error for configuration that is
// invalid rather than merely absent (absent values fall back to defaults).
func LoadFetcherConfig() (*FetcherConfig, error) {
	cfg := &FetcherConfig{
		RedisURL:              GetEnv("PAGE_FETCHER_REDIS_URL", "redis://localhost:6379"),
		KafkaBootstrapServers: GetEnv("PAGE_FETCHER_KAFKA_BOOTSTRAP_SERVERS", "localhost:9092"),

		InputQueue: GetEnv("PAGE_FETCHER_INPUT_QUEUE", "crawler_queue"),
		DLQQueue:   GetEnv("PAGE_FETCHER_DLQ_QUEUE", "page_fetcher_dlq"),

		WebpageLogTopic: GetEnv("PAGE_FETCHER_WEBPAGE_LOG_TOPIC", "webpage_log"),

		RequestTimeout:   GetEnvAsSeconds("PAGE_FETCHER_REQUEST_TIMEOUT_SECONDS", 30*time.Second),
		MaxRetries:       GetEnvAsInt("PAGE_FETCHER_MAX_RETRIES", 3),
		RetryBackoffBase: GetEnvAsFloat("PAGE_FETCHER_RETRY_BACKOFF_BASE_SECONDS", 2.0),
		UserAgent:        GetEnv("PAGE_FETCHER_USER_AGENT", "OttoBot/1.0"),
		MaxRedirects:     GetEnvAsInt("PAGE_FETCHER_MAX_REDIRECTS", 5),
		CacheTTLSeconds:  GetEnvAsInt("PAGE_FETCHER_CACHE_TTL_SECONDS", 3600),
		RateLimitPerSec:  GetEnvAsFloat("PAGE_FETCHER_RATE_LIMIT_PER_SECOND", 1.0),

		CircuitBreakerFailureThreshold: GetEnvAsInt("PAGE_FETCHER_CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5),
		CircuitBreakerInitialBackoff:   GetEnvAsSeconds("PAGE_FETCHER_CIRCUIT_BREAKER_INITIAL_BACKOFF_SECONDS", 30*time.Second),
		CircuitBreakerMaxBackoff:       GetEnvAsSeconds("PAGE_FETCHER_CIRCUIT_BREAKER_MAX_BACKOFF_SECONDS", 300*time.Second),
		CircuitBreakerMultiplier:       GetEnvAsFloat("PAGE_FETCHER_CIRCUIT_BREAKER_BACKOFF_MULTIPLIER", 2.0),

		RobotsTxtCacheTTLSeconds: GetEnvAsInt("PAGE_FETCHER_ROBOTS_TXT_CACHE_TTL_SECONDS", 86400),

		PollTimeout: GetEnvAsSeconds("PAGE_FETCHER_POLL_TIMEOUT_SECONDS", 5*time.Second),
		CrawlDomain: GetEnv("PAGE_FETCHER_CRAWL_DOMAIN", ""),

		WorkerCount: GetEnvAsInt("PAGE_FETCHER_WORKER_COUNT", 1),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *FetcherConfig) validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("config: PAGE_FETCHER_REDIS_URL must not be empty")
	}
	if c.KafkaBootstrapServers == "" {
		return fmt.Errorf("config: PAGE_FETCHER_KAFKA_BOOTSTRAP_SERVERS must not be empty")
	}
	if c.CrawlDomain == "" {
		return fmt.Errorf("config: PAGE_FETCHER_CRAWL_DOMAIN must not be empty")
	}
	if c.RateLimitPerSec < 0 {
		return fmt.Errorf("config: PAGE_FETCHER_RATE_LIMIT_PER_SECOND must be >= 0, got %f", c.RateLimitPerSec)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("config: PAGE_FETCHER_WORKER_COUNT must be > 0, got %d", c.WorkerCount)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: PAGE_FETCHER_MAX_RETRIES must be >= 0, got %d", c.MaxRetries)
	}
	return nil
}
