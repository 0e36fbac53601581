// Package fetcher orchestrates a single URL's fetch: robots gate, rate
// limit, HTTP GET with retry/classification, cache write, and event
// publish, per spec.md §4.7.
package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/codepr/ottocrawl/internal/cache"
	"github.com/codepr/ottocrawl/internal/eventsink"
	"github.com/codepr/ottocrawl/internal/metrics"
	"github.com/codepr/ottocrawl/internal/ratelimiter"
	"github.com/codepr/ottocrawl/internal/robots"
)

const cacheKeyPrefix = "webpage:"

// RobotsChecker is the subset of robots.Checker the fetcher depends on.
type RobotsChecker interface {
	IsAllowed(ctx context.Context, url string) (bool, error)
}

// Fetcher is built once per worker and reused across URLs; robots, cache,
// sink and rate limiter are shared, while the circuit breaker (not held
// here) is per-worker state owned by the driver.
type Fetcher struct {
	cache   cache.Cache
	sink    eventsink.Sink
	limiter ratelimiter.Limiter
	robots  RobotsChecker
	hooks   metrics.Hooks

	topic         string
	cacheTTL      time.Duration
	timeout       time.Duration
	maxRetries    int
	backoffBase   float64
	userAgent     string
	maxRedirects  int

	client      *http.Client
	probeClient *http.Client

	sleep func(ctx context.Context, d time.Duration) error

	log zerolog.Logger
}

// Config bundles the tunables Process needs, mirroring config.FetcherConfig
// to keep this package decoupled from the config package.
type Config struct {
	Topic            string
	CacheTTL         time.Duration
	RequestTimeout   time.Duration
	MaxRetries       int
	RetryBackoffBase float64
	UserAgent        string
	MaxRedirects     int
}

// New builds a Fetcher. hooks defaults to metrics.Noop when nil. logger is
// expected to already carry a "component" field identifying the caller.
func New(c cache.Cache, sink eventsink.Sink, limiter ratelimiter.Limiter, checker RobotsChecker, cfg Config, hooks metrics.Hooks, logger zerolog.Logger) *Fetcher {
	if hooks == nil {
		hooks = metrics.Noop{}
	}
	f := &Fetcher{
		cache:        c,
		sink:         sink,
		limiter:      limiter,
		robots:       checker,
		hooks:        hooks,
		topic:        cfg.Topic,
		cacheTTL:     cfg.CacheTTL,
		timeout:      cfg.RequestTimeout,
		maxRetries:   cfg.MaxRetries,
		backoffBase:  cfg.RetryBackoffBase,
		userAgent:    cfg.UserAgent,
		maxRedirects: cfg.MaxRedirects,
		sleep:        sleepCtx,
		log:          logger,
	}
	f.client = &http.Client{
		Timeout:       cfg.RequestTimeout,
		CheckRedirect: redirectLimiter(cfg.MaxRedirects),
	}
	f.probeClient = &http.Client{
		Timeout:       10 * time.Second,
		CheckRedirect: redirectLimiter(3),
	}
	return f
}

func redirectLimiter(max int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return http.ErrUseLastResponse
		}
		return nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Process fetches url end to end. The returned error is non-nil when ctx
// was cancelled or when an infrastructure call (robots check, rate limiter,
// cache write, event publish) failed; HTTP and transport failures of the
// fetch itself are carried in the Outcome.
func (f *Fetcher) Process(ctx context.Context, url string) (Outcome, error) {
	allowed, err := f.robots.IsAllowed(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetcher: robots check for %s: %w", url, err)
	}
	if !allowed {
		return newSkippedRobots(url), nil
	}

	domain, err := robots.Domain(url)
	if err != nil {
		return newUrlSpecificFailure(0, err.Error()), nil
	}
	if err := f.limiter.Acquire(ctx, domain); err != nil {
		return nil, fmt.Errorf("fetcher: rate limit acquire for %s: %w", domain, err)
	}

	var last Outcome
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			f.hooks.RetryAttempted()
			backoff := time.Duration(math.Pow(f.backoffBase, float64(attempt)) * float64(time.Second))
			if err := f.sleep(ctx, backoff); err != nil {
				return nil, fmt.Errorf("fetcher: retry backoff for %s: %w", url, err)
			}
		}

		start := time.Now()
		result, err := f.doFetch(ctx, url)
		f.hooks.FetchDuration(time.Since(start).Seconds())
		if err != nil {
			return nil, fmt.Errorf("fetcher: attempt %d for %s: %w", attempt, url, err)
		}

		// 5xx and transport errors classify as SiteWideFailure, handled by
		// the driver's circuit breaker rather than retried here.
		switch outcome := result.(type) {
		case WebpageEvent:
			return outcome, nil
		case SiteWideFailure:
			return outcome, nil
		case UrlSpecificFailure:
			return outcome, nil
		}
		last = result
	}
	return last, nil
}

// doFetch performs one GET attempt against url, classifying the result.
func (f *Fetcher) doFetch(ctx context.Context, url string) (Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return newUrlSpecificFailure(0, err.Error()), nil
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return newSiteWideFailure(err.Error()), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return newSiteWideFailure(fmt.Sprintf("HTTP %d %s", resp.StatusCode, resp.Status)), nil
	}
	if resp.StatusCode >= 400 {
		return newUrlSpecificFailure(resp.StatusCode, fmt.Sprintf("HTTP %d %s", resp.StatusCode, resp.Status)), nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return newSiteWideFailure(err.Error()), nil
	}

	f.hooks.ContentSize(len(body))

	cacheKey := cacheKeyFor(url)
	if err := f.cache.Set(ctx, cacheKey, string(body), f.cacheTTL); err != nil {
		return nil, fmt.Errorf("cache set %s: %w", cacheKey, err)
	}

	hash := sha256.Sum256(body)
	event := newWebpageEvent(
		url,
		cacheKey,
		resp.StatusCode,
		resp.Header.Get("Content-Type"),
		len(body),
		hex.EncodeToString(hash[:]),
		time.Now(),
	)

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal webpage event for %s: %w", url, err)
	}
	urlHash := sha256.Sum256([]byte(url))
	if err := f.sink.Send(ctx, f.topic, payload, urlHash[:]); err != nil {
		return nil, fmt.Errorf("publish webpage event for %s: %w", url, err)
	}

	f.log.Debug().Str("url", url).Int("status", resp.StatusCode).Msg("fetched page")
	return event, nil
}

// ProbeDomain issues a single HEAD request to https://{domain}/ with a fixed
// short timeout and redirect cap, independent of the configured request
// timeout/max_redirects, per spec.md §4.7. Used by the driver when the
// circuit breaker is half_open.
func (f *Fetcher) ProbeDomain(ctx context.Context, domain string) bool {
	target := fmt.Sprintf("https://%s/", domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.probeClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

func cacheKeyFor(url string) string {
	hash := sha256.Sum256([]byte(url))
	return cacheKeyPrefix + hex.EncodeToString(hash[:])
}
