// Package robots implements per-domain robots.txt fetch, parse, cache, and
// allow/deny decisions, per spec.md §4.5.
package robots

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/codepr/ottocrawl/internal/cache"
)

const cacheKeyPrefix = "robots:"

// Fetcher fetches the robots.txt body for domain, returning ok == false on
// any failure (timeout, non-200, transport error). It never returns an
// error: a missing or unfetchable robots.txt is a permissive allow, not a
// failure to propagate.
type Fetcher func(ctx context.Context, domain string) (body string, ok bool)

// Checker answers is-allowed decisions for URLs, caching parsed robots.txt
// bodies per domain. A missing or unfetchable entry is treated as allow-all.
type Checker struct {
	cache     cache.Cache
	fetch     Fetcher
	cacheTTL  time.Duration
	userAgent string
}

// New builds a Checker. fetch is invoked on a cache miss to retrieve a
// domain's robots.txt body.
func New(c cache.Cache, fetch Fetcher, cacheTTL time.Duration, userAgent string) *Checker {
	return &Checker{cache: c, fetch: fetch, cacheTTL: cacheTTL, userAgent: userAgent}
}

// IsAllowed reports whether userAgent may fetch rawURL per the domain's
// robots.txt, fetching and caching the body on a cache miss. An empty
// domain, an unparseable robots.txt body, or a failed fetch are all treated
// as allow — the Fetcher is expected to already be polite via rate
// limiting.
func (c *Checker) IsAllowed(ctx context.Context, rawURL string) (bool, error) {
	domain, err := Domain(rawURL)
	if err != nil {
		return true, nil
	}
	if domain == "" {
		return true, nil
	}

	cacheKey := cacheKeyPrefix + domain
	if body, ok, err := c.cache.Get(ctx, cacheKey); err != nil {
		return false, fmt.Errorf("robots: cache get %s: %w", cacheKey, err)
	} else if ok {
		return c.canFetch(body, rawURL), nil
	}

	if c.fetch == nil {
		return true, nil
	}
	body, ok := c.fetch(ctx, domain)
	if !ok {
		return true, nil
	}
	if err := c.cache.Set(ctx, cacheKey, body, c.cacheTTL); err != nil {
		return false, fmt.Errorf("robots: cache set %s: %w", cacheKey, err)
	}
	return c.canFetch(body, rawURL), nil
}

func (c *Checker) canFetch(body string, rawURL string) bool {
	data, err := robotstxt.FromString(body)
	if err != nil {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return data.FindGroup(c.userAgent).Test(parsed.RequestURI())
}

// Domain extracts the lowercased host portion of rawURL, the natural
// partitioning key for rate limiting, robots, and failure classification.
func Domain(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("robots: parse url %q: %w", rawURL, err)
	}
	return lowerHost(parsed), nil
}

func lowerHost(u *url.URL) string {
	host := u.Host
	if host == "" {
		host = u.Hostname()
	}
	return strings.ToLower(host)
}
