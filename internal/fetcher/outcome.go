package fetcher

import "time"

// Outcome is the closed set of results Process can return: exactly one of
// WebpageEvent, SkippedRobots, SiteWideFailure, UrlSpecificFailure per
// spec.md §4.7.
type Outcome interface {
	outcomeType() string
}

// WebpageEvent is published to the event sink and represents a successful
// fetch; its body was already written to the cache under CacheKey.
type WebpageEvent struct {
	Type          string    `json:"type"`
	URL           string    `json:"url"`
	CacheKey      string    `json:"cache_key"`
	StatusCode    int       `json:"status_code"`
	ContentType   string    `json:"content_type,omitempty"`
	ContentLength int       `json:"content_length"`
	ContentHash   string    `json:"content_hash"`
	FetchedAt     time.Time `json:"fetched_at"`
}

func (WebpageEvent) outcomeType() string { return "webpage_fetched" }

// SkippedRobots means robots.txt disallowed the URL; it is dropped silently
// by the driver.
type SkippedRobots struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

func (SkippedRobots) outcomeType() string { return "skipped_robots" }

// SiteWideFailure indicates a transport-level error or a 5xx response:
// connection refused, DNS failure, timeout, or server error. The driver
// re-enqueues the URL and feeds the circuit breaker.
type SiteWideFailure struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func (SiteWideFailure) outcomeType() string { return "site_wide" }

// UrlSpecificFailure is a 4xx response or other content-level error; the
// driver dead-letters the URL without retry.
type UrlSpecificFailure struct {
	Type       string `json:"type"`
	StatusCode int    `json:"status_code,omitempty"`
	Reason     string `json:"reason"`
}

func (UrlSpecificFailure) outcomeType() string { return "url_specific" }

func newWebpageEvent(url, cacheKey string, statusCode int, contentType string, contentLength int, contentHash string, fetchedAt time.Time) WebpageEvent {
	return WebpageEvent{
		Type:          "webpage_fetched",
		URL:           url,
		CacheKey:      cacheKey,
		StatusCode:    statusCode,
		ContentType:   contentType,
		ContentLength: contentLength,
		ContentHash:   contentHash,
		FetchedAt:     fetchedAt,
	}
}

func newSkippedRobots(url string) SkippedRobots {
	return SkippedRobots{Type: "skipped_robots", URL: url}
}

func newSiteWideFailure(reason string) SiteWideFailure {
	return SiteWideFailure{Type: "site_wide", Reason: reason}
}

func newUrlSpecificFailure(statusCode int, reason string) UrlSpecificFailure {
	return UrlSpecificFailure{Type: "url_specific", StatusCode: statusCode, Reason: reason}
}
