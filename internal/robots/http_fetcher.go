package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/rehttp"
)

const robotsTxtPath = "/robots.txt"

// NewHTTPFetcher builds a Fetcher that retrieves https://{domain}/robots.txt
// with userAgent, retrying transient transport errors with an exponential
// jittered backoff the way the teacher's stdHttpFetcher retries page
// fetches, since spec.md leaves no explicit retry policy for robots.txt
// fetches of its own.
func NewHTTPFetcher(userAgent string, timeout time.Duration) Fetcher {
	return newHTTPFetcher(userAgent, timeout, "https")
}

// newHTTPFetcher is the scheme-parameterized constructor exercised
// directly by tests against plain-HTTP httptest servers.
func newHTTPFetcher(userAgent string, timeout time.Duration, scheme string) Fetcher {
	transport := rehttp.NewTransport(
		&http.Transport{},
		rehttp.RetryAll(rehttp.RetryMaxRetries(2), rehttp.RetryTemporaryErr()),
		rehttp.ExpJitterDelay(100*time.Millisecond, 2*time.Second),
	)
	client := &http.Client{Timeout: timeout, Transport: transport}

	return func(ctx context.Context, domain string) (string, bool) {
		target := fmt.Sprintf("%s://%s%s", scheme, domain, robotsTxtPath)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return "", false
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := client.Do(req)
		if err != nil {
			return "", false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", false
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", false
		}
		return string(body), true
	}
}
