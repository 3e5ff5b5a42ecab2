package fetcher

import (
	"log/slog"
	"math/rand"
	"time"

	"resty.dev/v3"
)

const defaultRequestTimeout = 8 * time.Second

// userAgents is a small rotation of browser identities. The upstream
// throttles generic client signatures aggressively.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// UserAgent returns a random browser-like User-Agent string.
func UserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// NewHTTPClient creates an HTTP client bound to one base URL and optionally
// one proxy. Retries are NOT configured here: the fetch client owns the
// attempt loop so each retry can report proxy health and rotate to a
// different egress point.
func NewHTTPClient(baseURL, proxyURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", UserAgent()).
		SetTimeout(timeout)

	if proxyURL != "" {
		client.SetProxy(proxyURL)
		slog.Debug("http client using proxy", "proxy", proxyURL)
	}

	return client
}
