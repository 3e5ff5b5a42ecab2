package yahoo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"resty.dev/v3"

	"quotefetcher/internal/fetcher"
	"quotefetcher/internal/proxy"
	"quotefetcher/internal/ratelimit"
)

const (
	// DefaultBaseURL is the production quote host.
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	// metaFieldThreshold is the minimum number of populated metadata fields
	// for a quote response to count as useful rather than empty.
	metaFieldThreshold = 3

	defaultMaxAttempts = 3
)

// chartRanges are the historical windows tried in order until one yields a
// non-empty close series.
var chartRanges = []string{"1d", "5d", "1mo"}

// Client fetches quote data for single symbols, rotating through the proxy
// pool and reporting per-attempt outcomes back to it.
type Client struct {
	baseURL     string
	pool        *proxy.Pool
	limiter     *ratelimit.Limiter
	timeout     time.Duration
	maxAttempts int

	mu      sync.Mutex
	clients map[string]*resty.Client
}

// NewClient creates a quote client. The pool may be disabled (empty), in
// which case all requests go out directly.
func NewClient(baseURL string, pool *proxy.Pool, limiter *ratelimit.Limiter, timeout time.Duration, maxAttempts int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if pool == nil {
		pool = proxy.New(nil)
	}
	return &Client{
		baseURL:     baseURL,
		pool:        pool,
		limiter:     limiter,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		clients:     make(map[string]*resty.Client),
	}
}

// clientFor returns the cached HTTP client for a proxy (nil = direct).
func (c *Client) clientFor(px *proxy.Proxy) *resty.Client {
	key := ""
	if px != nil {
		key = px.URL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[key]; ok {
		return client
	}
	client := fetcher.NewHTTPClient(c.baseURL, key, c.timeout)
	c.clients[key] = client
	return client
}

// Fetch implements fetcher.Fetcher. Up to maxAttempts times it acquires a
// proxy, requests metadata and a historical series, then derives a current
// price through the fallback chain. Every attempt that used a proxy reports
// its outcome to the pool.
func (c *Client) Fetch(ctx context.Context, symbol string) *fetcher.Result {
	res := &fetcher.Result{Symbol: symbol}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		res.Attempts = attempt

		px := c.pool.Acquire()
		if px != nil {
			res.ProxyURL = px.URL
		} else {
			res.ProxyURL = ""
		}
		client := c.clientFor(px)

		if ferr := c.attempt(ctx, client, symbol, res); ferr != nil {
			res.AddError(ferr.Error())
			c.pool.MarkFailure(px, ferr.IsAuth())
			c.pool.Rotate()
			if ctx.Err() != nil {
				return res
			}
			continue
		}

		res.Price = derivePrice(res)
		if res.OK() {
			c.pool.MarkSuccess(px)
			return res
		}

		res.AddError(fetcher.NewNoDataError("no usable quote data").Error())
		c.pool.MarkFailure(px, false)
		c.pool.Rotate()
		if ctx.Err() != nil {
			return res
		}
	}

	slog.Debug("fetch exhausted attempts", "symbol", symbol, "attempts", res.Attempts, "errors", len(res.Errors))
	return res
}

// attempt performs one metadata request plus the historical-window fallback
// sequence. A returned error means the attempt is spent and the caller
// should rotate proxies.
func (c *Client) attempt(ctx context.Context, client *resty.Client, symbol string, res *fetcher.Result) *fetcher.FetchError {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fetcher.NewNetworkError(err)
		}
	}

	meta, ferr := c.fetchQuote(ctx, client, symbol)
	if ferr != nil {
		return ferr
	}
	// A sparse response is a data-shape problem, not a proxy problem: keep
	// whatever fields arrived and lean on the historical windows.
	if meta.FieldCount() >= metaFieldThreshold || (res.Meta == nil && meta.FieldCount() > 0) {
		res.Meta = meta
	}

	if len(res.Closes) == 0 {
		for _, rng := range chartRanges {
			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					return fetcher.NewNetworkError(err)
				}
			}
			closes, timestamps, fast, cerr := c.fetchChart(ctx, client, symbol, rng)
			if cerr != nil {
				if cerr.IsAuth() {
					return cerr
				}
				res.AddError(cerr.Error())
				continue
			}
			if fast != nil {
				res.FastPrice = fast
			}
			if len(closes) > 0 {
				res.Closes = closes
				res.Timestamps = timestamps
				break
			}
		}
	}

	return nil
}

// fetchQuote requests the lightweight quote endpoint and converts it into
// the typed metadata struct.
func (c *Client) fetchQuote(ctx context.Context, client *resty.Client, symbol string) (*fetcher.Meta, *fetcher.FetchError) {
	var out quoteResponse

	resp, err := client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbols": symbol,
		}).
		SetResult(&out).
		Get("/v7/finance/quote")

	if err != nil {
		return nil, classifyTransport(err)
	}
	if !resp.IsSuccess() {
		return nil, fetcher.ClassifyHTTPError(resp.StatusCode())
	}
	if apiErr := out.QuoteResponse.Error; apiErr != nil {
		return nil, classifyAPIError(apiErr)
	}
	if len(out.QuoteResponse.Result) == 0 {
		return &fetcher.Meta{}, nil
	}
	return convertQuote(&out.QuoteResponse.Result[0]), nil
}

// fetchChart requests one historical window and returns the non-null close
// series plus the endpoint's own lightweight price.
func (c *Client) fetchChart(ctx context.Context, client *resty.Client, symbol, rng string) ([]float64, []int64, *float64, *fetcher.FetchError) {
	var out chartResponse

	resp, err := client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"interval":       "1d",
			"range":          rng,
			"includePrePost": "false",
		}).
		SetResult(&out).
		Get("/v8/finance/chart/" + symbol)

	if err != nil {
		return nil, nil, nil, classifyTransport(err)
	}
	if !resp.IsSuccess() {
		return nil, nil, nil, fetcher.ClassifyHTTPError(resp.StatusCode())
	}
	if apiErr := out.Chart.Error; apiErr != nil {
		return nil, nil, nil, classifyAPIError(apiErr)
	}
	if len(out.Chart.Result) == 0 {
		return nil, nil, nil, nil
	}

	result := &out.Chart.Result[0]
	fast := result.Meta.RegularMarketPrice

	if len(result.Indicators.Quote) == 0 {
		return nil, nil, fast, nil
	}
	raw := result.Indicators.Quote[0].Close

	closes := make([]float64, 0, len(raw))
	timestamps := make([]int64, 0, len(raw))
	for i, v := range raw {
		if v == nil {
			continue
		}
		closes = append(closes, *v)
		if i < len(result.Timestamp) {
			timestamps = append(timestamps, result.Timestamp[i])
		}
	}
	return closes, timestamps, fast, nil
}

// convertQuote maps the provider payload onto the typed metadata struct.
func convertQuote(q *quoteResult) *fetcher.Meta {
	meta := &fetcher.Meta{
		Currency:                    q.Currency,
		RegularMarketPrice:          q.RegularMarketPrice,
		RegularMarketDayLow:         q.RegularMarketDayLow,
		RegularMarketDayHigh:        q.RegularMarketDayHigh,
		RegularMarketVolume:         q.RegularMarketVolume,
		MarketCap:                   q.MarketCap,
		TrailingPE:                  q.TrailingPE,
		ForwardPE:                   q.ForwardPE,
		DividendYield:               q.DividendYield,
		TrailingAnnualDividendYield: q.TrailingAnnualDividendYield,
		FiftyTwoWeekLow:             q.FiftyTwoWeekLow,
		FiftyTwoWeekHigh:            q.FiftyTwoWeekHigh,
	}
	if q.LongName != nil {
		meta.CompanyName = q.LongName
	} else if q.ShortName != nil {
		meta.CompanyName = q.ShortName
	}
	if q.AverageDailyVolume3Month != nil {
		meta.AverageVolume = q.AverageDailyVolume3Month
	} else if q.AverageDailyVolume10Day != nil {
		meta.AverageVolume = q.AverageDailyVolume10Day
	}
	return meta
}

// derivePrice evaluates the price fallback chain in order: last historical
// close, explicit metadata price, then the lightweight chart price.
func derivePrice(res *fetcher.Result) *float64 {
	sources := []func(*fetcher.Result) *float64{
		historyClose,
		metaPrice,
		fastPrice,
	}
	for _, source := range sources {
		if p := source(res); p != nil {
			return p
		}
	}
	return nil
}

func historyClose(res *fetcher.Result) *float64 {
	if len(res.Closes) == 0 {
		return nil
	}
	last := res.Closes[len(res.Closes)-1]
	return &last
}

func metaPrice(res *fetcher.Result) *float64 {
	if res.Meta == nil {
		return nil
	}
	return res.Meta.RegularMarketPrice
}

func fastPrice(res *fetcher.Result) *float64 {
	return res.FastPrice
}

// classifyTransport maps a transport-level error to the fetch taxonomy.
func classifyTransport(err error) *fetcher.FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return fetcher.NewTimeoutError(err)
	}
	return fetcher.NewNetworkError(err)
}

// classifyAPIError maps an in-body provider error to the fetch taxonomy.
func classifyAPIError(apiErr *apiError) *fetcher.FetchError {
	msg := fmt.Sprintf("%s: %s", apiErr.Code, apiErr.Description)
	if fetcher.IsAuthMessage(msg) {
		return &fetcher.FetchError{
			Type:      fetcher.ErrorTypeAuth,
			Retryable: false,
			Message:   msg,
		}
	}
	return fetcher.NewNoDataError(msg)
}
