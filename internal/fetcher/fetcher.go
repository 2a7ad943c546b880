// Package fetcher issues polite, retrying HTTPS GETs through a chosen
// proxy and header set, grounded on original_source's fetch_url and the
// teacher's runWithRetry loop shape (chromedp_scraper.go), adapted to the
// linear backoff spec.md §4.3 pins (0.5 * (attempt+1) seconds, not the
// teacher's exponential schedule).
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http2"
)

// MaxAttempts is the default total number of GET attempts per spec.md §4.3,
// used when RETRY_LIMIT isn't configured (or is configured to <= 0).
const MaxAttempts = 5

// retryableStatus is the set of HTTP statuses that trigger a retry.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Result is the outcome of a successful fetch.
type Result struct {
	Status   int
	Body     string
	FinalURL string
}

// Client issues direct GETs over a shared *http.Client, so direct requests
// reuse one connection pool across all workers. A proxied Fetch builds a
// new transport for that call (see clientFor), so proxied connections are
// not reused across Fetch calls. HTTP/2 is requested via
// http2.ConfigureTransport when the transport supports it.
type Client struct {
	httpClient *http.Client
	retryLimit int
}

// NewClient builds a Client whose underlying transport has HTTP/2 enabled
// where possible. retryLimit is the RETRY_LIMIT config value (spec.md's
// config table); a value <= 0 falls back to MaxAttempts.
func NewClient(retryLimit int) *Client {
	if retryLimit <= 0 {
		retryLimit = MaxAttempts
	}
	transport := &http.Transport{}
	// Best-effort: some environments construct a transport that http2
	// cannot configure (e.g. one with TLSNextProto already populated);
	// ignore the error and fall back to HTTP/1.1 in that case.
	_ = http2.ConfigureTransport(transport)
	return &Client{
		httpClient: &http.Client{
			Transport: transport,
		},
		retryLimit: retryLimit,
	}
}

// sleep is swapped out in tests to avoid real delays.
var sleep = time.Sleep

// Fetch issues a GET to targetURL via the given proxy URL (empty string
// means direct) with the given headers and per-request timeout, retrying
// up to c.retryLimit times on transient statuses or network errors with a
// linear 0.5*(attempt+1)s backoff (spec.md §4.3). Attempts stop early if
// ctx is cancelled.
func (c *Client) Fetch(ctx context.Context, targetURL, proxyURL string, headers map[string]string, timeout time.Duration) (*Result, error) {
	httpClient := c.clientFor(proxyURL, timeout)

	var lastErr error
	for attempt := 0; attempt < c.retryLimit; attempt++ {
		result, retryable, err := c.attempt(ctx, httpClient, targetURL, headers)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			return nil, lastErr
		}

		// Sleep on every retryable failure, including the last attempt,
		// matching original_source's fetch_url (sleep(0.5*(attempt+1))
		// inside the retry branch before range(MaxAttempts) exhausts) and
		// spec.md §8's exhaustion law: total sleep is
		// 0.5+1.0+1.5+2.0+2.5 = 7.5s.
		delay := time.Duration(float64(attempt+1)*0.5*1000) * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			sleep(delay)
		}
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, httpClient *http.Client, targetURL string, headers map[string]string) (*Result, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("fetcher: new request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("fetcher: do request: %w", err)
	}
	defer resp.Body.Close()

	if retryableStatus[resp.StatusCode] {
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("fetcher: retryable status %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, false, fmt.Errorf("fetcher: non-retryable status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("fetcher: read body: %w", err)
	}

	finalURL := targetURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &Result{Status: resp.StatusCode, Body: string(body), FinalURL: finalURL}, false, nil
}

// clientFor returns an *http.Client configured for the given proxy (or a
// direct client when proxyURL is empty) and timeout. Redirects are
// followed using the stdlib default policy.
func (c *Client) clientFor(proxyURL string, timeout time.Duration) *http.Client {
	if proxyURL == "" {
		cl := *c.httpClient
		cl.Timeout = timeout
		return &cl
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		cl := *c.httpClient
		cl.Timeout = timeout
		return &cl
	}

	transport := &http.Transport{Proxy: http.ProxyURL(parsed)}
	_ = http2.ConfigureTransport(transport)
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
