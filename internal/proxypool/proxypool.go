// Package proxypool maintains health-scored egress proxy endpoints,
// grounded on original_source/scrapers/realtor/worker/proxy.py
// (ProxyPool.mark_success/mark_failure/select_proxy).
package proxypool

import (
	"math/rand"
	"sync"
	"time"
)

const (
	successDelta   = 0.05
	failureDelta   = 0.2
	minSelectScore = 0.05
	minWeight      = 0.01
	cooldownMinS   = 5.0
	cooldownMaxS   = 20.0
)

type endpoint struct {
	url           string
	score         float64
	cooldownUntil time.Time
}

// Pool holds zero or more egress endpoints, scored and cooled independently.
// No goroutine ever blocks on the pool: every operation is a brief,
// mutex-guarded read-modify-write (spec.md §4.2).
type Pool struct {
	mu        sync.Mutex
	baseURL   string
	hasBase   bool
	endpoints []*endpoint
}

// Endpoint is an opaque handle returned by SelectEndpoint, passed back to
// MarkSuccess/MarkFailure. The pool is the only mutator of its state.
type Endpoint struct {
	ep *endpoint
}

// NewPool constructs a pool from an optional base proxy URL. If baseURL is
// empty, the pool is empty and Select returns ("", false) — the fetcher
// then makes direct requests. If present, the pool holds one endpoint
// today; the design admits extension to multiple gateways by constructing
// Pool with more entries (e.g. NewPoolWithEndpoints), and Select's weighted
// sampling already operates over the full slice.
func NewPool(baseURL string) *Pool {
	p := &Pool{baseURL: baseURL, hasBase: baseURL != ""}
	if p.hasBase {
		p.endpoints = []*endpoint{{url: baseURL, score: 1.0}}
	}
	return p
}

// NewPoolWithEndpoints builds a pool from an explicit list of gateway URLs,
// each starting at score 1.0, for providers that expose multiple egress
// gateways. baseURL is the fallback returned when no endpoint currently
// qualifies.
func NewPoolWithEndpoints(baseURL string, gatewayURLs []string) *Pool {
	p := &Pool{baseURL: baseURL, hasBase: baseURL != ""}
	for _, u := range gatewayURLs {
		p.endpoints = append(p.endpoints, &endpoint{url: u, score: 1.0})
	}
	return p
}

// SelectEndpoint picks among endpoints with cooldown_until <= now and
// score > 0.05 by weighted random sampling (weight = max(0.01, score)). If
// none qualify, it returns the base proxy URL unconditionally — fallback
// through a cooling endpoint is preferred over a direct request once a pool
// exists. ok is false only when the pool has no base URL configured at all,
// in which case the fetcher should go direct.
func (p *Pool) SelectEndpoint() (url string, ep Endpoint, ok bool) {
	if !p.hasBase {
		return "", Endpoint{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	var available []*endpoint
	var weights []float64
	var total float64
	for _, e := range p.endpoints {
		if e.cooldownUntil.After(now) || e.score <= minSelectScore {
			continue
		}
		w := maxf(minWeight, e.score)
		available = append(available, e)
		weights = append(weights, w)
		total += w
	}

	if len(available) == 0 {
		return p.baseURL, Endpoint{}, true
	}

	pick := rand.Float64() * total
	var cum float64
	chosen := available[len(available)-1]
	for i, e := range available {
		cum += weights[i]
		if pick < cum {
			chosen = e
			break
		}
	}
	return chosen.url, Endpoint{ep: chosen}, true
}

// Select is a convenience wrapper over SelectEndpoint for callers that only
// need the URL.
func (p *Pool) Select() (url string, ok bool) {
	url, _, ok = p.SelectEndpoint()
	return url, ok
}

// MarkSuccess raises an endpoint's health score, capped at 1.0. A no-op
// when ep carries no backing endpoint (e.g. the unconditional base-URL
// fallback path, which names no specific endpoint to credit).
func (p *Pool) MarkSuccess(e Endpoint) {
	if e.ep == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e.ep.score = minf(1.0, e.ep.score+successDelta)
}

// MarkFailure lowers an endpoint's health score, floored at 0.0, and puts it
// into a random 5-20s cooldown.
func (p *Pool) MarkFailure(e Endpoint) {
	if e.ep == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e.ep.score = maxf(0.0, e.ep.score-failureDelta)
	jitter := cooldownMinS + rand.Float64()*(cooldownMaxS-cooldownMinS)
	e.ep.cooldownUntil = time.Now().Add(time.Duration(jitter * float64(time.Second)))
}

// Score returns an endpoint's current health score, for tests/metrics.
func (e Endpoint) Score() float64 {
	if e.ep == nil {
		return 0
	}
	return e.ep.score
}

// CooldownUntil returns the endpoint's current cooldown deadline.
func (e Endpoint) CooldownUntil() time.Time {
	if e.ep == nil {
		return time.Time{}
	}
	return e.ep.cooldownUntil
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
