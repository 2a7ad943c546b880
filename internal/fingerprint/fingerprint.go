// Package fingerprint builds randomized HTTP header sets that mimic a
// desktop browser, grounded on original_source's fingerprint.py
// (build_headers, ACCEPT_LANGS) and the teacher's config.DefaultUserAgents.
package fingerprint

import (
	"math/rand"
	"strconv"
	"time"
)

// UserAgentProvider returns a user-agent string. It exists so the UA source
// is injectable (spec.md §9): production code uses DefaultUserAgents, tests
// can substitute a fixed list.
type UserAgentProvider func() string

// acceptLanguages mirrors original_source's ACCEPT_LANGS: plausible English
// locale variants a real browser would send.
var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.8,es;q=0.6",
}

// DefaultUserAgents returns a curated fallback pool of realistic desktop
// browser user agents covering Windows, macOS, and Linux on Chromium-class
// browsers. No user-agent generator library is available in the example
// corpus, so this curated list (teacher's config.DefaultUserAgents extended
// with the two original_source entries) is the UA source of record.
func DefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_4) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Builder produces a fresh header map on each call via Build. It holds the
// injectable UA provider so callers can swap it out in tests.
type Builder struct {
	userAgent UserAgentProvider
}

// NewBuilder returns a Builder that draws user agents randomly from agents.
// If agents is empty, DefaultUserAgents is used.
func NewBuilder(agents []string) *Builder {
	if len(agents) == 0 {
		agents = DefaultUserAgents()
	}
	pool := append([]string(nil), agents...)
	return &Builder{
		userAgent: func() string {
			return pool[rand.Intn(len(pool))]
		},
	}
}

// Build returns a fresh set of browser-like headers. Deterministic only in
// the set of headers produced; values vary per call (spec.md §4.1).
func (b *Builder) Build() map[string]string {
	lang := acceptLanguages[rand.Intn(len(acceptLanguages))]
	return map[string]string{
		"User-Agent":                b.userAgent(),
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           lang,
		"Accept-Encoding":           "gzip, deflate, br",
		"Cache-Control":             "no-cache",
		"Pragma":                    "no-cache",
		"DNT":                       "1",
		"Sec-CH-UA":                 `"Chromium";v="124", "Not.A/Brand";v="24"`,
		"Sec-CH-UA-Mobile":          "?0",
		"Sec-CH-UA-Platform":        `"Windows"`,
		"Upgrade-Insecure-Requests": "1",
		"Referer":                   "https://www.google.com/search?q=real+estate+listings",
		"X-Request-Time":            strconv.FormatInt(time.Now().Unix(), 10),
	}
}
