package fingerprint

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestBuild_RequiredHeadersPresent(t *testing.T) {
	b := NewBuilder(nil)
	h := b.Build()

	for _, key := range []string{"User-Agent", "Accept", "Accept-Language", "Referer", "X-Request-Time"} {
		if h[key] == "" {
			t.Errorf("missing required header %q", key)
		}
	}
}

func TestBuild_XRequestTimeIsRecentEpochSeconds(t *testing.T) {
	b := NewBuilder(nil)
	h := b.Build()

	ts, err := strconv.ParseInt(h["X-Request-Time"], 10, 64)
	if err != nil {
		t.Fatalf("X-Request-Time not an integer: %v", err)
	}
	now := time.Now().Unix()
	if diff := now - ts; diff < -5 || diff > 5 {
		t.Errorf("X-Request-Time %d not within ±5s of now %d", ts, now)
	}
}

func TestBuild_UsesProvidedUserAgentPool(t *testing.T) {
	agents := []string{"only-one-agent"}
	b := NewBuilder(agents)
	for i := 0; i < 5; i++ {
		h := b.Build()
		if h["User-Agent"] != "only-one-agent" {
			t.Fatalf("User-Agent = %q, want only-one-agent", h["User-Agent"])
		}
	}
}

func TestBuild_VariesAcrossCalls(t *testing.T) {
	b := NewBuilder(DefaultUserAgents())
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		h := b.Build()
		seen[h["User-Agent"]] = true
	}
	if len(seen) < 2 {
		t.Error("expected user agent to vary across many calls")
	}
}

func TestDefaultUserAgents_CoversThreePlatforms(t *testing.T) {
	agents := DefaultUserAgents()
	if len(agents) < 3 {
		t.Fatalf("expected at least 3 fallback user agents, got %d", len(agents))
	}
	for _, platform := range []string{"Windows", "Macintosh", "Linux"} {
		found := false
		for _, ua := range agents {
			if strings.Contains(ua, platform) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no fallback user agent for platform %q", platform)
		}
	}
}
