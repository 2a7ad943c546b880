// Package extractor turns fetched HTML into a ListingRecord, running a
// rules-first JSON-LD pass and falling back to an LLM only when the rules
// pass comes back empty. Grounded on original_source's
// parse_listing_with_rules / call_gemini / handle_message.
package extractor

import (
	"context"
	"time"

	"github.com/rhan/realtor-worker-fleet/internal/llmclient"
	"github.com/rhan/realtor-worker-fleet/internal/model"
)

const (
	confidenceWithFields = 0.8
	confidenceEmpty      = 0.4
)

// Extractor runs the rules+LLM pipeline for one detail page.
type Extractor struct {
	LLM llmclient.Client
}

// New builds an Extractor. llm may be llmclient.NoopClient{} when no API
// key is configured; ApplyLLMFallback treats that identically to an LLM
// call failure.
func New(llm llmclient.Client) *Extractor {
	if llm == nil {
		llm = llmclient.NoopClient{}
	}
	return &Extractor{LLM: llm}
}

// Extract parses html fetched from url into a finalized ListingRecord:
// rules pass, then LLM fallback iff the rules pass left every fixed field
// unset, then id/hash/timestamp/parser_used/confidence.
func (x *Extractor) Extract(ctx context.Context, url, html string) *model.ListingRecord {
	rec := ParseRules(html)

	usedLLM := false
	if !rec.AnyFieldSet() {
		before := rec.AnyFieldSet()
		ApplyLLMFallback(ctx, x.LLM, html, rec)
		usedLLM = !before && rec.AnyFieldSet()
	}

	rec.URL = url
	rec.ListingID = ListingIDFromURL(url)
	rec.ContentHash = ContentHash(html)[:16]
	rec.TS = time.Now().UTC().Format(time.RFC3339)

	if usedLLM {
		rec.ParserUsed = model.ParserRulesLLM
	} else {
		rec.ParserUsed = model.ParserRules
	}

	if rec.AnyFieldSet() {
		rec.Confidence = confidenceWithFields
	} else {
		rec.Confidence = confidenceEmpty
	}

	return rec
}
