// Package model holds the data types shared across the worker fleet,
// mirroring spec.md §3's data model with teacher models/property.go's
// plain-struct style.
package model

import (
	"bytes"
	"encoding/json"
)

// URLTask is the inbound queue message shape.
type URLTask struct {
	URLToScrape string `json:"url_to_scrape"`
}

// FetchResult is the outcome of a single HTTPS fetch. Immutable; lives for
// the duration of one request.
type FetchResult struct {
	Status   int
	Body     string
	FinalURL string
}

// ParserRules and ParserRulesLLM are the two values parser_used may take.
const (
	ParserRules    = "rules"
	ParserRulesLLM = "rules+llm"
)

// ListingRecord is a fixed-field real-estate listing plus provenance, with
// overflow room for the broader optional LLM field set (spec.md §3, §4.4).
// All listing fields are pointers so the zero value serializes as JSON null
// instead of a numeric/string zero value, matching "all fields nullable".
type ListingRecord struct {
	Price               *float64 `json:"price"`
	Beds                *int     `json:"beds"`
	Baths               *int     `json:"baths"`
	SqFt                *int     `json:"sqft"`
	LotSizeSqFt         *int     `json:"lot_size_sqft"`
	AddressStreet       *string  `json:"address_street"`
	AddressCity         *string  `json:"address_city"`
	AddressState        *string  `json:"address_state"`
	AddressZip          *string  `json:"address_zip"`
	PropertyType        *string  `json:"property_type"`
	YearBuilt           *int     `json:"year_built"`
	AgentName           *string  `json:"agent_name"`
	BrokerageName       *string  `json:"brokerage_name"`
	PropertyDescription *string  `json:"property_description"`

	ListingID   string  `json:"listing_id"`
	URL         string  `json:"url"`
	TS          string  `json:"ts"`
	ContentHash string  `json:"content_hash"`
	ParserUsed  string  `json:"parser_used"`
	Confidence  float64 `json:"confidence"`

	// Extra carries LLM-only optional fields (images, hoa_fee, mls_id, ...
	// and an additional_attributes bag) verbatim. Flattened into the
	// top-level JSON object at marshal time so NDJSON output stays one
	// flat object per line.
	Extra map[string]any `json:"-"`
}

// AnyFieldSet reports whether any of the fixed listing fields is non-null,
// non-empty, and non-zero — the "falsy" test spec.md §4.4 and §9 use to gate
// the LLM fallback and to compute parser_used/confidence.
func (r *ListingRecord) AnyFieldSet() bool {
	if r.Price != nil && *r.Price != 0 {
		return true
	}
	if r.Beds != nil && *r.Beds != 0 {
		return true
	}
	if r.Baths != nil && *r.Baths != 0 {
		return true
	}
	if r.SqFt != nil && *r.SqFt != 0 {
		return true
	}
	if r.LotSizeSqFt != nil && *r.LotSizeSqFt != 0 {
		return true
	}
	if nonEmpty(r.AddressStreet) || nonEmpty(r.AddressCity) || nonEmpty(r.AddressState) || nonEmpty(r.AddressZip) {
		return true
	}
	if nonEmpty(r.PropertyType) || nonEmpty(r.AgentName) || nonEmpty(r.BrokerageName) || nonEmpty(r.PropertyDescription) {
		return true
	}
	if r.YearBuilt != nil && *r.YearBuilt != 0 {
		return true
	}
	return false
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}

// MarshalJSON flattens Extra into the record's top-level object so the
// wire/NDJSON form is one flat JSON object, matching original_source's
// out = {**record, ...llm overflow} spread.
func (r ListingRecord) MarshalJSON() ([]byte, error) {
	type alias ListingRecord

	marshalNoEscape := func(v any) ([]byte, error) {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		return bytes.TrimRight(buf.Bytes(), "\n"), nil
	}

	base, err := marshalNoEscape(alias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, exists := merged[k]; exists {
			// Fixed schema fields always win over same-named overflow keys.
			continue
		}
		raw, err := marshalNoEscape(v)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}

	return marshalNoEscape(merged)
}

// ProxyEndpoint is a single egress proxy with a health score and cooldown.
type ProxyEndpoint struct {
	URL           string
	Score         float64
	CooldownUntil int64 // unix nanoseconds; zero means no cooldown
}
