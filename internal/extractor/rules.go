package extractor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rhan/realtor-worker-fleet/internal/model"
)

// ParseRules runs the rules-first extraction pass over a detail page's HTML,
// grounded on original_source's parse_listing_with_rules: a title fallback
// for property_description, then tolerant JSON-LD parsing for address,
// floor size, and room count.
func ParseRules(html string) *model.ListingRecord {
	rec := &model.ListingRecord{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return rec
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		rec.PropertyDescription = &title
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		applyJSONLD(rec, raw)
	})

	return rec
}

// applyJSONLD tolerantly parses one JSON-LD block, which may be a single
// object or an array of objects. Malformed blocks are skipped silently
// (spec.md §4.4).
func applyJSONLD(rec *model.ListingRecord, raw string) {
	var asObject map[string]any
	if err := json.Unmarshal([]byte(raw), &asObject); err == nil {
		applyJSONLDObject(rec, asObject, false)
		return
	}

	var asArray []any
	if err := json.Unmarshal([]byte(raw), &asArray); err == nil {
		for _, item := range asArray {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			isSFR := obj["@type"] == "SingleFamilyResidence"
			applyJSONLDObject(rec, obj, isSFR)
		}
		return
	}
	// Neither an object nor an array: malformed, skip silently.
}

// applyJSONLDObject applies one parsed JSON-LD object's known schema
// fields to rec. overrideAddress forces the address fields to be
// overwritten even if already set, matching the
// "@type: SingleFamilyResidence" override rule in spec.md §4.4.
func applyJSONLDObject(rec *model.ListingRecord, obj map[string]any, overrideAddress bool) {
	if addr, ok := obj["address"].(map[string]any); ok {
		if rec.AddressStreet == nil || overrideAddress {
			rec.AddressStreet = stringField(addr, "streetAddress")
		}
		if rec.AddressCity == nil || overrideAddress {
			rec.AddressCity = stringField(addr, "addressLocality")
		}
		if rec.AddressState == nil || overrideAddress {
			rec.AddressState = stringField(addr, "addressRegion")
		}
		if rec.AddressZip == nil || overrideAddress {
			rec.AddressZip = stringField(addr, "postalCode")
		}
	}

	if floorSize, ok := obj["floorSize"].(map[string]any); ok {
		if v := intField(floorSize, "value"); v != nil {
			rec.SqFt = v
		}
	}

	if v := intFieldAny(obj, "numberOfRooms"); v != nil {
		rec.Beds = v
	}

	if name, ok := obj["name"].(string); ok && name != "" && rec.PropertyDescription == nil {
		rec.PropertyDescription = &name
	}
}

func stringField(m map[string]any, key string) *string {
	if v, ok := m[key].(string); ok && v != "" {
		return &v
	}
	return nil
}

func intField(m map[string]any, key string) *int {
	return intFieldAny(m, key)
}

// intFieldAny reads key from m and coerces a JSON number (float64 after
// decoding) or numeric string into an int pointer.
func intFieldAny(m map[string]any, key string) *int {
	raw, present := m[key]
	if !present {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		n := int(v)
		return &n
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return &n
		}
	}
	return nil
}
