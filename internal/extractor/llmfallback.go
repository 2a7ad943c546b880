package extractor

import (
	"context"
	"encoding/json"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rhan/realtor-worker-fleet/internal/llmclient"
	"github.com/rhan/realtor-worker-fleet/internal/model"
)

// maxLLMHTMLChars bounds how much raw HTML goes into the prompt, matching
// original_source's call_gemini truncation so prompts stay within the
// model's context window on oversized pages.
const maxLLMHTMLChars = 500_000

// llmInstruction is the fixed system prompt for the LLM fallback pass,
// grounded on original_source's call_gemini: it names every fixed schema
// field plus the additional_attributes overflow bag.
const llmInstruction = `You are extracting real estate listing data from raw HTML. ` +
	`Return ONLY a single JSON object, no prose, no markdown fencing. ` +
	`Use these exact keys when the value is present in the page: ` +
	`price (number), beds (integer), baths (integer), sqft (integer), ` +
	`lot_size_sqft (integer), address_street (string), address_city (string), ` +
	`address_state (string), address_zip (string), property_type (string), ` +
	`year_built (integer), agent_name (string), brokerage_name (string), ` +
	`property_description (string). ` +
	`Also include any additional useful attributes you find (images, hoa_fee, ` +
	`mls_id, parking, school_district, and similar) nested under an ` +
	`"additional_attributes" object. Omit keys you cannot find; do not guess.`

// ApplyLLMFallback calls client with the page HTML and overlays any fixed
// fields the rules pass left unset. Any failure — missing client, API
// error, unparsable response — leaves rec unchanged, matching
// original_source's call_gemini: any exception yields no update.
func ApplyLLMFallback(ctx context.Context, client llmclient.Client, html string, rec *model.ListingRecord) {
	truncated := html
	if len(truncated) > maxLLMHTMLChars {
		truncated = truncated[:maxLLMHTMLChars]
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llmInstruction},
			{Role: openai.ChatMessageRoleUser, Content: truncated},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		return
	}

	obj, ok := extractJSONObject(resp.Choices[0].Message.Content)
	if !ok {
		return
	}

	applyLLMObject(rec, obj)
}

// extractJSONObject locates the first '{' and last '}' in text and parses
// that substring as a JSON object, matching original_source's tolerance for
// models that wrap their JSON in prose or markdown fences.
func extractJSONObject(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// applyLLMObject overlays only the fixed record fields that are still
// unset, plus the additional_attributes bag into rec.Extra. Known optional
// overflow keys (images, hoa_fee, mls_id, ...) ride along in Extra too.
func applyLLMObject(rec *model.ListingRecord, obj map[string]any) {
	if rec.Price == nil {
		if v, ok := floatVal(obj, "price"); ok {
			rec.Price = &v
		}
	}
	if rec.Beds == nil {
		if v, ok := intVal(obj, "beds"); ok {
			rec.Beds = &v
		}
	}
	if rec.Baths == nil {
		if v, ok := intVal(obj, "baths"); ok {
			rec.Baths = &v
		}
	}
	if rec.SqFt == nil {
		if v, ok := intVal(obj, "sqft"); ok {
			rec.SqFt = &v
		}
	}
	if rec.LotSizeSqFt == nil {
		if v, ok := intVal(obj, "lot_size_sqft"); ok {
			rec.LotSizeSqFt = &v
		}
	}
	if rec.AddressStreet == nil {
		if v, ok := strVal(obj, "address_street"); ok {
			rec.AddressStreet = &v
		}
	}
	if rec.AddressCity == nil {
		if v, ok := strVal(obj, "address_city"); ok {
			rec.AddressCity = &v
		}
	}
	if rec.AddressState == nil {
		if v, ok := strVal(obj, "address_state"); ok {
			rec.AddressState = &v
		}
	}
	if rec.AddressZip == nil {
		if v, ok := strVal(obj, "address_zip"); ok {
			rec.AddressZip = &v
		}
	}
	if rec.PropertyType == nil {
		if v, ok := strVal(obj, "property_type"); ok {
			rec.PropertyType = &v
		}
	}
	if rec.YearBuilt == nil {
		if v, ok := intVal(obj, "year_built"); ok {
			rec.YearBuilt = &v
		}
	}
	if rec.AgentName == nil {
		if v, ok := strVal(obj, "agent_name"); ok {
			rec.AgentName = &v
		}
	}
	if rec.BrokerageName == nil {
		if v, ok := strVal(obj, "brokerage_name"); ok {
			rec.BrokerageName = &v
		}
	}
	if rec.PropertyDescription == nil {
		if v, ok := strVal(obj, "property_description"); ok {
			rec.PropertyDescription = &v
		}
	}

	if extra, ok := obj["additional_attributes"].(map[string]any); ok && len(extra) > 0 {
		if rec.Extra == nil {
			rec.Extra = make(map[string]any)
		}
		for k, v := range extra {
			rec.Extra[k] = v
		}
	}
}

func strVal(m map[string]any, key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok && v != ""
}

func floatVal(m map[string]any, key string) (float64, bool) {
	v, ok := m[key].(float64)
	return v, ok
}

func intVal(m map[string]any, key string) (int, bool) {
	v, ok := m[key].(float64)
	if !ok {
		return 0, false
	}
	return int(v), true
}
