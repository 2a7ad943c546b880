package extractor

import "strings"

// IsIndexURL classifies a URL as an index (search/browse) page iff its path
// contains "/realestateandhomes-search/", or begins with "/realestateandhomes"
// without the "-detail/" segment; otherwise it is a detail page. This exact
// substring test is preserved per spec.md §9's open question — a future URL
// scheme may be misclassified, and the fix is a metric, not a heuristic
// rework.
func IsIndexURL(rawURL string) bool {
	if strings.Contains(rawURL, "/realestateandhomes-search/") {
		return true
	}
	if idx := strings.Index(rawURL, "/realestateandhomes"); idx >= 0 {
		if !strings.Contains(rawURL, "-detail/") {
			return true
		}
	}
	return false
}
