package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxDiscoveredLinks caps how many detail links an index page can yield per
// fetch, grounded on original_source's extract_listing_links (a fixed cap
// keeps one index page from fanning out unbounded child work).
const maxDiscoveredLinks = 10

// DiscoverDetailLinks scans an index page's anchors for detail-page URLs
// belonging to the same listings site, deduping by href and capping at
// maxDiscoveredLinks.
func DiscoverDetailLinks(html, siteHost string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []string

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		if !strings.Contains(href, siteHost) || !strings.Contains(href, "/realestateandhomes-detail/") {
			return true
		}
		if seen[href] {
			return true
		}
		seen[href] = true
		out = append(out, href)
		return len(out) < maxDiscoveredLinks
	})

	return out
}
