package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/reekid420/website-searcher/internal/catalog"
	"github.com/reekid420/website-searcher/internal/shared"
)

// navPathMarkers are href substrings that mark a link as site navigation
// rather than a search result, shared by the WordPress-themed sites and
// forum listings described in spec.md §4.7.
var navPathMarkers = []string{"/category/", "/categories/", "/tag/", "/tags/", "/page/", "/login/", "/forums/", "/members/", "/badge/"}

// extractGeneric scans every <a href> on the page, deriving a title from
// link text or, failing that, the last path segment, per spec.md §4.7
// step 3's generic fallback.
func extractGeneric(d catalog.SiteDescriptor, doc *goquery.Document) []shared.SearchResult {
	var out []shared.SearchResult

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		if isNavLink(href) {
			return
		}

		result, ok := buildResult(d, strings.TrimSpace(sel.Text()), href)
		if !ok {
			return
		}

		out = append(out, result)
	})

	return out
}

func isNavLink(href string) bool {
	lower := strings.ToLower(href)
	for _, marker := range navPathMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
