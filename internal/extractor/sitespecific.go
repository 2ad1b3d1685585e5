package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/reekid420/website-searcher/internal/catalog"
	"github.com/reekid420/website-searcher/internal/shared"
)

// siteFn is a per-site override, tried before the generic primary
// selector + fallback pipeline. It returns nil to fall through.
type siteFn func(d catalog.SiteDescriptor, doc *goquery.Document, terms []string) []shared.SearchResult

// siteSpecific implements the per-site idiosyncrasy table of spec.md §4.7,
// grounded on original_source/crates/core/src/parser.rs's
// parse_elamigos/parse_f95zone/parse_nswpedia and the FitGirl/steamrip
// title-cleaning rules, whose noise tokens live in internal/postprocess.
var siteSpecific = map[string]siteFn{
	"fitgirl":    extractFitGirl,
	"elamigos":   extractElAmigos,
	"ankergames": extractAnkergames,
	"csrin":      extractForumSearch,
	"f95zone":    extractF95Listing,
	"steamrip":   extractSteamRIPStyle,
}

var dateLikePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// extractFitGirl prefers h2.entry-title a (the theme's post heading) and
// drops date-stamped archive entries and pagination noise, per spec.md
// §4.7's FitGirl row.
func extractFitGirl(d catalog.SiteDescriptor, doc *goquery.Document, terms []string) []shared.SearchResult {
	var out []shared.SearchResult

	doc.Find("h2.entry-title a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		if strings.Contains(href, "/page/") || strings.Contains(href, "?s=") {
			return
		}

		title := strings.TrimSpace(sel.Text())
		if isFitGirlNoise(title) {
			return
		}

		result, ok := buildResult(d, title, href)
		if ok {
			out = append(out, result)
		}
	})

	return filterByTerms(out, terms)
}

func isFitGirlNoise(title string) bool {
	if title == "" {
		return true
	}
	if dateLikePattern.MatchString(title) {
		return true
	}
	lower := strings.ToLower(title)
	switch {
	case lower == "upcoming repacks":
		return true
	case strings.HasPrefix(lower, "page "):
		return true
	}
	return false
}

// extractElAmigos reads headings (h2/h3/h5, the theme mixes levels) whose
// text contains the query and resolves the URL via a nested anchor —
// ElAmigos link text is often just "DOWNLOAD", so the title comes from
// the heading text with that decoration stripped.
func extractElAmigos(d catalog.SiteDescriptor, doc *goquery.Document, terms []string) []shared.SearchResult {
	var out []shared.SearchResult

	doc.Find("h2, h3, h5").Each(func(_ int, heading *goquery.Selection) {
		text := strings.TrimSpace(heading.Text())
		if text == "" {
			return
		}

		anchor := heading.Find("a[href]").First()
		if anchor.Length() == 0 {
			return
		}
		href, ok := anchor.Attr("href")
		if !ok || href == "" {
			return
		}

		title := strings.TrimSpace(strings.ReplaceAll(text, "DOWNLOAD", ""))
		result, ok := buildResult(d, title, href)
		if ok {
			out = append(out, result)
		}
	})

	return filterByTerms(out, terms)
}

// extractAnkergames prefers game-detail anchors, falling back to a
// listing scan when none are present.
func extractAnkergames(d catalog.SiteDescriptor, doc *goquery.Document, terms []string) []shared.SearchResult {
	out := extractWithSelector(d, doc, "a[href^='/game/']")
	if len(out) == 0 {
		out = extractGeneric(d, doc)
	}
	return filterByTerms(out, terms)
}

// extractForumSearch handles phpBB search result pages (cs.rin.ru and
// similar): topic anchors carry class "topictitle" and relative URLs
// that must keep their query string.
func extractForumSearch(d catalog.SiteDescriptor, doc *goquery.Document, terms []string) []shared.SearchResult {
	out := extractWithSelector(d, doc, "a.topictitle")
	return filterByTerms(out, terms)
}

// extractF95Listing pulls forum thread anchors, dropping pagination and
// account-navigation links and deduplicating by URL.
func extractF95Listing(d catalog.SiteDescriptor, doc *goquery.Document, terms []string) []shared.SearchResult {
	var out []shared.SearchResult
	seen := make(map[string]bool)

	doc.Find("a[href*='/threads/']").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		if strings.Contains(href, "/page-") || strings.Contains(href, "/members/") ||
			strings.Contains(href, "/latest") || strings.Contains(href, "/login/") ||
			strings.Contains(href, "/forums/") {
			return
		}

		result, ok := buildResult(d, strings.TrimSpace(sel.Text()), href)
		if !ok || seen[result.URL] {
			return
		}
		seen[result.URL] = true
		out = append(out, result)
	})

	return filterByTerms(out, terms)
}

// extractSteamRIPStyle covers SteamRIP and the shared WordPress theme it
// and several other repack sites use: drop navigational anchors
// (category/tag pages) and anchors whose title normalizes to empty.
func extractSteamRIPStyle(d catalog.SiteDescriptor, doc *goquery.Document, terms []string) []shared.SearchResult {
	var out []shared.SearchResult

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		if isNavLink(href) || strings.Contains(href, "?s=") {
			return
		}

		title := strings.TrimSpace(sel.Text())
		if title == "" {
			return
		}
		lower := strings.ToLower(title)
		if lower == "next" || lower == "previous" || strings.HasPrefix(lower, "next") || strings.HasPrefix(lower, "prev") {
			return
		}
		if isAllDigits(title) {
			return
		}

		result, ok := buildResult(d, title, href)
		if ok {
			out = append(out, result)
		}
	})

	return filterByTerms(out, terms)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
