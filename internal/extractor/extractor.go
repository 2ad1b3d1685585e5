// Package extractor turns a raw HTML body into candidate SearchResult rows
// for one site, per spec.md §4.7: per-site override rules, primary
// selector, fallback selectors, then a generic anchor-scanning fallback.
// All selector matching, including the generic fallback's anchor scan,
// uses goquery (grounded on pevans-newsfed); the generic fallback's shape
// follows the teacher's internal/parser/html_parser.go.
package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"

	"github.com/reekid420/website-searcher/internal/catalog"
	"github.com/reekid420/website-searcher/internal/shared"
)

var titleSanitizer = bluemonday.StrictPolicy()

// Extract runs the full pipeline for one site: per-site idiosyncrasies
// (tried first; a non-empty result is returned as is), primary selector,
// fallback selectors, generic fallback, all gated by terms (the segment's
// effective search terms, used to filter site-specific, fallback-selector
// and generic candidates, and primary-selector candidates of FrontPage/
// ListingPage/ForumSearch sites, the way spec.md §4.7 step 4 describes; exact-phrase, exclude
// and regex filtering happen later in the query-language layer since they
// need the full AdvancedQuery, not just terms).
func Extract(d catalog.SiteDescriptor, html string, terms []string) []shared.SearchResult {
	if strings.TrimSpace(html) == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Warn().Str("site", d.Name).Err(err).Msg("extractor: failed to parse HTML")
		return nil
	}

	if fn, ok := siteSpecific[strings.ToLower(d.Name)]; ok {
		if results := fn(d, doc, terms); len(results) > 0 {
			return results
		}
	}

	needsLocalFilter := d.Strategy == catalog.StrategyFrontPage || d.Strategy == catalog.StrategyListingPage

	primary := extractPrimary(d, doc)
	if len(primary) > 0 {
		if needsLocalFilter || d.Strategy == catalog.StrategyForumSearch {
			primary = filterByTerms(primary, terms)
		}
		if len(primary) > 0 {
			return primary
		}
	}

	for _, fb := range d.FallbackSelectors {
		if fbResults := extractWithSelector(d, doc, fb); len(fbResults) > 0 {
			return filterByTerms(fbResults, terms)
		}
	}

	generic := extractGeneric(d, doc)
	return filterByTerms(generic, terms)
}

func extractPrimary(d catalog.SiteDescriptor, doc *goquery.Document) []shared.SearchResult {
	if d.Selector == "" {
		return nil
	}
	return extractWithSelector(d, doc, d.Selector)
}

func extractWithSelector(d catalog.SiteDescriptor, doc *goquery.Document, selector string) []shared.SearchResult {
	var out []shared.SearchResult

	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		title, href := titleAndHref(d, sel)
		result, ok := buildResult(d, title, href)
		if ok {
			out = append(out, result)
		}
	})

	return out
}

// titleAndHref pulls the title (from element text or a configured
// attribute) and the href (from the element itself, its nearest anchor
// descendant, or its parent anchor — some site themes wrap the anchor
// around a heading rather than the reverse).
func titleAndHref(d catalog.SiteDescriptor, sel *goquery.Selection) (title, href string) {
	if d.TitleSource != "" && d.TitleSource != "text" {
		title, _ = sel.Attr(d.TitleSource)
	}
	if title == "" {
		title = strings.TrimSpace(sel.Text())
	}

	urlAttr := d.URLSource
	if urlAttr == "" {
		urlAttr = "href"
	}

	if h, ok := sel.Attr(urlAttr); ok && h != "" {
		return title, h
	}

	// Nested anchor (heading wraps a link).
	if a := sel.Find("a[href]").First(); a.Length() > 0 {
		if h, ok := a.Attr("href"); ok {
			if title == "" {
				title = strings.TrimSpace(a.Text())
			}
			return title, h
		}
	}

	// Parent anchor (link wraps a heading/card).
	if a := sel.ParentsFiltered("a[href]").First(); a.Length() > 0 {
		if h, ok := a.Attr("href"); ok {
			return title, h
		}
	}

	return title, ""
}

func buildResult(d catalog.SiteDescriptor, title, href string) (shared.SearchResult, bool) {
	if href == "" {
		return shared.SearchResult{}, false
	}

	absolute, err := shared.ResolveURL(d.BaseURL, href)
	if err != nil || !shared.IsAbsoluteHTTP(absolute) {
		return shared.SearchResult{}, false
	}

	title = strings.TrimSpace(titleSanitizer.Sanitize(title))
	if title == "" {
		title = shared.LastPathSegment(absolute)
	}
	if title == "" {
		return shared.SearchResult{}, false
	}

	return shared.SearchResult{Site: d.Name, Title: title, URL: absolute}, true
}

// filterByTerms keeps only candidates whose title+url contains every
// search term, per spec.md §4.7 step 4 (exact phrase/exclude/regex
// filtering happens in the query package once the full AdvancedQuery is
// available).
func filterByTerms(results []shared.SearchResult, terms []string) []shared.SearchResult {
	if len(terms) == 0 {
		return results
	}

	out := make([]shared.SearchResult, 0, len(results))
	for _, r := range results {
		combined := strings.ToLower(r.Title + " " + r.URL)
		matchesAll := true
		for _, t := range terms {
			if !strings.Contains(combined, strings.ToLower(t)) {
				matchesAll = false
				break
			}
		}
		if matchesAll {
			out = append(out, r)
		}
	}
	return out
}
