// Package postprocess applies the normalize/dedup/limit/cutoff/order
// pipeline of spec.md §4.8 to the candidates collected for a single
// search. Grounded on the teacher's internal/parser/service.go batch
// processing loop and original_source/crates/core/src/analyzer.rs for the
// per-site noise-token table.
package postprocess

import (
	"regexp"
	"sort"
	"strings"

	"github.com/reekid420/website-searcher/internal/shared"
)

// noiseTokens lists decoration removed (first occurrence of each token,
// anywhere in the title, case-insensitively) the way analyzer.rs's title
// cleanup does, per site theme (a supplemented feature: spec.md §4.8
// only names "site-specific noise tokens" without an example table).
var noiseTokens = map[string][]string{
	"fitgirl":    {"- repack", "[repack]", "repack", "free download"},
	"dodi":       {"- dodi repack", "dodi repack"},
	"steamrip":   {"free download", "- steamrip"},
	"gog-games":  {"free download"},
	"ankergames": {"free download"},
}

var bracketOnlyFragment = regexp.MustCompile(`^\[[^\]]*\]$|^\([^)]*\)$`)
var trailingSeparators = regexp.MustCompile(`[-–—|:,\s]+$`)

// NormalizeTitle collapses whitespace, returns "" for a title that is a
// single bracket-only fragment, removes any configured per-site noise
// token, and strips trailing separators, per spec.md §4.8 step 1.
func NormalizeTitle(site, title string) string {
	t := strings.Join(strings.Fields(title), " ")
	t = strings.TrimSpace(t)

	if bracketOnlyFragment.MatchString(t) {
		return ""
	}

	lower := strings.ToLower(t)
	for _, tok := range noiseTokens[strings.ToLower(site)] {
		if idx := strings.Index(lower, strings.ToLower(tok)); idx >= 0 {
			t = t[:idx] + t[idx+len(tok):]
			lower = strings.ToLower(t)
		}
	}

	t = trailingSeparators.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

// Options bounds the per-site and global truncation of Process.
type Options struct {
	PerSiteLimit int  // default 10 when <= 0
	GlobalCutoff int  // 0 disables truncation
	SortByTitle  bool // consumer opted into title-sort within a site group
}

func (o Options) siteLimit() int {
	if o.PerSiteLimit <= 0 {
		return 10
	}
	return o.PerSiteLimit
}

// Process runs normalize -> dedup -> per-site limit -> order -> global
// cutoff over the full candidate set for one search, per spec.md §4.8.
func Process(candidates []shared.SearchResult, opts Options) []shared.SearchResult {
	normalized := make([]shared.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		title := NormalizeTitle(c.Site, c.Title)
		if title == "" {
			continue
		}
		c.Title = title
		normalized = append(normalized, c)
	}

	deduped := dedup(normalized)
	limited := perSiteLimit(deduped, opts.siteLimit())
	ordered := order(limited, opts.SortByTitle)

	if opts.GlobalCutoff > 0 && len(ordered) > opts.GlobalCutoff {
		ordered = ordered[:opts.GlobalCutoff]
	}

	return ordered
}

// dedup collapses rows sharing (site, url), keeping the longer-title
// variant on collision, per spec.md §4.8 step 2. Order among first
// occurrences is preserved.
func dedup(results []shared.SearchResult) []shared.SearchResult {
	type key struct{ site, url string }

	index := make(map[key]int, len(results))
	out := make([]shared.SearchResult, 0, len(results))

	for _, r := range results {
		k := key{strings.ToLower(r.Site), r.URL}
		if i, exists := index[k]; exists {
			if len(r.Title) > len(out[i].Title) {
				out[i].Title = r.Title
			}
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}

	return out
}

// perSiteLimit keeps at most limit results per site, preserving the
// extractor's insertion order, per spec.md §4.8 step 3.
func perSiteLimit(results []shared.SearchResult, limit int) []shared.SearchResult {
	counts := make(map[string]int)
	out := make([]shared.SearchResult, 0, len(results))

	for _, r := range results {
		site := strings.ToLower(r.Site)
		if counts[site] >= limit {
			continue
		}
		counts[site]++
		out = append(out, r)
	}

	return out
}

// order groups results by site (case-insensitive alphabetical); within a
// group, insertion order is preserved unless sortByTitle is set, per
// spec.md §4.8 step 5.
func order(results []shared.SearchResult, sortByTitle bool) []shared.SearchResult {
	grouped := make(map[string][]shared.SearchResult)
	var sites []string

	for _, r := range results {
		site := strings.ToLower(r.Site)
		if _, seen := grouped[site]; !seen {
			sites = append(sites, site)
		}
		grouped[site] = append(grouped[site], r)
	}

	sort.Strings(sites)

	out := make([]shared.SearchResult, 0, len(results))
	for _, site := range sites {
		group := grouped[site]
		if sortByTitle {
			sort.SliceStable(group, func(i, j int) bool {
				return strings.ToLower(group[i].Title) < strings.ToLower(group[j].Title)
			})
		}
		out = append(out, group...)
	}

	return out
}
