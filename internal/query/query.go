// Package query implements the advanced query language: quoting, site
// restriction, exclusion, regex, and multi-segment (`|`) queries.
package query

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// AdvancedQuery is one self-contained segment of a parsed phrase, or the
// top-level parse when the phrase has no `|` segments of its own.
type AdvancedQuery struct {
	Terms            []string
	ExcludeTerms     []string
	SiteRestrictions []string
	ExactPhrases     []string
	RegexPatterns    []*regexp.Regexp
	Segments         []AdvancedQuery
	Raw              string
}

var quotedPhrase = regexp.MustCompile(`"([^"]+)"`)

// Parse splits input on `|` into segments and parses each one
// independently, per spec.md §4.2. The returned AdvancedQuery's Segments
// field holds one entry per `|`-delimited part; for a single-segment
// phrase, Segments has exactly one element equal to the top-level fields.
func Parse(input string) AdvancedQuery {
	top := AdvancedQuery{Raw: input}

	parts := strings.Split(input, "|")
	for _, part := range parts {
		seg := parseSegment(strings.TrimSpace(part))
		top.Segments = append(top.Segments, seg)
	}

	if len(top.Segments) == 1 {
		s := top.Segments[0]
		top.Terms = s.Terms
		top.ExcludeTerms = s.ExcludeTerms
		top.SiteRestrictions = s.SiteRestrictions
		top.ExactPhrases = s.ExactPhrases
		top.RegexPatterns = s.RegexPatterns
	}

	return top
}

func parseSegment(input string) AdvancedQuery {
	q := AdvancedQuery{Raw: input}
	if input == "" {
		return q
	}

	for _, m := range quotedPhrase.FindAllStringSubmatch(input, -1) {
		q.ExactPhrases = append(q.ExactPhrases, m[1])
	}
	remaining := quotedPhrase.ReplaceAllString(input, " ")

	for _, token := range strings.Fields(remaining) {
		switch {
		case strings.HasPrefix(token, "site:"):
			names := strings.TrimPrefix(token, "site:")
			if names == "" {
				continue
			}
			for _, n := range strings.Split(names, ",") {
				n = strings.ToLower(strings.TrimSpace(n))
				if n != "" {
					q.SiteRestrictions = append(q.SiteRestrictions, n)
				}
			}

		case strings.HasPrefix(token, "regex:"):
			pattern := strings.TrimPrefix(token, "regex:")
			if pattern == "" {
				continue
			}
			// Case-insensitive, like every other filter in the query language.
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				log.Warn().Str("pattern", pattern).Err(err).Msg("dropping invalid regex operator")
				continue
			}
			q.RegexPatterns = append(q.RegexPatterns, re)

		case strings.HasPrefix(token, "-") && len(token) > 1:
			q.ExcludeTerms = append(q.ExcludeTerms, strings.ToLower(token[1:]))

		default:
			q.Terms = append(q.Terms, token)
		}
	}

	return q
}

// IsEmpty reports whether a segment carries no terms and no exact phrases,
// i.e. it is operators-only or blank.
func (q AdvancedQuery) IsEmpty() bool {
	return len(q.Terms) == 0 && len(q.ExactPhrases) == 0
}

// SearchTerms is the effective network query for a segment: terms and
// exact phrases concatenated with spaces. Operators are never
// transmitted to sites.
func (q AdvancedQuery) SearchTerms() string {
	all := make([]string, 0, len(q.Terms)+len(q.ExactPhrases))
	all = append(all, q.Terms...)
	all = append(all, q.ExactPhrases...)
	return strings.Join(all, " ")
}

// AppliesTo reports whether segment applies to site under the projection
// rule of spec.md §4.2: a segment with no site_restrictions applies to
// every site; a segment restricted to specific sites applies only where
// one of them is a case-insensitive substring of site.
func (q AdvancedQuery) AppliesTo(site string) bool {
	if len(q.SiteRestrictions) == 0 {
		return true
	}
	siteLower := strings.ToLower(site)
	for _, r := range q.SiteRestrictions {
		if strings.Contains(siteLower, r) {
			return true
		}
	}
	return false
}

// ApplicableSegments returns, in order, the segments of q that apply to
// site per spec.md §4.2's segment-to-site projection.
func (q AdvancedQuery) ApplicableSegments(site string) []AdvancedQuery {
	var out []AdvancedQuery
	for _, seg := range q.Segments {
		if seg.AppliesTo(site) {
			out = append(out, seg)
		}
	}
	return out
}

// Matches reports whether title+url passes this segment's term, phrase,
// exclusion and regex filters, per the extractor filtering rules of
// spec.md §4.7. Site restriction is checked separately by the caller
// since it is already applied at dispatch time.
func (q AdvancedQuery) Matches(title, url string) bool {
	combined := strings.ToLower(title + " " + url)

	for _, t := range q.Terms {
		if !strings.Contains(combined, strings.ToLower(t)) {
			return false
		}
	}

	for _, p := range q.ExactPhrases {
		if !strings.Contains(combined, strings.ToLower(p)) {
			return false
		}
	}

	for _, ex := range q.ExcludeTerms {
		if strings.Contains(combined, ex) {
			return false
		}
	}

	for _, re := range q.RegexPatterns {
		if !re.MatchString(title) && !re.MatchString(url) {
			return false
		}
	}

	return true
}

// NormalizeKey produces the cache key for a raw phrase: lowercase,
// whitespace-collapsed, with every operator token stripped, so
// "Elden Ring site:fitgirl" and "elden  ring  site:fitgirl" hash equal.
func NormalizeKey(phrase string) string {
	top := Parse(phrase)

	var pieces []string
	for _, seg := range top.Segments {
		pieces = append(pieces, strings.Join(seg.Terms, " "))
		pieces = append(pieces, seg.ExactPhrases...)
	}

	joined := strings.ToLower(strings.Join(pieces, " "))
	return strings.Join(strings.Fields(joined), " ")
}
