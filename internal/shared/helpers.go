package shared

import (
	"net/url"
	"regexp"
	"strings"
)

// ResolveURL resolves link against base, stripping any fragment, the way a
// browser's anchor navigation would.
func ResolveURL(base, link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", err
	}

	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	resolved := b.ResolveReference(u)
	resolved.Fragment = ""
	return resolved.String(), nil
}

// IsAbsoluteHTTP reports whether s is an absolute http(s) URL.
func IsAbsoluteHTTP(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.IsAbs() && (u.Scheme == "http" || u.Scheme == "https")
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CollapseWhitespace collapses any run of whitespace to a single space and
// trims the ends; LastPathSegment uses it to tidy derived titles.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// LastPathSegment returns the final non-empty path component of a URL,
// with dashes/underscores turned into spaces and a trailing file extension
// or id-like token (see isIDToken) stripped — used by the generic extractor
// fallback to derive a title when link text is empty.
func LastPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	trimmed := strings.Trim(u.Path, "/")
	if trimmed == "" {
		return ""
	}

	parts := strings.Split(trimmed, "/")
	last := parts[len(parts)-1]

	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}

	last = strings.ReplaceAll(last, "-", " ")
	last = strings.ReplaceAll(last, "_", " ")

	fields := strings.Fields(last)
	if len(fields) > 1 {
		if tail := fields[len(fields)-1]; isIDToken(tail) {
			fields = fields[:len(fields)-1]
		}
	}

	return CollapseWhitespace(strings.Join(fields, " "))
}

// isIDToken reports whether a trailing path token looks like a database id
// rather than a word, e.g. "1234" or "a1b2c3".
func isIDToken(tok string) bool {
	if len(tok) < 4 {
		return false
	}
	digits := 0
	for _, r := range tok {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits*2 >= len(tok)
}
