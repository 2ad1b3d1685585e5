// Package urlbuild turns a (site descriptor, normalized query) pair into
// the request URL for that site's strategy, per spec.md §4.3.
package urlbuild

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/reekid420/website-searcher/internal/catalog"
)

// Build returns the request URL for descriptor d given the effective
// (operator-stripped) network query q.
func Build(d catalog.SiteDescriptor, q string) string {
	switch d.Strategy {
	case catalog.StrategyQueryParam:
		param := d.QueryParam
		if param == "" {
			param = "s"
		}
		values := url.Values{}
		values.Set(param, q)
		return fmt.Sprintf("%s?%s", d.BaseURL, values.Encode())

	case catalog.StrategyPathEncoded:
		encoded := strings.ReplaceAll(url.QueryEscape(q), "+", "%20")
		return d.BaseURL + encoded

	case catalog.StrategyFrontPage:
		return d.BaseURL

	case catalog.StrategyListingPage:
		return d.BaseURL + d.ListingPath

	case catalog.StrategyForumSearch:
		return buildForumSearchURL(d, q)

	default:
		return d.BaseURL
	}
}

// buildForumSearchURL builds a phpBB-style search.php GET request:
// keywords=<q>&sr=topics&sf=firstpost&fid[]=<id>, per spec.md §4.3.
func buildForumSearchURL(d catalog.SiteDescriptor, q string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(d.BaseURL, "/"))
	b.WriteString("/search.php?keywords=")
	b.WriteString(strings.ReplaceAll(url.QueryEscape(q), "+", "%20"))
	b.WriteString("&sr=topics&sf=firstpost")

	ids := d.ForumIDs
	if len(ids) == 0 {
		ids = []string{"10"}
	}
	for _, id := range ids {
		b.WriteString("&fid%5B%5D=")
		b.WriteString(url.QueryEscape(id))
	}

	return b.String()
}

// ListingPageURL builds the i-th paginated listing/forum page URL for
// strategies that fall back to pagination (ListingPage, ForumSearch),
// per the resolved open question in spec.md §9: pages are indexed by
// start=i*100. page is used as given; it is not checked against
// d.ListingPageCap().
func ListingPageURL(d catalog.SiteDescriptor, base string, page int) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sstart=%d", base, sep, page*100)
}
