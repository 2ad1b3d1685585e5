package urlbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reekid420/website-searcher/internal/catalog"
)

func TestBuildQueryParam(t *testing.T) {
	d := catalog.SiteDescriptor{
		BaseURL:    "https://fitgirl-repacks.site",
		Strategy:   catalog.StrategyQueryParam,
		QueryParam: "s",
	}
	assert.Equal(t, "https://fitgirl-repacks.site?s=elden+ring", Build(d, "elden ring"))
}

func TestBuildQueryParamDefaultsToS(t *testing.T) {
	d := catalog.SiteDescriptor{BaseURL: "https://x.example", Strategy: catalog.StrategyQueryParam}
	assert.Equal(t, "https://x.example?s=cyberpunk", Build(d, "cyberpunk"))
}

func TestBuildPathEncoded(t *testing.T) {
	d := catalog.SiteDescriptor{BaseURL: "https://ankergames.net/search/", Strategy: catalog.StrategyPathEncoded}
	assert.Equal(t, "https://ankergames.net/search/elden%20ring", Build(d, "elden ring"))
}

func TestBuildFrontPage(t *testing.T) {
	d := catalog.SiteDescriptor{BaseURL: "https://elamigos.site", Strategy: catalog.StrategyFrontPage}
	assert.Equal(t, "https://elamigos.site", Build(d, "anything"))
}

func TestBuildListingPage(t *testing.T) {
	d := catalog.SiteDescriptor{BaseURL: "https://gog-games.to", Strategy: catalog.StrategyListingPage, ListingPath: "/all-games"}
	assert.Equal(t, "https://gog-games.to/all-games", Build(d, "anything"))
}

func TestBuildForumSearchDefaultForumID(t *testing.T) {
	d := catalog.SiteDescriptor{BaseURL: "https://cs.rin.ru/", Strategy: catalog.StrategyForumSearch}
	got := Build(d, "elden ring")
	assert.Equal(t, "https://cs.rin.ru/search.php?keywords=elden%20ring&sr=topics&sf=firstpost&fid%5B%5D=10", got)
}

func TestBuildForumSearchMultipleForumIDs(t *testing.T) {
	d := catalog.SiteDescriptor{
		BaseURL:  "https://cs.rin.ru",
		Strategy: catalog.StrategyForumSearch,
		ForumIDs: []string{"10", "22"},
	}
	got := Build(d, "elden ring")
	assert.Equal(t, "https://cs.rin.ru/search.php?keywords=elden%20ring&sr=topics&sf=firstpost&fid%5B%5D=10&fid%5B%5D=22", got)
}

func TestListingPageURLPagination(t *testing.T) {
	d := catalog.SiteDescriptor{BaseURL: "https://gog-games.to", Strategy: catalog.StrategyListingPage, ListingPath: "/all-games"}
	base := Build(d, "")
	assert.Equal(t, "https://gog-games.to/all-games?start=0", ListingPageURL(d, base, 0))
	assert.Equal(t, "https://gog-games.to/all-games?start=200", ListingPageURL(d, base, 2))
}
