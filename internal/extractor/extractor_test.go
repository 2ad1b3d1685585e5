package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reekid420/website-searcher/internal/catalog"
)

func TestExtractPrimarySelector(t *testing.T) {
	html := `
		<html><body>
			<h2 class="entry-title"><a href="/game/elden-ring">Elden Ring</a></h2>
			<h2 class="entry-title"><a href="/game/cyberpunk">Cyberpunk 2077</a></h2>
		</body></html>`

	d := catalog.SiteDescriptor{
		Name:     "fitgirl-like",
		BaseURL:  "https://example.test",
		Strategy: catalog.StrategyQueryParam,
		Selector: "h2.entry-title a",
	}

	got := Extract(d, html, nil)
	require.Len(t, got, 2)
	assert.Equal(t, "Elden Ring", got[0].Title)
	assert.Equal(t, "https://example.test/game/elden-ring", got[0].URL)
}

func TestExtractFallsBackToFallbackSelector(t *testing.T) {
	html := `<html><body><div class="card"><a href="/g/1">Some Game</a></div></body></html>`

	d := catalog.SiteDescriptor{
		Name:              "generic",
		BaseURL:           "https://example.test",
		Strategy:          catalog.StrategyFrontPage,
		Selector:          "h2.does-not-exist a",
		FallbackSelectors: []string{"div.card a"},
	}

	got := Extract(d, html, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Some Game", got[0].Title)
}

func TestExtractGenericFallbackFiltersNavLinks(t *testing.T) {
	html := `
		<html><body>
			<a href="/category/action">Action</a>
			<a href="/tag/rpg">RPG</a>
			<a href="/games/elden-ring">Elden Ring Deluxe</a>
		</body></html>`

	d := catalog.SiteDescriptor{
		Name:     "unmapped",
		BaseURL:  "https://example.test",
		Strategy: catalog.StrategyFrontPage,
	}

	got := Extract(d, html, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Elden Ring Deluxe", got[0].Title)
}

func TestExtractDropsRelativeSchemeMismatch(t *testing.T) {
	html := `<html><body><a href="javascript:void(0)">Nope</a></body></html>`
	d := catalog.SiteDescriptor{Name: "x", BaseURL: "https://example.test", Selector: "a"}
	got := Extract(d, html, nil)
	assert.Empty(t, got)
}

func TestExtractFitGirlSiteSpecificDropsNoise(t *testing.T) {
	html := `
		<html><body>
			<h2 class="entry-title"><a href="/page/2">2024-05-01</a></h2>
			<h2 class="entry-title"><a href="/upcoming">Upcoming Repacks</a></h2>
			<h2 class="entry-title"><a href="/game/elden-ring">Elden Ring</a></h2>
		</body></html>`

	d := catalog.SiteDescriptor{Name: "fitgirl", BaseURL: "https://fitgirl-repacks.site"}
	got := Extract(d, html, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Elden Ring", got[0].Title)
}

func TestExtractEmptyHTML(t *testing.T) {
	d := catalog.SiteDescriptor{Name: "x", BaseURL: "https://example.test"}
	assert.Nil(t, Extract(d, "", nil))
}

func TestExtractFiltersByTerms(t *testing.T) {
	html := `
		<html><body>
			<a class="topictitle" href="/topic/1">Elden Ring Deluxe</a>
			<a class="topictitle" href="/topic/2">Cyberpunk 2077</a>
		</body></html>`

	d := catalog.SiteDescriptor{Name: "generic-forum", BaseURL: "https://forum.test", Strategy: catalog.StrategyForumSearch, Selector: "a.topictitle"}
	got := Extract(d, html, []string{"elden"})
	require.Len(t, got, 1)
	assert.Equal(t, "Elden Ring Deluxe", got[0].Title)
}
