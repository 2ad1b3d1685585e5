package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reekid420/website-searcher/internal/shared"
)

func r(site, title, url string) shared.SearchResult {
	return shared.SearchResult{Site: site, Title: title, URL: url}
}

func TestNormalizeTitleStripsNoiseAndSeparators(t *testing.T) {
	assert.Equal(t, "Elden Ring", NormalizeTitle("fitgirl", "Elden Ring - Repack -"))
	assert.Equal(t, "Cyberpunk 2077", NormalizeTitle("fitgirl", "  Cyberpunk   2077  "))
}

func TestNormalizeTitleDropsBracketOnlyFragment(t *testing.T) {
	assert.Equal(t, "", NormalizeTitle("fitgirl", "[Sponsored]"))
}

func TestProcessDedupesKeepingLongerTitle(t *testing.T) {
	in := []shared.SearchResult{
		r("fitgirl", "Elden Ring", "https://x/a"),
		r("FitGirl", "Elden Ring Deluxe Edition", "https://x/a"),
	}
	out := Process(in, Options{})
	assert.Len(t, out, 1)
	assert.Equal(t, "Elden Ring Deluxe Edition", out[0].Title)
}

func TestProcessAppliesPerSiteLimit(t *testing.T) {
	var in []shared.SearchResult
	for i := 0; i < 15; i++ {
		in = append(in, r("fitgirl", "Game", "https://x/"+string(rune('a'+i))))
	}
	out := Process(in, Options{PerSiteLimit: 5})
	assert.Len(t, out, 5)
}

func TestProcessAppliesGlobalCutoff(t *testing.T) {
	in := []shared.SearchResult{
		r("dodi", "A", "https://x/1"),
		r("fitgirl", "B", "https://x/2"),
		r("steamrip", "C", "https://x/3"),
	}
	out := Process(in, Options{GlobalCutoff: 2})
	assert.Len(t, out, 2)
}

func TestProcessOrdersBySiteAlphabetically(t *testing.T) {
	in := []shared.SearchResult{
		r("steamrip", "C", "https://x/3"),
		r("dodi", "A", "https://x/1"),
		r("fitgirl", "B", "https://x/2"),
	}
	out := Process(in, Options{})
	assert.Equal(t, []string{"dodi", "fitgirl", "steamrip"}, []string{out[0].Site, out[1].Site, out[2].Site})
}

func TestProcessDropsResultsThatNormalizeEmpty(t *testing.T) {
	in := []shared.SearchResult{r("fitgirl", "[Ad]", "https://x/1")}
	out := Process(in, Options{})
	assert.Empty(t, out)
}
