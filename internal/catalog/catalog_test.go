package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reekid420/website-searcher/internal/searcherr"
)

func writeCatalog(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoadValidCatalog(t *testing.T) {
	path := writeCatalog(t, `
global:
  default_timeout_seconds: 15
sites:
  fitgirl:
    base_url: "https://fitgirl-repacks.site"
    strategy: query_param
    query_param: s
    selector: "h2.entry-title a"
  gog-games:
    base_url: "https://gog-games.to"
    strategy: listing_page
    listing_path: "/all-games"
    selector: "a.game-title"
`)

	cat, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cat.All(), 2)

	d, ok := cat.Lookup("FitGirl")
	require.True(t, ok)
	assert.Equal(t, 15*time.Second, d.Timeout())
}

func TestLoadAppliesGlobalDefaults(t *testing.T) {
	path := writeCatalog(t, `
global:
  default_timeout_seconds: 45
  default_retry_attempts: 7
sites:
  dodi:
    base_url: "https://dodi-repacks.site"
    strategy: query_param
    query_param: s
    selector: "h2 a"
`)

	cat, err := Load(path)
	require.NoError(t, err)

	d, ok := cat.Lookup("dodi")
	require.True(t, ok)
	assert.Equal(t, 45, d.TimeoutSeconds)
	assert.Equal(t, 7, d.Retries())
}

func TestLoadRejectsQueryParamStrategyMissingParam(t *testing.T) {
	path := writeCatalog(t, `
sites:
  broken:
    base_url: "https://x.example"
    strategy: query_param
    selector: "a"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, searcherr.ErrConfigError)
}

func TestLoadRejectsListingPageMissingPath(t *testing.T) {
	path := writeCatalog(t, `
sites:
  broken:
    base_url: "https://x.example"
    strategy: listing_page
    selector: "a"
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsInvalidSelector(t *testing.T) {
	path := writeCatalog(t, `
sites:
  broken:
    base_url: "https://x.example"
    strategy: front_page
    selector: ":::not-a-selector"
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	path := writeCatalog(t, `
sites:
  broken:
    base_url: "https://x.example"
    strategy: telepathy
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestAllReturnsNameSortedOrder(t *testing.T) {
	path := writeCatalog(t, `
sites:
  zeta:
    base_url: "https://z.example"
    strategy: front_page
  alpha:
    base_url: "https://a.example"
    strategy: front_page
`)

	cat, err := Load(path)
	require.NoError(t, err)

	all := cat.All()
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "zeta", all[1].Name)
}
