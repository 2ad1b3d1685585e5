package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reekid420/website-searcher/internal/cache"
	"github.com/reekid420/website-searcher/internal/catalog"
	"github.com/reekid420/website-searcher/internal/eventbus"
	"github.com/reekid420/website-searcher/internal/searcherr"
	"github.com/reekid420/website-searcher/internal/shared"
)

// fakeFetcher returns a canned body per site, keyed by substring match on
// the target URL, so a single instance can back a whole catalog.
type fakeFetcher struct {
	bodies map[string]string
	errs   map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, target string, _ shared.FetchOptions) (shared.FetchResult, error) {
	for substr, err := range f.errs {
		if contains(target, substr) {
			return shared.FetchResult{}, err
		}
	}
	for substr, body := range f.bodies {
		if contains(target, substr) {
			return shared.FetchResult{StatusCode: 200, Body: body, FinalURL: target}, nil
		}
	}
	return shared.FetchResult{StatusCode: 200, Body: "<html></html>", FinalURL: target}, nil
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (substr == "" || indexOf(s, substr) >= 0)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

type noopLimiter struct{}

func (noopLimiter) Acquire(context.Context, string, time.Duration) error { return nil }
func (noopLimiter) Success(string)                                      {}
func (noopLimiter) Failure(string)                                      {}

func writeCatalog(t *testing.T, doc string) *catalog.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	cat, err := catalog.Load(path)
	require.NoError(t, err)
	return cat
}

const twoSiteCatalog = `
sites:
  fitgirl:
    base_url: "https://fitgirl.test"
    strategy: query_param
    query_param: s
    selector: "h2.entry-title a"
  dodi:
    base_url: "https://dodi.test"
    strategy: query_param
    query_param: s
    selector: "h2.entry-title a"
`

func TestRunAggregatesAcrossSites(t *testing.T) {
	cat := writeCatalog(t, twoSiteCatalog)
	body := `<h2 class="entry-title"><a href="/g/elden-ring">Elden Ring</a></h2>`
	f := &fakeFetcher{bodies: map[string]string{"fitgirl.test": body, "dodi.test": body}}

	o := New(cat, f, noopLimiter{})
	bus := eventbus.New()
	summary, err := o.Run(context.Background(), "elden ring", Options{}, bus)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Len(t, summary.BySite, 2)
}

func TestRunHonorsSiteSelection(t *testing.T) {
	cat := writeCatalog(t, twoSiteCatalog)
	body := `<h2 class="entry-title"><a href="/g/elden-ring">Elden Ring</a></h2>`
	f := &fakeFetcher{bodies: map[string]string{"fitgirl.test": body, "dodi.test": body}}

	o := New(cat, f, noopLimiter{})
	bus := eventbus.New()
	summary, err := o.Run(context.Background(), "elden ring", Options{
		Selection: SiteSelection{Sites: []string{"fitgirl"}},
	}, bus)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, "fitgirl", summary.BySite[0].Site)
}

func TestRunUsesCacheOnSecondCall(t *testing.T) {
	cat := writeCatalog(t, twoSiteCatalog)
	body := `<h2 class="entry-title"><a href="/g/elden-ring">Elden Ring</a></h2>`
	f := &fakeFetcher{bodies: map[string]string{"fitgirl.test": body, "dodi.test": body}}
	store := cache.New(cache.MinSize, time.Hour, nil)

	o := New(cat, f, noopLimiter{})

	bus1 := eventbus.New()
	first, err := o.Run(context.Background(), "elden ring", Options{Cache: store}, bus1)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	bus2 := eventbus.New()
	second, err := o.Run(context.Background(), "elden ring", Options{Cache: store}, bus2)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Total, second.Total)
}

func TestRunRejectsEmptyQuery(t *testing.T) {
	cat := writeCatalog(t, twoSiteCatalog)
	f := &fakeFetcher{}
	o := New(cat, f, noopLimiter{})
	bus := eventbus.New()

	_, err := o.Run(context.Background(), "site:fitgirl -demo", Options{}, bus)
	assert.ErrorIs(t, err, searcherr.ErrInvalidQuery)
}

func TestRunAggregatesPartialFailures(t *testing.T) {
	cat := writeCatalog(t, twoSiteCatalog)
	body := `<h2 class="entry-title"><a href="/g/elden-ring">Elden Ring</a></h2>`
	f := &fakeFetcher{
		bodies: map[string]string{"fitgirl.test": body},
		errs:   map[string]error{"dodi.test": searcherr.ErrNotFound},
	}

	o := New(cat, f, noopLimiter{})
	bus := eventbus.New()
	summary, err := o.Run(context.Background(), "elden ring", Options{}, bus)

	// A single site failing doesn't abort the whole search: the failure is
	// surfaced out-of-band via summary.Errors, not as a returned error.
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.NotEmpty(t, summary.Errors)
}

func TestRunEmitsProgressAndCompleteEvents(t *testing.T) {
	cat := writeCatalog(t, twoSiteCatalog)
	body := `<h2 class="entry-title"><a href="/g/elden-ring">Elden Ring</a></h2>`
	f := &fakeFetcher{bodies: map[string]string{"fitgirl.test": body, "dodi.test": body}}

	o := New(cat, f, noopLimiter{})
	bus := eventbus.New()
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	var sawComplete bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range ch {
			if evt.Kind == eventbus.KindComplete {
				sawComplete = true
			}
		}
	}()

	_, err := o.Run(context.Background(), "elden ring", Options{}, bus)
	require.NoError(t, err)
	<-done
	assert.True(t, sawComplete)
}
