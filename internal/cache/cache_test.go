package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reekid420/website-searcher/internal/shared"
)

type memPersister struct {
	saved []Entry
}

func (m *memPersister) Load() ([]Entry, error) { return m.saved, nil }
func (m *memPersister) Save(entries []Entry) error {
	m.saved = append([]Entry(nil), entries...)
	return nil
}

func result(site, title string) shared.SearchResult {
	return shared.SearchResult{Site: site, Title: title, URL: "https://" + site + "/x"}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := New(MinSize, time.Hour, nil)
	s.Put("elden ring", []shared.SearchResult{result("fitgirl", "Elden Ring")})

	got, ok := s.Get("elden ring")
	require.True(t, ok)
	assert.Equal(t, "Elden Ring", got[0].Title)
}

func TestGetMissingReturnsFalse(t *testing.T) {
	s := New(MinSize, time.Hour, nil)
	_, ok := s.Get("nothing here")
	assert.False(t, ok)
}

func TestSizeClampedToRange(t *testing.T) {
	s := New(1, time.Hour, nil)
	assert.Equal(t, MinSize, s.Stats().MaxSize)

	s2 := New(1000, time.Hour, nil)
	assert.Equal(t, MaxSize, s2.Stats().MaxSize)
}

func TestPutEvictsLeastRecentlyUsed(t *testing.T) {
	s := New(MinSize, time.Hour, nil)
	s.Put("a", []shared.SearchResult{result("fitgirl", "A")})
	s.Put("b", []shared.SearchResult{result("fitgirl", "B")})
	s.Put("c", []shared.SearchResult{result("fitgirl", "C")})
	s.Put("d", []shared.SearchResult{result("fitgirl", "D")})

	assert.Equal(t, MinSize, s.Len())
	_, ok := s.Get("a")
	assert.False(t, ok, "least-recently-used entry should have been evicted")
}

func TestGetMovesEntryToFront(t *testing.T) {
	s := New(MinSize, time.Hour, nil)
	s.Put("a", []shared.SearchResult{result("fitgirl", "A")})
	s.Put("b", []shared.SearchResult{result("fitgirl", "B")})
	s.Put("c", []shared.SearchResult{result("fitgirl", "C")})

	_, ok := s.Get("a") // bump "a" back to the front
	require.True(t, ok)

	s.Put("d", []shared.SearchResult{result("fitgirl", "D")}) // evicts least-recently-used: "b"

	_, ok = s.Get("a")
	assert.True(t, ok)
	_, ok = s.Get("b")
	assert.False(t, ok)
}

func TestExpiredEntryIsPrunedOnGet(t *testing.T) {
	now := time.Now()
	s := New(MinSize, time.Hour, nil)
	s.now = func() time.Time { return now }
	s.Put("stale", []shared.SearchResult{result("fitgirl", "Stale")})

	s.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, ok := s.Get("stale")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestPersisterRoundTrip(t *testing.T) {
	p := &memPersister{}
	s := New(MinSize, time.Hour, p)
	s.Put("elden ring", []shared.SearchResult{result("fitgirl", "Elden Ring")})

	require.Len(t, p.saved, 1)

	reloaded := New(MinSize, time.Hour, p)
	got, ok := reloaded.Get("elden ring")
	require.True(t, ok)
	assert.Equal(t, "Elden Ring", got[0].Title)
}

func TestSetMaxSizeEvictsFromTail(t *testing.T) {
	s := New(10, time.Hour, nil)
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		s.Put(k, []shared.SearchResult{result("fitgirl", k)})
	}
	s.SetMaxSize(MinSize)
	assert.Equal(t, MinSize, s.Len())
}
