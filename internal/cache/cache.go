// Package cache implements the TTL+LRU result cache of spec.md §4.9: an
// ordered (most-recent-first) list of entries, capped at [3,20], persisted
// atomically to a platform cache file. Grounded on
// original_source/crates/core/src/cache.rs for the LRU/TTL semantics.
package cache

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/reekid420/website-searcher/internal/shared"
)

const (
	MinSize    = 3
	MaxSize    = 20
	DefaultTTL = 12 * time.Hour
)

// Entry is one cached search's results.
type Entry struct {
	QueryKey  string               `json:"query"`
	Results   []shared.SearchResult `json:"results"`
	CreatedAt int64                `json:"created_at_unix_seconds"`
	TTL       int64                `json:"ttl_seconds"`
}

func (e Entry) expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	age := now.Unix() - e.CreatedAt
	return age > e.TTL
}

// Persister loads and atomically saves the ordered entry list. The
// default implementation is a local JSON file (temp+rename); an optional
// S3Persister lets a team share one cache across machines.
type Persister interface {
	Load() ([]Entry, error)
	Save(entries []Entry) error
}

// Store is the process-wide, serialized cache described in spec.md §4.9
// / §5: readers are lock-free against each other, writers exclude all.
type Store struct {
	mu        sync.RWMutex
	entries   []Entry // most-recent-first
	maxSize   int
	ttl       time.Duration
	persister Persister
	now       func() time.Time
}

// New builds a Store backed by persister, loading and pruning any
// existing entries. A failure to load is logged and the cache starts
// empty, per spec.md §4.9's failure mode.
func New(maxSize int, ttl time.Duration, persister Persister) *Store {
	if maxSize < MinSize {
		maxSize = MinSize
	}
	if maxSize > MaxSize {
		maxSize = MaxSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s := &Store{maxSize: maxSize, ttl: ttl, persister: persister, now: time.Now}

	if persister != nil {
		entries, err := persister.Load()
		if err != nil {
			log.Warn().Err(err).Msg("cache: failed to load persisted entries, starting empty")
		} else {
			s.entries = pruneExpired(entries, s.now())
		}
	}

	return s
}

// Get returns the cached results for key if a non-expired entry exists,
// moving it to the front (most-recently-used).
func (s *Store) Get(key string) ([]shared.SearchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for i, e := range s.entries {
		if e.QueryKey != key {
			continue
		}
		if e.expired(now) {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.persist()
			return nil, false
		}
		s.moveToFront(i)
		return append([]shared.SearchResult(nil), s.entries[0].Results...), true
	}

	return nil, false
}

// Put upserts key's results, moving the entry to the front and evicting
// the least-recently-used entry if the store is at capacity and key is
// new, per spec.md §4.9.
func (s *Store) Put(key string, results []shared.SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{
		QueryKey:  key,
		Results:   results,
		CreatedAt: s.now().Unix(),
		TTL:       int64(s.ttl.Seconds()),
	}

	for i, e := range s.entries {
		if e.QueryKey == key {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}

	s.entries = append([]Entry{entry}, s.entries...)
	if len(s.entries) > s.maxSize {
		s.entries = s.entries[:s.maxSize]
	}

	s.persist()
}

// Remove deletes key from the cache, if present.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.QueryKey == key {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.persist()
			return
		}
	}
}

// Clear empties the cache.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.persist()
}

// SetMaxSize clamps size to [MinSize, MaxSize] and evicts from the tail
// if the current size now exceeds it, per spec.md §4.9.
func (s *Store) SetMaxSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if size < MinSize {
		size = MinSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	s.maxSize = size

	if len(s.entries) > s.maxSize {
		s.entries = s.entries[:s.maxSize]
		s.persist()
	}
}

// Len returns the current entry count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats is a snapshot used by the CLI's "cache stats" subcommand.
type Stats struct {
	Size    int
	MaxSize int
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Size: len(s.entries), MaxSize: s.maxSize}
}

func (s *Store) moveToFront(i int) {
	if i == 0 {
		return
	}
	entry := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.entries = append([]Entry{entry}, s.entries...)
}

// persist writes the entry list via the configured Persister. Write
// failures are logged and swallowed, per spec.md §4.9's non-fatal
// failure mode — the caller keeps the in-memory state either way.
func (s *Store) persist() {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(append([]Entry(nil), s.entries...)); err != nil {
		log.Warn().Err(err).Msg("cache: failed to persist entries")
	}
}

func pruneExpired(entries []Entry, now time.Time) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.expired(now) {
			out = append(out, e)
		}
	}
	return out
}
