// Package ratelimit implements the per-site rate limiter and circuit
// breaker described in spec.md §4.4: adaptive delay with exponential
// backoff on failure, and a short-term circuit trip after repeated
// failures. The in-memory implementation is grounded on
// original_source/crates/core/src/rate_limiter.rs; the Redis-backed
// implementation is grounded on the teacher's
// internal/limiter/redis_rate_limiter.go and lets several search-core
// processes share one rate budget per site.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/reekid420/website-searcher/internal/searcherr"
)

// Settings tunes the limiter's backoff curve. Zero-value Settings resolves
// to the spec's defaults via WithDefaults.
type Settings struct {
	MaxDelay          time.Duration
	BackoffMultiplier float64
	JitterFraction    float64
	MaxFailures       int
	CoolOff           time.Duration
}

// WithDefaults fills any zero field with spec.md §4.4's defaults.
func (s Settings) WithDefaults() Settings {
	if s.MaxDelay == 0 {
		s.MaxDelay = 30 * time.Second
	}
	if s.BackoffMultiplier == 0 {
		s.BackoffMultiplier = 2.0
	}
	if s.JitterFraction == 0 {
		s.JitterFraction = 0.25
	}
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.CoolOff == 0 {
		s.CoolOff = 60 * time.Second
	}
	return s
}

type siteState struct {
	lastRequestAt       time.Time
	baseDelay           time.Duration
	currentDelay        time.Duration
	consecutiveFailures int
	openUntil           time.Time
}

// InMemory is the default, single-process RateLimiter implementation.
type InMemory struct {
	settings Settings
	mu       sync.Mutex
	sites    map[string]*siteState
	now      func() time.Time
}

// NewInMemory builds an in-memory limiter with the given settings.
func NewInMemory(settings Settings) *InMemory {
	return &InMemory{
		settings: settings.WithDefaults(),
		sites:    make(map[string]*siteState),
		now:      time.Now,
	}
}

func (l *InMemory) state(site string, baseDelay time.Duration) *siteState {
	st, ok := l.sites[site]
	if !ok {
		st = &siteState{baseDelay: baseDelay, currentDelay: baseDelay}
		l.sites[site] = st
	}
	return st
}

// Acquire blocks (outside the lock) until the minimum spacing for site has
// elapsed, or returns ErrCircuitOpen immediately if the circuit is tripped.
func (l *InMemory) Acquire(ctx context.Context, site string, baseDelay time.Duration) error {
	l.mu.Lock()
	st := l.state(site, baseDelay)
	now := l.now()

	if now.Before(st.openUntil) {
		l.mu.Unlock()
		return searcherr.ErrCircuitOpen
	}

	wait := st.lastRequestAt.Add(st.currentDelay).Sub(now)
	if wait < 0 {
		wait = 0
	}
	jitterMax := time.Duration(float64(st.currentDelay) * l.settings.JitterFraction)
	if jitterMax > 0 {
		wait += time.Duration(rand.Int63n(int64(jitterMax) + 1))
	}
	l.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	l.mu.Lock()
	st = l.state(site, baseDelay)
	if l.now().Before(st.openUntil) {
		l.mu.Unlock()
		return searcherr.ErrCircuitOpen
	}
	st.lastRequestAt = l.now()
	l.mu.Unlock()
	return nil
}

// Success decays current_delay toward the base delay and resets the
// failure count.
func (l *InMemory) Success(site string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.sites[site]
	if !ok {
		return
	}
	st.consecutiveFailures = 0
	decayed := time.Duration(float64(st.currentDelay) * 0.5)
	if decayed < st.baseDelay {
		decayed = st.baseDelay
	}
	st.currentDelay = decayed
}

// Failure applies exponential backoff and, once max_failures is reached,
// trips the circuit for CoolOff.
func (l *InMemory) Failure(site string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.sites[site]
	if !ok {
		// Failure reported before any Acquire; nothing to back off yet.
		return
	}
	st.consecutiveFailures++

	next := time.Duration(float64(st.currentDelay) * l.settings.BackoffMultiplier)
	if next > l.settings.MaxDelay {
		next = l.settings.MaxDelay
	}
	st.currentDelay = next

	if st.consecutiveFailures >= l.settings.MaxFailures {
		st.openUntil = l.now().Add(l.settings.CoolOff)
	}
}
