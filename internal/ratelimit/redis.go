package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reekid420/website-searcher/internal/searcherr"
)

// Redis is an optional distributed RateLimiter backend: several
// search-core processes point at the same Redis instance and share one
// rate budget and circuit state per site, adapted from the teacher's
// internal/limiter/redis_rate_limiter.go. State is stored as a Redis hash
// per site ("ratelimit:<site>") with fields matching RateLimiterState in
// spec.md §3.
type Redis struct {
	client   *redis.Client
	settings Settings
	prefix   string
}

// NewRedis builds a distributed limiter over an existing Redis client.
func NewRedis(client *redis.Client, settings Settings) *Redis {
	return &Redis{client: client, settings: settings.WithDefaults(), prefix: "ratelimit:"}
}

func (l *Redis) key(site string) string { return l.prefix + site }

type redisState struct {
	lastRequestUnixMS int64
	baseDelayMS       int64
	currentDelayMS    int64
	failures          int
	openUntilUnixMS   int64
}

func (l *Redis) load(ctx context.Context, site string, baseDelay time.Duration) (redisState, error) {
	vals, err := l.client.HGetAll(ctx, l.key(site)).Result()
	if err != nil {
		return redisState{}, err
	}
	if len(vals) == 0 {
		ms := baseDelay.Milliseconds()
		return redisState{baseDelayMS: ms, currentDelayMS: ms}, nil
	}

	var st redisState
	st.lastRequestUnixMS, _ = strconv.ParseInt(vals["last_request_ms"], 10, 64)
	st.baseDelayMS, _ = strconv.ParseInt(vals["base_delay_ms"], 10, 64)
	st.currentDelayMS, _ = strconv.ParseInt(vals["current_delay_ms"], 10, 64)
	st.failures, _ = strconv.Atoi(vals["failures"])
	st.openUntilUnixMS, _ = strconv.ParseInt(vals["open_until_ms"], 10, 64)
	if st.baseDelayMS == 0 {
		st.baseDelayMS = baseDelay.Milliseconds()
	}
	if st.currentDelayMS == 0 {
		st.currentDelayMS = st.baseDelayMS
	}
	return st, nil
}

func (l *Redis) save(ctx context.Context, site string, st redisState) error {
	return l.client.HSet(ctx, l.key(site), map[string]interface{}{
		"last_request_ms":  st.lastRequestUnixMS,
		"base_delay_ms":    st.baseDelayMS,
		"current_delay_ms": st.currentDelayMS,
		"failures":         st.failures,
		"open_until_ms":    st.openUntilUnixMS,
	}).Err()
}

// Acquire mirrors InMemory.Acquire but reads/writes shared state in Redis.
func (l *Redis) Acquire(ctx context.Context, site string, baseDelay time.Duration) error {
	st, err := l.load(ctx, site, baseDelay)
	if err != nil {
		return fmt.Errorf("%w: %v", searcherr.ErrCacheIO, err)
	}

	now := time.Now()
	if st.openUntilUnixMS > 0 && now.UnixMilli() < st.openUntilUnixMS {
		return searcherr.ErrCircuitOpen
	}

	currentDelay := time.Duration(st.currentDelayMS) * time.Millisecond
	lastRequest := time.UnixMilli(st.lastRequestUnixMS)
	wait := lastRequest.Add(currentDelay).Sub(now)
	if wait < 0 {
		wait = 0
	}
	jitterMax := time.Duration(float64(currentDelay) * l.settings.JitterFraction)
	if jitterMax > 0 {
		wait += time.Duration(rand.Int63n(int64(jitterMax) + 1))
	}

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	st.lastRequestUnixMS = time.Now().UnixMilli()
	if st.currentDelayMS == 0 {
		st.currentDelayMS = baseDelay.Milliseconds()
	}
	return l.save(ctx, site, st)
}

// Success decays the shared delay toward the site's base delay (never
// below it) and clears the failure count.
func (l *Redis) Success(site string) {
	ctx := context.Background()
	st, err := l.load(ctx, site, 0)
	if err != nil {
		return
	}
	st.failures = 0
	decayed := int64(float64(st.currentDelayMS) * 0.5)
	if decayed < st.baseDelayMS {
		decayed = st.baseDelayMS
	}
	st.currentDelayMS = decayed
	_ = l.save(ctx, site, st)
}

// Failure applies backoff and trips the shared circuit once max_failures
// is reached, visible to every process sharing this Redis instance.
func (l *Redis) Failure(site string) {
	ctx := context.Background()
	st, err := l.load(ctx, site, 0)
	if err != nil {
		return
	}
	st.failures++

	next := int64(float64(st.currentDelayMS) * l.settings.BackoffMultiplier)
	if max := l.settings.MaxDelay.Milliseconds(); next > max {
		next = max
	}
	st.currentDelayMS = next

	if st.failures >= l.settings.MaxFailures {
		st.openUntilUnixMS = time.Now().Add(l.settings.CoolOff).UnixMilli()
	}
	_ = l.save(ctx, site, st)
}
