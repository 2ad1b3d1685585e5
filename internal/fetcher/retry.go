package fetcher

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/reekid420/website-searcher/internal/searcherr"
	"github.com/reekid420/website-searcher/internal/shared"
)

// retryBaseDelay and retryMaxDelay bound the fetcher's exponential
// backoff between attempts, per spec.md §4.5.
const (
	retryBaseDelay = 300 * time.Millisecond
	retryMaxDelay  = 1200 * time.Millisecond
)

// RetryFetcher wraps a shared.Fetcher with exponential backoff between
// tries, retrying only errors classified as transient (connect errors,
// timeout, 5xx, 429). Grounded on the teacher's
// internal/crawler/retry_fetcher.go.
type RetryFetcher struct {
	Base shared.Fetcher
	// Attempts is the fallback try count used when a call's
	// shared.FetchOptions.RetryAttempts is unset; per-site config always
	// takes precedence.
	Attempts int
}

// Fetch retries Base.Fetch up to opts.RetryAttempts times (falling back to
// r.Attempts, then 1, when unset) on transient failures. Non-transient
// errors (NotFound, Blocked, SolverFailed, CircuitOpen) return immediately
// without consuming a retry.
func (r *RetryFetcher) Fetch(ctx context.Context, url string, opts shared.FetchOptions) (shared.FetchResult, error) {
	attempts := opts.RetryAttempts
	if attempts <= 0 {
		attempts = r.Attempts
	}
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		result, err := r.Base.Fetch(ctx, url, opts)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !errors.Is(err, searcherr.ErrTransient) {
			return shared.FetchResult{}, err
		}

		if i == attempts-1 {
			break
		}

		backoff := nextBackoff(i)
		log.Debug().Str("url", url).Int("attempt", i+1).Dur("backoff", backoff).Msg("retrying fetch")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return shared.FetchResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	return shared.FetchResult{}, lastErr
}

func nextBackoff(attempt int) time.Duration {
	backoff := time.Duration(math.Min(
		float64(retryBaseDelay)*math.Pow(2, float64(attempt)),
		float64(retryMaxDelay),
	))
	jitter := time.Duration(rand.Float64() * float64(backoff) * 0.5)
	if backoff+jitter > retryMaxDelay {
		return retryMaxDelay
	}
	return backoff + jitter
}
