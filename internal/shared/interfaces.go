// Package shared holds the small cross-cutting types and interfaces that
// every layer of the search core depends on, mirroring how the original
// crawler kept its wire types and collaborator interfaces in one place.
package shared

import (
	"context"
	"time"
)

// SearchResult is a single normalized hit returned by a site's extractor.
type SearchResult struct {
	Site  string `json:"site"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SiteStatus is a step in a per-site progress state machine.
type SiteStatus string

const (
	StatusPending   SiteStatus = "pending"
	StatusFetching  SiteStatus = "fetching"
	StatusParsing   SiteStatus = "parsing"
	StatusCompleted SiteStatus = "completed"
	StatusFailed    SiteStatus = "failed"
)

// SiteProgress is a snapshot of one site's state during a search.
type SiteProgress struct {
	Site         string     `json:"site"`
	Status       SiteStatus `json:"status"`
	ResultsCount int        `json:"results_count"`
	Message      string     `json:"message,omitempty"`
}

// CompleteSummary is emitted once per search when the aggregator finishes.
type CompleteSummary struct {
	SearchID  string      `json:"search_id"`
	Total     int         `json:"total"`
	BySite    []SiteCount `json:"by_site"`
	ElapsedMS int64       `json:"elapsed_ms"`
	CacheHit  bool        `json:"cache_hit"`
	Errors    []string    `json:"errors,omitempty"`
}

// SiteCount is one entry of CompleteSummary.BySite.
type SiteCount struct {
	Site  string `json:"site"`
	Count int    `json:"count"`
}

// FetchResult is what an HTTP fetch (direct, solver, or browser-helper
// backed) hands back to the extractor.
type FetchResult struct {
	StatusCode  int
	Body        string
	FinalURL    string
	FromSolver  bool
	ContentType string
}

// Fetcher retrieves the HTML body for a URL, honoring the descriptor's
// timeout, retry and challenge-routing policy.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (FetchResult, error)
}

// FetchOptions carries per-request overrides threaded down from the
// orchestrator: cookies to forward, extra headers, and whether this site
// requires solver/browser-helper routing.
type FetchOptions struct {
	Timeout        time.Duration
	RetryAttempts  int
	Cookies        []Cookie
	Headers        map[string]string
	RequiresJS     bool
	RequiresSolver bool
	NoSolver       bool
}

// Cookie is a minimal, transport-agnostic cookie the caller may forward to
// a site and, in turn, to the challenge solver.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
}

// RateLimiter gates outbound requests to a single site, enforcing the
// minimum spacing and circuit-breaker described in the rate-limiter
// component of the search core.
type RateLimiter interface {
	// Acquire blocks until it is polite to issue a request to site, or
	// returns an error immediately if the site's circuit is open.
	Acquire(ctx context.Context, site string, baseDelay time.Duration) error
	// Success reports a successful request, decaying the site's delay.
	Success(site string)
	// Failure reports a backoff-worthy failure, possibly tripping the
	// circuit.
	Failure(site string)
}
