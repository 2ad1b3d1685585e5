// Package orchestrator is the search core's driver: it resolves the
// effective site list for a query, dispatches a bounded worker pool across
// sites (and, within a site, its applicable query segments), and
// aggregates fetch/extract/post-process results into one summary while
// streaming progress over an eventbus.Bus. Grounded on the teacher's
// internal/frontier/in_mem_frontier.go for the bounded task-queue shape and
// internal/crawler/coordinator.go for the semaphore-gated worker loop.
package orchestrator

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"

	"github.com/reekid420/website-searcher/internal/cache"
	"github.com/reekid420/website-searcher/internal/catalog"
	"github.com/reekid420/website-searcher/internal/eventbus"
	"github.com/reekid420/website-searcher/internal/extractor"
	"github.com/reekid420/website-searcher/internal/metrics"
	"github.com/reekid420/website-searcher/internal/postprocess"
	"github.com/reekid420/website-searcher/internal/query"
	"github.com/reekid420/website-searcher/internal/robots"
	"github.com/reekid420/website-searcher/internal/searcherr"
	"github.com/reekid420/website-searcher/internal/shared"
	"github.com/reekid420/website-searcher/internal/urlbuild"
)

// MaxConcurrentSites bounds the worker pool, per spec.md §4.6.
const MaxConcurrentSites = 3

// SiteSelection narrows the catalog for one search, per spec.md §4.1: an
// explicit allow-list, or its complement.
type SiteSelection struct {
	Sites  []string
	Invert bool
}

// Options tunes one Run call.
type Options struct {
	Selection    SiteSelection
	Cache        *cache.Store
	RobotsCheck  *robots.Checker
	PerSiteLimit int
	GlobalCutoff int
	SortByTitle  bool
	NoCache      bool
}

// Orchestrator wires the catalog and per-site collaborators together and
// drives searches against them.
type Orchestrator struct {
	Catalog     *catalog.Catalog
	Fetcher     shared.Fetcher
	RateLimiter shared.RateLimiter
}

// New builds an Orchestrator from its collaborators.
func New(cat *catalog.Catalog, fetcher shared.Fetcher, limiter shared.RateLimiter) *Orchestrator {
	return &Orchestrator{Catalog: cat, Fetcher: fetcher, RateLimiter: limiter}
}

// siteOutcome is one site's contribution to the aggregate, collected by the
// worker pool and merged by the run loop.
type siteOutcome struct {
	site    string
	results []shared.SearchResult
	err     error
}

// Run executes a full search: cache probe, effective site resolution,
// bounded per-site dispatch, post-processing, cache insert, and terminal
// event emission. It returns once every dispatched site has reached a
// terminal state or ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, phrase string, opts Options, bus *eventbus.Bus) (shared.CompleteSummary, error) {
	start := time.Now()
	searchID := uuid.NewString()
	metrics.InFlightSearches.Inc()
	defer metrics.InFlightSearches.Dec()
	defer func() { metrics.SearchDuration.Observe(time.Since(start).Seconds()) }()

	parsed := query.Parse(phrase)
	if parsed.IsEmpty() && len(parsed.Segments) <= 1 {
		return shared.CompleteSummary{}, searcherr.ErrInvalidQuery
	}

	cacheKey := query.NormalizeKey(phrase)
	if !opts.NoCache && opts.Cache != nil {
		if cached, hit := opts.Cache.Get(cacheKey); hit {
			metrics.CacheHits.Inc()
			summary := summarize(searchID, cached, time.Since(start), true, nil)
			bus.PublishComplete(summary)
			return summary, nil
		}
	}
	metrics.CacheMisses.Inc()

	sites := o.effectiveSites(opts.Selection)
	if len(sites) == 0 {
		summary := summarize(searchID, nil, time.Since(start), false, nil)
		bus.PublishComplete(summary)
		return summary, nil
	}

	outcomes := o.dispatch(ctx, sites, parsed, opts, bus)

	// Per-site errors never abort the search: only ErrInvalidQuery/
	// ErrConfigError (checked before dispatch) do that. Every per-site
	// failure here is surfaced out-of-band via summary.Errors instead.
	var candidates []shared.SearchResult
	var errs *multierror.Error
	for _, oc := range outcomes {
		if oc.err != nil {
			errs = multierror.Append(errs, oc.err)
		}
		candidates = append(candidates, oc.results...)
	}

	processed := postprocess.Process(candidates, postprocess.Options{
		PerSiteLimit: opts.PerSiteLimit,
		GlobalCutoff: opts.GlobalCutoff,
		SortByTitle:  opts.SortByTitle,
	})

	if opts.Cache != nil && !opts.NoCache && len(processed) > 0 {
		opts.Cache.Put(cacheKey, processed)
	}

	summary := summarize(searchID, processed, time.Since(start), false, errorStrings(errs))
	bus.PublishComplete(summary)

	return summary, nil
}

// effectiveSites applies spec.md §4.1's selection rule: an explicit list
// (case-insensitive, unknown names dropped with a warning), its complement
// when Invert is set, or the whole catalog when Sites is empty.
func (o *Orchestrator) effectiveSites(sel SiteSelection) []catalog.SiteDescriptor {
	all := o.Catalog.All()
	if len(sel.Sites) == 0 {
		return all
	}

	wanted := make(map[string]bool, len(sel.Sites))
	for _, s := range sel.Sites {
		lower := strings.ToLower(s)
		if _, ok := o.Catalog.Lookup(lower); !ok {
			log.Warn().Str("site", s).Msg("orchestrator: unknown site in selection, skipping")
			continue
		}
		wanted[lower] = true
	}

	var out []catalog.SiteDescriptor
	for _, d := range all {
		isWanted := wanted[strings.ToLower(d.Name)]
		if isWanted != sel.Invert {
			out = append(out, d)
		}
	}
	return out
}

// dispatch runs one worker per site under a bounded semaphore, streaming
// progress events, and returns every site's outcome once all have finished
// or ctx is done.
func (o *Orchestrator) dispatch(ctx context.Context, sites []catalog.SiteDescriptor, q query.AdvancedQuery, opts Options, bus *eventbus.Bus) []siteOutcome {
	sem := make(chan struct{}, MaxConcurrentSites)
	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := make([]siteOutcome, 0, len(sites))

	for _, d := range sites {
		d := d
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				oc := siteOutcome{site: d.Name, err: searcherr.ErrCancelled}
				bus.PublishProgress(shared.SiteProgress{Site: d.Name, Status: shared.StatusFailed, Message: "cancelled"})
				mu.Lock()
				outcomes = append(outcomes, oc)
				mu.Unlock()
				return
			}
			defer func() { <-sem }()

			oc := o.runSite(ctx, d, q, opts, bus)
			mu.Lock()
			outcomes = append(outcomes, oc)
			mu.Unlock()
		}()
	}

	wg.Wait()
	return outcomes
}

// runSite carries one site through its state machine: Pending -> Fetching
// -> Parsing -> Completed|Failed, across every applicable query segment.
func (o *Orchestrator) runSite(ctx context.Context, d catalog.SiteDescriptor, q query.AdvancedQuery, opts Options, bus *eventbus.Bus) siteOutcome {
	site := d.Name
	bus.PublishProgress(shared.SiteProgress{Site: site, Status: shared.StatusPending})

	segments := q.ApplicableSegments(site)
	if len(segments) == 0 {
		segments = []query.AdvancedQuery{q}
	}

	if opts.RobotsCheck != nil && d.RespectRobots {
		target := urlbuild.Build(d, segments[0].SearchTerms())
		if !opts.RobotsCheck.IsAllowed(target) {
			bus.PublishProgress(shared.SiteProgress{Site: site, Status: shared.StatusFailed, Message: "disallowed by robots.txt"})
			return siteOutcome{site: site, err: searcherr.ErrBlocked}
		}
	}

	var all []shared.SearchResult
	var hardErr error

	for _, seg := range segments {
		results, err := o.runSegment(ctx, d, seg, bus)
		if err != nil {
			metrics.SitesFetched.WithLabelValues(site, outcomeLabel(err)).Inc()
			// ErrParse means extraction ran and found nothing for this
			// segment: not a failure, so it never overrides hardErr.
			if err != searcherr.ErrParse {
				hardErr = err
			}
			continue
		}
		metrics.SitesFetched.WithLabelValues(site, "ok").Inc()
		all = append(all, results...)
	}

	if hardErr != nil && len(all) == 0 {
		bus.PublishProgress(shared.SiteProgress{Site: site, Status: shared.StatusFailed, Message: hardErr.Error()})
		return siteOutcome{site: site, err: hardErr}
	}

	for _, r := range all {
		bus.PublishResult(r)
	}
	bus.PublishProgress(shared.SiteProgress{Site: site, Status: shared.StatusCompleted, ResultsCount: len(all)})
	return siteOutcome{site: site, results: all}
}

// runSegment fetches and extracts one applicable query segment for one
// site, applying the rate limiter, retry fetcher and extractor in turn.
func (o *Orchestrator) runSegment(ctx context.Context, d catalog.SiteDescriptor, seg query.AdvancedQuery, bus *eventbus.Bus) ([]shared.SearchResult, error) {
	site := d.Name

	if o.RateLimiter != nil {
		if err := o.RateLimiter.Acquire(ctx, site, d.RateLimitBaseDelay()); err != nil {
			if err == searcherr.ErrCircuitOpen {
				metrics.CircuitOpen.WithLabelValues(site).Inc()
			}
			return nil, err
		}
	}

	bus.PublishProgress(shared.SiteProgress{Site: site, Status: shared.StatusFetching})

	target := urlbuild.Build(d, seg.SearchTerms())
	stop := metrics.Time(site)
	fetchResult, err := o.Fetcher.Fetch(ctx, target, shared.FetchOptions{
		Timeout:        d.Timeout(),
		RetryAttempts:  d.Retries(),
		RequiresJS:     d.RequiresJS,
		RequiresSolver: d.RequiresSolver,
	})
	stop()

	if err != nil {
		if o.RateLimiter != nil {
			o.RateLimiter.Failure(site)
		}
		return nil, err
	}
	if o.RateLimiter != nil {
		o.RateLimiter.Success(site)
	}

	bus.PublishProgress(shared.SiteProgress{Site: site, Status: shared.StatusParsing})

	candidates := extractor.Extract(d, fetchResult.Body, seg.Terms)

	var filtered []shared.SearchResult
	for _, c := range candidates {
		if seg.Matches(c.Title, c.URL) {
			filtered = append(filtered, c)
		}
	}

	for _, r := range filtered {
		metrics.ResultsTotal.WithLabelValues(strings.ToLower(r.Site)).Inc()
	}

	if len(filtered) == 0 {
		return nil, searcherr.ErrParse
	}
	return filtered, nil
}

func outcomeLabel(err error) string {
	switch err {
	case searcherr.ErrCircuitOpen:
		return "circuit_open"
	case searcherr.ErrBlocked:
		return "blocked"
	case searcherr.ErrNotFound:
		return "not_found"
	case searcherr.ErrSolverFailed:
		return "solver_failed"
	case searcherr.ErrTransient:
		return "transient"
	case searcherr.ErrParse:
		return "no_candidates"
	default:
		return "error"
	}
}

func summarize(searchID string, results []shared.SearchResult, elapsed time.Duration, cacheHit bool, errs []string) shared.CompleteSummary {
	counts := make(map[string]int)
	var siteOrder []string
	for _, r := range results {
		site := strings.ToLower(r.Site)
		if counts[site] == 0 {
			siteOrder = append(siteOrder, site)
		}
		counts[site]++
	}
	sort.Strings(siteOrder)

	bySite := make([]shared.SiteCount, 0, len(siteOrder))
	for _, s := range siteOrder {
		bySite = append(bySite, shared.SiteCount{Site: s, Count: counts[s]})
	}

	return shared.CompleteSummary{
		SearchID:  searchID,
		Total:     len(results),
		BySite:    bySite,
		ElapsedMS: elapsed.Milliseconds(),
		CacheHit:  cacheHit,
		Errors:    errs,
	}
}

func errorStrings(errs *multierror.Error) []string {
	if errs == nil {
		return nil
	}
	out := make([]string, 0, len(errs.Errors))
	for _, e := range errs.Errors {
		out = append(out, e.Error())
	}
	return out
}
