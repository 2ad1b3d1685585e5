// Package fetcher implements the HTTP fetch layer of the search core:
// shared client, cookie/header forwarding, redirect handling, status
// classification, and challenge-solver/browser-helper delegation, per
// spec.md §4.5. Grounded on the teacher's internal/crawler/web_fetcher.go
// for the base client shape and internal/crawler/retry_fetcher.go for the
// exponential-backoff retry loop.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"

	"github.com/reekid420/website-searcher/internal/browserhelper"
	"github.com/reekid420/website-searcher/internal/searcherr"
	"github.com/reekid420/website-searcher/internal/shared"
	"github.com/reekid420/website-searcher/internal/solver"
)

// cloudflareMarkers are body substrings that indicate a challenge page
// even when the status code isn't a bare 403.
var cloudflareMarkers = []string{
	"Checking your browser before accessing",
	"cf-browser-verification",
	"Just a moment...",
	"__cf_chl_",
}

// HTTPFetcher is the default shared.Fetcher: a direct HTTPS client with a
// process-stable User-Agent, optional solver escalation, and optional
// browser-helper delegation.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	solver    *solver.Client
	browser   *browserhelper.Runner
}

// New builds an HTTPFetcher. solver and browser may be nil if the process
// has no challenge solver or browser helper configured.
func New(userAgent string, solver *solver.Client, browser *browserhelper.Runner) *HTTPFetcher {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &HTTPFetcher{
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		solver:    solver,
		browser:   browser,
	}
}

// Fetch retrieves url per the routing table in spec.md §4.5: browser helper
// first if requires_js and a helper is configured, then the solver if
// requires_solver and enabled, else a direct GET with 403/challenge
// escalation to the solver when available.
func (f *HTTPFetcher) Fetch(ctx context.Context, target string, opts shared.FetchOptions) (shared.FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(opts.Timeout))
	defer cancel()

	if opts.RequiresJS && f.browser != nil {
		html, err := f.browser.Render(ctx, target, browserhelper.Options{Cookies: cookieString(opts.Cookies)})
		if err != nil {
			return shared.FetchResult{}, err
		}
		return shared.FetchResult{StatusCode: http.StatusOK, Body: html, FinalURL: target}, nil
	}

	if opts.RequiresSolver && !opts.NoSolver && f.solver != nil {
		html, err := f.solver.Solve(ctx, target, opts.Cookies)
		if err != nil {
			return shared.FetchResult{}, err
		}
		return shared.FetchResult{StatusCode: http.StatusOK, Body: html, FinalURL: target, FromSolver: true}, nil
	}

	return f.direct(ctx, target, opts, false)
}

func (f *HTTPFetcher) direct(ctx context.Context, target string, opts shared.FetchOptions, solverAlreadyTried bool) (shared.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return shared.FetchResult{}, fmt.Errorf("%w: %v", searcherr.ErrTransient, err)
	}
	f.applyHeaders(req, opts)
	f.applyCookies(req, opts.Cookies)

	resp, err := f.client.Do(req)
	if err != nil {
		return shared.FetchResult{}, fmt.Errorf("%w: %v", searcherr.ErrTransient, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return shared.FetchResult{}, fmt.Errorf("%w: reading body: %v", searcherr.ErrTransient, err)
	}
	body := string(bodyBytes)

	switch {
	case resp.StatusCode == http.StatusOK:
		if looksChallenged(body) && !solverAlreadyTried && opts.RequiresSolver && !opts.NoSolver && f.solver != nil {
			log.Info().Str("url", target).Msg("challenge markers in 200 body, escalating to solver")
			html, serr := f.solver.Solve(ctx, target, opts.Cookies)
			if serr != nil {
				return shared.FetchResult{}, serr
			}
			return shared.FetchResult{StatusCode: http.StatusOK, Body: html, FinalURL: target, FromSolver: true}, nil
		}
		return shared.FetchResult{
			StatusCode:  resp.StatusCode,
			Body:        body,
			FinalURL:    resp.Request.URL.String(),
			ContentType: resp.Header.Get("Content-Type"),
		}, nil

	case resp.StatusCode == http.StatusForbidden || looksChallenged(body):
		if !solverAlreadyTried && opts.RequiresSolver && !opts.NoSolver && f.solver != nil {
			html, serr := f.solver.Solve(ctx, target, opts.Cookies)
			if serr != nil {
				return shared.FetchResult{}, serr
			}
			return shared.FetchResult{StatusCode: http.StatusOK, Body: html, FinalURL: target, FromSolver: true}, nil
		}
		return shared.FetchResult{}, searcherr.ErrBlocked

	case resp.StatusCode == http.StatusNotFound:
		return shared.FetchResult{}, searcherr.ErrNotFound

	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return shared.FetchResult{}, fmt.Errorf("%w: status %d", searcherr.ErrTransient, resp.StatusCode)

	default:
		return shared.FetchResult{}, fmt.Errorf("%w: unexpected status %d", searcherr.ErrTransient, resp.StatusCode)
	}
}

func (f *HTTPFetcher) applyHeaders(req *http.Request, opts shared.FetchOptions) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
}

func (f *HTTPFetcher) applyCookies(req *http.Request, cookies []shared.Cookie) {
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
}

func looksChallenged(body string) bool {
	for _, marker := range cloudflareMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

func cookieString(cookies []shared.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// processUserAgent is picked once per process so every request in a run
// advertises the same User-Agent, per spec.md §4.5.
var processUserAgent = userAgents[time.Now().UnixNano()%int64(len(userAgents))]

// StableUserAgent returns overrideUA if set, else the process-stable
// randomized User-Agent chosen at package init.
func StableUserAgent(overrideUA string) string {
	if overrideUA != "" {
		return overrideUA
	}
	return processUserAgent
}
