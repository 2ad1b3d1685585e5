// Package searcherr defines the search core's error taxonomy. Errors are
// plain sentinel values wrapped with fmt.Errorf so callers use errors.Is
// rather than type switches, in keeping with the rest of the module.
package searcherr

import "errors"

var (
	// ErrInvalidQuery: the phrase was empty, or contained only operators
	// (no terms and no phrases). Aborts the search.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnknownSite: the caller named a site absent from the catalog.
	// Reported once as a warning; the site is skipped.
	ErrUnknownSite = errors.New("unknown site")

	// ErrConfigError: the site descriptor file was unreadable or invalid.
	// Fatal at startup.
	ErrConfigError = errors.New("config error")

	// ErrCircuitOpen: the site is presently in its cool-off window.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrBlocked: a 403 or challenge marker was seen and solver escalation
	// was not available for this request. A solver that was tried and
	// failed reports ErrSolverFailed instead.
	ErrBlocked = errors.New("blocked")

	// ErrSolverFailed: the challenge solver reported an error, or its
	// subprocess exited non-zero.
	ErrSolverFailed = errors.New("solver failed")

	// ErrTransient: a network error, 5xx, or 429 exhausted its retries.
	ErrTransient = errors.New("transient failure")

	// ErrParse: extraction produced no candidates. Not a failure — the
	// site still reports Completed(0).
	ErrParse = errors.New("no candidates")

	// ErrCancelled: the search was cancelled by the caller.
	ErrCancelled = errors.New("cancelled")

	// ErrCacheIO: cache persistence failed. Non-fatal, logged.
	ErrCacheIO = errors.New("cache io error")

	// ErrNotFound: the site returned 404. Not retried.
	ErrNotFound = errors.New("not found")
)
