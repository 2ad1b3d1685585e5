// Package robots is an optional politeness pre-check, adapted from the
// teacher's crawler-wide robots.txt gate into a per-descriptor guard: most
// site descriptors search a dedicated search endpoint rather than crawl
// arbitrary pages, so respecting robots.txt defaults to off and is opted
// into per site via SiteDescriptor.RespectRobots. Unlike a one-shot crawl
// run, a search-core process can stay up for days, so a domain's fetched
// robots.txt is kept only for TTL rather than cached for the life of the
// process — a site that starts disallowing (or allowing) a path should be
// noticed on a reasonable horizon instead of never.
package robots

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/temoto/robotstxt"
)

// DefaultTTL bounds how long a fetched robots.txt is trusted before it is
// re-fetched on the next check against that domain.
const DefaultTTL = 30 * time.Minute

type entry struct {
	group     *robotstxt.Group
	fetchedAt time.Time
}

func (e entry) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.fetchedAt) > ttl
}

// Checker gates fetches against each domain's robots.txt, re-fetching it
// once its cached entry goes stale.
type Checker struct {
	userAgent string
	ttl       time.Duration
	client    *http.Client
	now       func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

// NewChecker builds a Checker that fetches robots.txt with the given
// timeout under the given User-Agent, refreshing entries after DefaultTTL.
func NewChecker(userAgent string, timeout time.Duration) *Checker {
	return &Checker{
		userAgent: userAgent,
		ttl:       DefaultTTL,
		client:    &http.Client{Timeout: timeout},
		now:       time.Now,
		entries:   make(map[string]entry),
	}
}

// IsAllowed reports whether targetURL may be fetched under this checker's
// User-Agent. A robots.txt that cannot be fetched or parsed is treated as
// permissive, matching the teacher's fail-open behavior.
func (c *Checker) IsAllowed(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		log.Warn().Str("url", targetURL).Err(err).Msg("robots: cannot parse target url")
		return true
	}

	e, ok := c.lookup(u.Host)
	if !ok {
		e = entry{group: c.fetch(u.Scheme, u.Host), fetchedAt: c.now()}
		c.store(u.Host, e)
	}

	if e.group == nil {
		return true
	}
	return e.group.Test(u.Path)
}

// lookup returns the live cached entry for domain, if any, treating a
// stale one as absent so the caller re-fetches it.
func (c *Checker) lookup(domain string) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[domain]
	if !ok || e.expired(c.now(), c.ttl) {
		return entry{}, false
	}
	return e, true
}

func (c *Checker) store(domain string, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[domain] = e
}

func (c *Checker) fetch(scheme, domain string) *robotstxt.Group {
	robotsURL := scheme + "://" + domain + "/robots.txt"
	resp, err := c.client.Get(robotsURL)
	if err != nil {
		log.Debug().Str("domain", domain).Err(err).Msg("robots: no robots.txt")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		log.Warn().Str("domain", domain).Err(err).Msg("robots: failed to parse robots.txt")
		return nil
	}

	return data.FindGroup(c.userAgent)
}
