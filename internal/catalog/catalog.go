// Package catalog loads and validates the static table of site descriptors
// the search core dispatches against. It is read once at startup; every
// SiteDescriptor is immutable for the life of the process.
package catalog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/reekid420/website-searcher/internal/searcherr"
)

// Strategy is one of the five URL/extraction shapes a descriptor can take.
type Strategy string

const (
	StrategyQueryParam   Strategy = "query_param"
	StrategyFrontPage    Strategy = "front_page"
	StrategyPathEncoded  Strategy = "path_encoded"
	StrategyListingPage  Strategy = "listing_page"
	StrategyForumSearch  Strategy = "forum_search"
)

// SiteDescriptor is the immutable record describing how to search a single
// site: its URL shape, selectors, and politeness/resilience knobs.
type SiteDescriptor struct {
	Name         string   `yaml:"name"`
	BaseURL      string   `yaml:"base_url"`
	Strategy     Strategy `yaml:"strategy"`
	QueryParam   string   `yaml:"query_param,omitempty"`
	ListingPath  string   `yaml:"listing_path,omitempty"`
	ForumIDs     []string `yaml:"forum_ids,omitempty"`

	Selector          string   `yaml:"selector"`
	FallbackSelectors []string `yaml:"fallback_selectors,omitempty"`

	TitleSource string `yaml:"title_source"` // "text" or an attribute name
	URLSource   string `yaml:"url_source"`   // usually "href"

	RequiresJS      bool `yaml:"requires_js,omitempty"`
	RequiresSolver  bool `yaml:"requires_solver,omitempty"`
	RespectRobots   bool `yaml:"respect_robots,omitempty"`

	TimeoutSeconds      int `yaml:"timeout_seconds,omitempty"`
	RetryAttempts       int `yaml:"retry_attempts,omitempty"`
	RateLimitBaseDelayMS int `yaml:"rate_limit_base_delay_ms,omitempty"`

	MaxListingPages int `yaml:"max_listing_pages,omitempty"`
}

// Timeout returns the descriptor's fetch timeout, defaulted per §4.5.
func (d SiteDescriptor) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// RateLimitBaseDelay returns the descriptor's base politeness delay.
func (d SiteDescriptor) RateLimitBaseDelay() time.Duration {
	if d.RateLimitBaseDelayMS <= 0 {
		return time.Second
	}
	return time.Duration(d.RateLimitBaseDelayMS) * time.Millisecond
}

// Retries returns the descriptor's retry attempt count, defaulted to 3.
func (d SiteDescriptor) Retries() int {
	if d.RetryAttempts <= 0 {
		return 3
	}
	return d.RetryAttempts
}

// ListingPageCap returns the max_listing_pages a ForumSearch/ListingPage
// descriptor should paginate through, per the resolved open question in
// spec.md §9 (source used 1..10, we default to 5 and make it configurable).
func (d SiteDescriptor) ListingPageCap() int {
	if d.MaxListingPages <= 0 {
		return 5
	}
	return d.MaxListingPages
}

type fileFormat struct {
	Global *globalDefaults           `yaml:"global"`
	Sites  map[string]SiteDescriptor `yaml:"sites"`
}

type globalDefaults struct {
	DefaultTimeoutSeconds       int `yaml:"default_timeout_seconds"`
	DefaultRetryAttempts        int `yaml:"default_retry_attempts"`
	DefaultRateLimitBaseDelayMS int `yaml:"default_rate_limit_base_delay_ms"`
}

// Catalog is the loaded, validated, read-only site table.
type Catalog struct {
	byName map[string]SiteDescriptor
	names  []string // insertion order, for deterministic All()
}

// Load reads and validates a YAML descriptor table from path.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", searcherr.ErrConfigError, path, err)
	}

	var doc fileFormat
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", searcherr.ErrConfigError, path, err)
	}

	c := &Catalog{byName: make(map[string]SiteDescriptor, len(doc.Sites))}

	// yaml maps don't preserve order; sort by name for determinism so the
	// same file always yields the same catalog iteration order.
	names := make([]string, 0, len(doc.Sites))
	for name := range doc.Sites {
		names = append(names, name)
	}
	sortStrings(names)

	for _, name := range names {
		desc := doc.Sites[name]
		desc.Name = name
		applyGlobalDefaults(&desc, doc.Global)

		if err := validate(&desc); err != nil {
			return nil, fmt.Errorf("%w: site %q: %v", searcherr.ErrConfigError, name, err)
		}

		c.byName[strings.ToLower(name)] = desc
		c.names = append(c.names, name)
	}

	log.Info().Int("sites", len(c.names)).Str("path", path).Msg("catalog loaded")
	return c, nil
}

func applyGlobalDefaults(d *SiteDescriptor, g *globalDefaults) {
	if g == nil {
		return
	}
	if d.TimeoutSeconds <= 0 {
		d.TimeoutSeconds = g.DefaultTimeoutSeconds
	}
	if d.RetryAttempts <= 0 {
		d.RetryAttempts = g.DefaultRetryAttempts
	}
	if d.RateLimitBaseDelayMS <= 0 {
		d.RateLimitBaseDelayMS = g.DefaultRateLimitBaseDelayMS
	}
}

func validate(d *SiteDescriptor) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("missing name")
	}
	if strings.TrimSpace(d.BaseURL) == "" {
		return fmt.Errorf("missing base_url")
	}

	switch d.Strategy {
	case StrategyQueryParam:
		if d.QueryParam == "" {
			return fmt.Errorf("query_param strategy requires query_param")
		}
	case StrategyListingPage:
		if d.ListingPath == "" {
			return fmt.Errorf("listing_page strategy requires listing_path")
		}
	case StrategyForumSearch, StrategyPathEncoded:
		if d.Selector == "" {
			return fmt.Errorf("%s strategy requires a selector", d.Strategy)
		}
	case StrategyFrontPage:
		// no additional required fields
	default:
		return fmt.Errorf("unknown strategy %q", d.Strategy)
	}

	if _, err := compileSelectorCheck(d.Selector); d.Selector != "" && err != nil {
		return fmt.Errorf("invalid selector %q: %w", d.Selector, err)
	}
	for _, fb := range d.FallbackSelectors {
		if _, err := compileSelectorCheck(fb); err != nil {
			return fmt.Errorf("invalid fallback selector %q: %w", fb, err)
		}
	}

	if d.TitleSource == "" {
		d.TitleSource = "text"
	}
	if d.URLSource == "" {
		d.URLSource = "href"
	}

	return nil
}

// Lookup returns a descriptor by case-insensitive name.
func (c *Catalog) Lookup(name string) (SiteDescriptor, bool) {
	d, ok := c.byName[strings.ToLower(name)]
	return d, ok
}

// All returns every descriptor, in stable (name-sorted) order.
func (c *Catalog) All() []SiteDescriptor {
	out := make([]SiteDescriptor, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.byName[strings.ToLower(n)])
	}
	return out
}

func sortStrings(s []string) {
	// small helper to avoid importing sort for its single call site; insertion
	// sort is plenty for a catalog of a handful of sites.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
