// Package cmdfactory assembles the search core's collaborators from a
// resolved configuration into a ready-to-run orchestrator.Orchestrator,
// mirroring the teacher's cmd/root.go wiring of crawler+frontier+storage
// from parsed flags and environment.
package cmdfactory

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/reekid420/website-searcher/internal/browserhelper"
	"github.com/reekid420/website-searcher/internal/cache"
	"github.com/reekid420/website-searcher/internal/catalog"
	"github.com/reekid420/website-searcher/internal/fetcher"
	"github.com/reekid420/website-searcher/internal/orchestrator"
	"github.com/reekid420/website-searcher/internal/ratelimit"
	"github.com/reekid420/website-searcher/internal/robots"
	"github.com/reekid420/website-searcher/internal/shared"
	"github.com/reekid420/website-searcher/internal/solver"
)

// Config holds every flag/environment-derived setting needed to build a
// Factory. Zero-value fields fall back to their component's own defaults.
type Config struct {
	CatalogPath string

	UserAgent string

	SolverEndpoint  string
	BrowserHelper   string

	RedisAddr string

	CacheMaxSize int
	CacheTTL     time.Duration
	CachePath    string

	S3Bucket    string
	S3Key       string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	RespectRobots bool
	MetricsAddr   string
}

// Factory bundles the built collaborators so cmd/ can drive searches and
// expose "cache stats"/"cache clear" without re-wiring anything.
type Factory struct {
	Catalog      *catalog.Catalog
	Orchestrator *orchestrator.Orchestrator
	Cache        *cache.Store
	Robots       *robots.Checker
}

// Build loads the catalog and constructs every collaborator per cfg,
// wiring optional Redis rate-limiting, S3 cache persistence and robots
// checking when their settings are present. The metrics server is not
// started here; cmd/ starts it from Config.MetricsAddr.
func Build(ctx context.Context, cfg Config) (*Factory, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	ua := fetcher.StableUserAgent(cfg.UserAgent)

	var solverClient *solver.Client
	if cfg.SolverEndpoint != "" {
		solverClient = solver.New(cfg.SolverEndpoint, solver.DefaultTimeout)
	}

	var browserRunner *browserhelper.Runner
	if cfg.BrowserHelper != "" {
		browserRunner = browserhelper.New(cfg.BrowserHelper)
	}

	baseFetcher := fetcher.New(ua, solverClient, browserRunner)

	limiter, err := buildRateLimiter(cfg)
	if err != nil {
		return nil, err
	}

	persister, err := buildPersister(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cacheStore := cache.New(cfg.CacheMaxSize, cfg.CacheTTL, persister)

	var robotsChecker *robots.Checker
	if cfg.RespectRobots {
		robotsChecker = robots.NewChecker(ua, 5*time.Second)
	}

	// Attempts here is only the fallback for calls that leave
	// FetchOptions.RetryAttempts unset; the orchestrator always sets it
	// from SiteDescriptor.Retries(), which itself defaults to 3.
	var f shared.Fetcher = &fetcher.RetryFetcher{Base: baseFetcher, Attempts: 3}
	orch := orchestrator.New(cat, f, limiter)

	return &Factory{Catalog: cat, Orchestrator: orch, Cache: cacheStore, Robots: robotsChecker}, nil
}

func buildRateLimiter(cfg Config) (shared.RateLimiter, error) {
	settings := ratelimit.Settings{}.WithDefaults()

	if cfg.RedisAddr == "" {
		return ratelimit.NewInMemory(settings), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	log.Info().Str("addr", cfg.RedisAddr).Msg("cmdfactory: using redis-backed rate limiter")
	return ratelimit.NewRedis(client, settings), nil
}

func buildPersister(ctx context.Context, cfg Config) (cache.Persister, error) {
	if cfg.S3Bucket != "" {
		return cache.NewS3Persister(ctx, cfg.S3Bucket, cfg.S3Key, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey)
	}

	path := cfg.CachePath
	if path == "" {
		var err error
		path, err = cache.DefaultCachePath()
		if err != nil {
			return nil, fmt.Errorf("resolving default cache path: %w", err)
		}
	}
	return cache.NewFilePersister(path), nil
}
