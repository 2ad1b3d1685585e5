package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/reekid420/website-searcher/internal/cmdfactory"
	"github.com/reekid420/website-searcher/internal/eventbus"
	"github.com/reekid420/website-searcher/internal/metrics"
	"github.com/reekid420/website-searcher/internal/orchestrator"
)

var cfg cmdfactory.Config

var (
	flagSites        []string
	flagExcludeSites []string
	flagPerSiteLimit int
	flagGlobalCutoff int
	flagSortByTitle  bool
	flagNoCache      bool
)

func newCmdSearch() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query> [flags]",
		Short: "Search game-distribution sites in parallel",
		Long:  `Runs a phrase against every configured site's search endpoint concurrently and prints the aggregated, de-duplicated results.`,
		Example: heredoc.Doc(`
			$ websearcher search "elden ring"
			$ websearcher search 'site:fitgirl,dodi "elden ring" -demo'
			$ websearcher search "cyberpunk | site:gog-games phantom liberty"
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			f, err := cmdfactory.Build(c.Context(), cfg)
			if err != nil {
				return err
			}

			if cfg.MetricsAddr != "" {
				shutdown := metrics.StartServer(cfg.MetricsAddr)
				defer shutdown(context.Background())
			}

			sel := orchestrator.SiteSelection{}
			switch {
			case len(flagSites) > 0:
				sel = orchestrator.SiteSelection{Sites: flagSites}
			case len(flagExcludeSites) > 0:
				sel = orchestrator.SiteSelection{Sites: flagExcludeSites, Invert: true}
			}

			bus := eventbus.New()
			ch, unsubscribe := bus.Subscribe()
			defer unsubscribe()

			done := make(chan struct{})
			go printEvents(ch, done)

			summary, runErr := f.Orchestrator.Run(c.Context(), args[0], orchestrator.Options{
				Selection:    sel,
				Cache:        f.Cache,
				RobotsCheck:  f.Robots,
				PerSiteLimit: flagPerSiteLimit,
				GlobalCutoff: flagGlobalCutoff,
				SortByTitle:  flagSortByTitle,
				NoCache:      flagNoCache,
			}, bus)
			<-done

			fmt.Printf("\n%d results across %d sites in %dms (cache hit: %v)\n",
				summary.Total, len(summary.BySite), summary.ElapsedMS, summary.CacheHit)
			if len(summary.Errors) > 0 {
				fmt.Printf("%d site(s) reported errors\n", len(summary.Errors))
			}

			return runErr
		},
	}

	addCommonFlags(cmd)
	cmd.Flags().StringSliceVar(&flagSites, "site", nil, "Restrict the search to these sites (comma-separated)")
	cmd.Flags().StringSliceVar(&flagExcludeSites, "exclude-site", nil, "Search every site except these (comma-separated)")
	cmd.Flags().IntVar(&flagPerSiteLimit, "per-site-limit", 10, "Maximum results kept per site")
	cmd.Flags().IntVar(&flagGlobalCutoff, "limit", 0, "Maximum total results (0 disables)")
	cmd.Flags().BoolVar(&flagSortByTitle, "sort-by-title", false, "Sort results alphabetically within each site group")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the result cache for this search")

	return cmd
}

func printEvents(ch <-chan eventbus.Event, done chan<- struct{}) {
	defer close(done)
	for evt := range ch {
		switch evt.Kind {
		case eventbus.KindProgress:
			log.Debug().Str("site", evt.Progress.Site).Str("status", string(evt.Progress.Status)).Msg("progress")
		case eventbus.KindResult:
			fmt.Printf("[%s] %s\n    %s\n", evt.Result.Site, evt.Result.Title, evt.Result.URL)
		case eventbus.KindComplete:
			return
		}
	}
}

func newCmdCacheStats() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show result-cache occupancy",
		RunE: func(c *cobra.Command, args []string) error {
			f, err := cmdfactory.Build(c.Context(), cfg)
			if err != nil {
				return err
			}
			stats := f.Cache.Stats()
			fmt.Printf("cache: %d/%d entries\n", stats.Size, stats.MaxSize)
			return nil
		},
	}
}

func newCmdCacheClear() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the result cache",
		RunE: func(c *cobra.Command, args []string) error {
			f, err := cmdfactory.Build(c.Context(), cfg)
			if err != nil {
				return err
			}
			f.Cache.Clear()
			fmt.Println("cache cleared")
			return nil
		},
	}
}

func newCmdCache() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the result cache",
	}
	addCommonFlags(cmd)
	cmd.AddCommand(newCmdCacheStats(), newCmdCacheClear())
	return cmd
}

func newCmdRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "websearcher",
		Short: "Parallel multi-source search across game-distribution sites",
		Long:  `websearcher dispatches a query against a catalog of game-distribution sites concurrently, applies per-site politeness limits, and returns a de-duplicated aggregate.`,
	}

	cmd.AddCommand(newCmdSearch(), newCmdCache())
	return cmd
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfg.CatalogPath, "catalog", "configs/sites.yaml", "Path to the site descriptor catalog")
	cmd.PersistentFlags().StringVar(&cfg.UserAgent, "user-agent", "", "Override the process User-Agent")

	cmd.PersistentFlags().StringVar(&cfg.SolverEndpoint, "solver-endpoint", "", "Challenge-solver daemon endpoint (empty disables solver escalation)")
	cmd.PersistentFlags().StringVar(&cfg.BrowserHelper, "browser-helper", "", "Path to the JS-rendering browser-helper binary")

	cmd.PersistentFlags().StringVar(&cfg.RedisAddr, "redis-addr", "", "Redis address for a shared rate limiter (empty uses an in-process limiter)")

	cmd.PersistentFlags().IntVar(&cfg.CacheMaxSize, "cache-max-size", 20, "Maximum cached searches to retain")
	cmd.PersistentFlags().DurationVar(&cfg.CacheTTL, "cache-ttl", 12*time.Hour, "Cache entry time-to-live")
	cmd.PersistentFlags().StringVar(&cfg.CachePath, "cache-path", "", "Local cache file path (empty uses the platform user cache dir)")

	cmd.PersistentFlags().StringVar(&cfg.S3Bucket, "s3-bucket", "", "S3 bucket for a shared cache (empty uses the local file cache)")
	cmd.PersistentFlags().StringVar(&cfg.S3Key, "s3-key", "website-searcher/cache.json", "S3 object key for the shared cache")
	cmd.PersistentFlags().StringVar(&cfg.S3Endpoint, "s3-endpoint", "", "S3-compatible endpoint override (for MinIO-style deployments)")
	cmd.PersistentFlags().StringVar(&cfg.S3AccessKey, "s3-access-key", "", "S3 access key")
	cmd.PersistentFlags().StringVar(&cfg.S3SecretKey, "s3-secret-key", "", "S3 secret key")

	cmd.PersistentFlags().BoolVar(&cfg.RespectRobots, "respect-robots", false, "Honor robots.txt for sites that opt into it")
	cmd.PersistentFlags().StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Address to serve Prometheus /metrics on (empty disables)")
}

var cmdRoot = newCmdRoot()

// Execute runs the websearcher CLI.
func Execute() {
	if err := cmdRoot.Execute(); err != nil {
		log.Fatal().Err(err).Msg("websearcher: command failed")
	}
}
