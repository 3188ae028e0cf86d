package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/realty/internal/browser"
	"github.com/jmylchreest/realty/internal/config"
	"github.com/jmylchreest/realty/internal/crawler"
	"github.com/jmylchreest/realty/internal/extractor"
	"github.com/jmylchreest/realty/internal/logger"
	"github.com/jmylchreest/realty/internal/output"
	"github.com/jmylchreest/realty/internal/store"
	"github.com/jmylchreest/realty/pkg/fetcher"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Discover listings and extract their details",
	Long: `Open the results page in a headless browser, follow the pagination until
the limit is reached or no further pages exist, then fetch every discovered
listing and extract its fields.

Missing or unreadable fields never fail a listing; they are written as a
descriptive placeholder such as "Price not provided".

Examples:
  realty crawl --limit 45
  realty crawl --limit 10 --format jsonl -o listings.jsonl
  realty crawl --limit 200 --max-pages 20 --concurrency 5 --delay 500ms`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	flags := crawlCmd.Flags()

	// Discovery
	flags.IntP("limit", "l", 0, "maximum listings to collect (required; or LIMIT / APARTMENT_SCRAPE_LIMIT)")
	flags.StringP("start-url", "u", "", "first results page")
	flags.String("allowed-domain", "", "domain listing links must belong to (subdomains allowed)")
	flags.String("link-selector", "", "CSS selector for listing links on a results page")
	flags.String("ready-selector", "", "CSS selector that signals results have rendered")
	flags.String("next-selector", "", "CSS selector for the next-page control")
	flags.Int("max-empty-pages", 0, "stop after this many consecutive pages without new links")
	flags.Int("max-pages", 0, "max results pages to scan (0=unlimited)")
	flags.Duration("render-timeout", 0, "wait for each page to render or advance")
	flags.Duration("page-delay", 0, "pause after each page advance before reading")
	flags.Duration("discovery-timeout", 0, "overall bound on discovery")

	// Browser
	flags.String("chrome-path", "", "Chrome/Chromium binary (default: search the system)")
	flags.Bool("headless", true, "run the browser headless")

	// Detail fetching
	flags.String("user-agent", "", "user agent for detail page requests")
	flags.Duration("request-timeout", 0, "detail page request timeout")
	flags.String("max-body-size", "", "max detail page size (e.g., 10MB)")
	flags.IntP("concurrency", "c", 0, "concurrent detail page fetches")
	flags.Duration("delay", 0, "minimum delay between detail page fetches")
	flags.Int("max-retries", 0, "retries for transient fetch failures")
	flags.Duration("retry-backoff", 0, "base backoff between retries")

	// Output
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.StringP("format", "f", "", "output format: json, jsonl, yaml, csv")
	flags.String("postgres-dsn", "", "also upsert listings into this PostgreSQL database")

	bindFlags(flags)
}

// bindFlags binds every flag to the config key of the same name with
// underscores. Viper only prefers a flag over env and file once it is set.
func bindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}
	logger.Debug("crawl command starting",
		"start_url", cfg.StartURL,
		"limit", cfg.Limit,
		"format", cfg.Format,
		"concurrency", cfg.Concurrency)

	static, err := fetcher.NewStatic(cfg.Static())
	if err != nil {
		logger.Error("failed to create fetcher", "error", err)
		return err
	}
	defer func() { _ = static.Close() }()

	sink, closeSinks, err := openSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	ext := extractor.New(extractor.WithSelectors(cfg.Selectors))
	c := crawler.New(cfg.Crawler(), browser.Opener(cfg.Browser()), static, ext)

	start := time.Now()
	d, results, err := c.Crawl(ctx)
	if err != nil {
		logger.Error("discovery failed", "error", err)
		return err
	}

	summary := crawler.NewSummary(d)
	for r := range results {
		summary.Add(r)
		if r.Err != nil {
			logger.Warn("listing failed", "url", r.URL, "error", r.Err)
			continue
		}
		if err := sink.Write(r.Record); err != nil {
			logger.Error("failed to write listing", "url", r.URL, "error", err)
		}
	}

	if err := sink.Close(); err != nil {
		logger.Error("failed to finish output", "error", err)
		return err
	}

	summary.Elapsed = time.Since(start)
	summary.Log()

	if cfg.Output != "" {
		if fi, err := os.Stat(cfg.Output); err == nil {
			logger.Info("output written", "path", cfg.Output, "size", humanize.Bytes(uint64(fi.Size())))
		}
	}
	if ctx.Err() != nil {
		logger.Warn("crawl interrupted", "discovered", summary.Discovered, "written", summary.Succeeded)
	}
	return nil
}

// openSinks creates the file writer and, when configured, the Postgres
// writer. The returned cleanup closes the file and pool.
func openSinks(ctx context.Context, cfg *config.Config) (output.Writer, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var out io.Writer = os.Stdout
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			logger.Error("failed to create output file", "path", cfg.Output, "error", err)
			return nil, cleanup, fmt.Errorf("failed to create output file: %w", err)
		}
		cleanups = append(cleanups, func() { _ = f.Close() })
		out = f
	}

	fileWriter, err := output.NewWriter(out, output.Format(cfg.Format))
	if err != nil {
		logger.Error("failed to create output writer", "format", cfg.Format, "error", err)
		cleanup()
		return nil, func() {}, err
	}
	writers := []output.Writer{fileWriter}

	if cfg.PostgresDSN != "" {
		pg, err := store.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			cleanup()
			return nil, func() {}, err
		}
		cleanups = append(cleanups, pg.Close)

		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("failed to prepare database", "error", err)
			cleanup()
			return nil, func() {}, err
		}
		// Pending rows are still saved after an interrupt.
		writers = append(writers, store.NewWriter(context.WithoutCancel(ctx), pg, store.DefaultBatchSize))
		logger.Info("saving listings to postgres")
	}

	return output.NewMultiWriter(writers...), cleanup, nil
}
