package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jmylchreest/realty/internal/extractor"
	"github.com/jmylchreest/realty/internal/logger"
	"github.com/jmylchreest/realty/pkg/fetcher"
	"github.com/jmylchreest/realty/pkg/listing"
)

// ErrSessionStart is returned when the rendering session cannot be started.
var ErrSessionStart = errors.New("failed to start rendering session")

// DefaultStartURL is the rental search on realtylink.org.
const DefaultStartURL = "https://realtylink.org/en/properties~for-rent"

// Config holds crawler configuration.
type Config struct {
	// Discovery
	StartURL      string // first results page
	AllowedDomain string // host (or parent domain) listing links must belong to; empty allows all
	Limit         int    // maximum listings to collect
	LinkSelector  string // CSS selector for summary-card links
	ReadySelector string // CSS selector signalling results have rendered
	NextSelector  string // CSS selector for the next-page control

	// Pagination bounds
	MaxEmptyPages    int           // consecutive pages without new links before stopping; always enforced
	MaxPages         int           // results pages to scan (0 = unlimited)
	RenderTimeout    time.Duration // per-step wait for rendering and navigation
	PageDelay        time.Duration // pause after each page advance before reading
	DiscoveryTimeout time.Duration // overall bound on discovery

	// Detail fetching
	Concurrency  int           // max concurrent detail fetches
	Delay        time.Duration // minimum spacing between detail fetch starts
	MaxRetries   int           // extra attempts for transient fetch failures
	RetryBackoff time.Duration // base backoff between attempts
}

// DefaultConfig returns sensible crawler defaults.
func DefaultConfig() Config {
	return Config{
		StartURL:         DefaultStartURL,
		Limit:            45,
		LinkSelector:     DefaultLinkSelector,
		ReadySelector:    DefaultLinkSelector,
		NextSelector:     ".next a",
		MaxEmptyPages:    3,
		MaxPages:         0, // unlimited
		RenderTimeout:    10 * time.Second,
		PageDelay:        2 * time.Second,
		DiscoveryTimeout: 10 * time.Minute,
		Concurrency:      3,
		Delay:            200 * time.Millisecond,
		MaxRetries:       2,
		RetryBackoff:     time.Second,
	}
}

// withDefaults fills zero values that have no meaningful zero setting. The
// pagination bounds are never left off, so discovery always terminates.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StartURL == "" {
		c.StartURL = d.StartURL
	}
	if c.Limit < 1 {
		c.Limit = d.Limit
	}
	if c.LinkSelector == "" {
		c.LinkSelector = d.LinkSelector
	}
	if c.ReadySelector == "" {
		c.ReadySelector = c.LinkSelector
	}
	if c.NextSelector == "" {
		c.NextSelector = d.NextSelector
	}
	if c.MaxEmptyPages < 1 {
		c.MaxEmptyPages = d.MaxEmptyPages
	}
	if c.MaxPages < 0 {
		c.MaxPages = 0
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = d.RenderTimeout
	}
	if c.PageDelay <= 0 {
		c.PageDelay = d.PageDelay
	}
	if c.DiscoveryTimeout <= 0 {
		c.DiscoveryTimeout = d.DiscoveryTimeout
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	return c
}

// Result is the outcome of fetching and extracting one listing.
type Result struct {
	URL           string
	Record        listing.Record
	Err           error
	Attempts      int
	FetchedAt     time.Time
	FetchDuration time.Duration
}

// Crawler discovers listing URLs through a rendering session and extracts
// records from their detail pages.
type Crawler struct {
	config    Config
	open      SessionOpener
	fetcher   fetcher.Fetcher
	extractor *extractor.Extractor
	navigator *Navigator
}

// New creates a new Crawler.
func New(cfg Config, open SessionOpener, f fetcher.Fetcher, ext *extractor.Extractor) *Crawler {
	cfg = cfg.withDefaults()
	if ext == nil {
		ext = extractor.New()
	}
	return &Crawler{
		config:    cfg,
		open:      open,
		fetcher:   f,
		extractor: ext,
		navigator: NewNavigator(cfg),
	}
}

// Config returns the effective configuration.
func (c *Crawler) Config() Config {
	return c.config
}

// Discover opens a session, walks the results pages and closes the session
// on every path.
func (c *Crawler) Discover(ctx context.Context) (Discovery, error) {
	session, err := c.open(ctx)
	if err != nil {
		return Discovery{}, fmt.Errorf("%w: %w", ErrSessionStart, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("closing session", "error", err)
		}
	}()

	start := time.Now()
	d, err := c.navigator.Discover(ctx, session)
	if err != nil {
		return d, err
	}

	logger.Info("discovery finished",
		"urls", len(d.URLs),
		"pages", d.Pages,
		"stop", d.Stop,
		"duration", time.Since(start).Round(time.Millisecond))
	return d, nil
}

// Extract fetches and extracts every URL with bounded concurrency. Results
// arrive in completion order; the channel closes when all work is done or
// ctx is cancelled.
func (c *Crawler) Extract(ctx context.Context, urls []string) <-chan Result {
	results := make(chan Result, min(len(urls), 100))

	go func() {
		defer close(results)

		limiter := newPacer(c.config.Delay)
		g := new(errgroup.Group)
		g.SetLimit(c.config.Concurrency)

		for _, u := range urls {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				r := c.extractOne(ctx, limiter, u)
				select {
				case results <- r:
				case <-ctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	return results
}

func (c *Crawler) extractOne(ctx context.Context, limiter *rate.Limiter, url string) Result {
	if err := limiter.Wait(ctx); err != nil {
		return Result{URL: url, Err: err}
	}

	var page fetcher.Page
	fetchStart := time.Now()
	attempts, err := retryWithBackoff(ctx, c.config.MaxRetries, c.config.RetryBackoff, func() error {
		var err error
		page, err = c.fetcher.Fetch(ctx, url)
		return err
	})
	fetchDuration := time.Since(fetchStart)

	if err != nil {
		logger.Info("fetch failed", "url", url, "attempts", attempts, "error", err)
		return Result{URL: url, Err: fmt.Errorf("fetch error: %w", err), Attempts: attempts, FetchDuration: fetchDuration}
	}

	rec, err := c.extractor.ExtractHTML(url, page.HTML)
	if err != nil {
		logger.Info("extraction failed", "url", url, "error", err)
		return Result{URL: url, Err: fmt.Errorf("extraction error: %w", err), Attempts: attempts, FetchedAt: page.FetchedAt, FetchDuration: fetchDuration}
	}

	logger.Info("extracted", "url", url, "fetch", fetchDuration.Round(time.Millisecond))
	return Result{
		URL:           url,
		Record:        rec,
		Attempts:      attempts,
		FetchedAt:     page.FetchedAt,
		FetchDuration: fetchDuration,
	}
}

// Crawl runs discovery and then extraction of everything discovered.
func (c *Crawler) Crawl(ctx context.Context) (Discovery, <-chan Result, error) {
	d, err := c.Discover(ctx)
	if err != nil {
		return d, nil, err
	}
	return d, c.Extract(ctx, d.URLs), nil
}

// newPacer spaces events by at least delay. A zero delay never waits.
func newPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Summary tallies a run.
type Summary struct {
	Discovered int
	Pages      int
	Stop       StopReason
	Attempted  int
	Succeeded  int
	Failed     int
	Elapsed    time.Duration
}

// NewSummary starts a summary from a finished discovery.
func NewSummary(d Discovery) *Summary {
	return &Summary{Discovered: len(d.URLs), Pages: d.Pages, Stop: d.Stop}
}

// Add counts one extraction result.
func (s *Summary) Add(r Result) {
	s.Attempted++
	if r.Err != nil {
		s.Failed++
		return
	}
	s.Succeeded++
}

// Log writes the end-of-run line.
func (s *Summary) Log() {
	logger.Info("crawl complete",
		"discovered", humanize.Comma(int64(s.Discovered)),
		"pages", s.Pages,
		"stop", s.Stop,
		"attempted", humanize.Comma(int64(s.Attempted)),
		"succeeded", humanize.Comma(int64(s.Succeeded)),
		"failed", humanize.Comma(int64(s.Failed)),
		"elapsed", s.Elapsed.Round(time.Millisecond))
}
