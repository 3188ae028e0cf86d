// Package browser drives the results pages through headless Chrome.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/realty/internal/crawler"
	"github.com/jmylchreest/realty/internal/logger"
)

// Options configures the browser.
type Options struct {
	ExecPath     string // Chrome binary; empty searches the system
	UserAgent    string
	Headless     bool
	WindowWidth  int
	WindowHeight int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		UserAgent:    defaultUserAgent,
		Headless:     true,
		WindowWidth:  1920,
		WindowHeight: 1080,
	}
}

// Chrome user agent for better compatibility
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Session is one browser with one tab. It implements crawler.Session.
type Session struct {
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	closeOnce   sync.Once
}

var _ crawler.Session = (*Session)(nil)

// allocatorOptions builds the exec allocator flags for opts.
func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	flags := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	flags = append(flags,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)

	execPath := opts.ExecPath
	if execPath == "" {
		execPath = FindChromePath()
	}
	if execPath != "" {
		flags = append(flags, chromedp.ExecPath(execPath))
	}
	if opts.UserAgent != "" {
		flags = append(flags, chromedp.UserAgent(opts.UserAgent))
	}
	return flags
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	if o.WindowWidth <= 0 || o.WindowHeight <= 0 {
		o.WindowWidth, o.WindowHeight = d.WindowWidth, d.WindowHeight
	}
	return o
}

// Launch starts the browser and opens a tab. Cancelling ctx aborts the
// start; once started, the session lives until Close.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	s := &Session{tabCtx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc}

	stop := context.AfterFunc(ctx, cancelTab)
	start := time.Now()
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		s.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	logger.Debug("browser started", "headless", opts.Headless, "duration", time.Since(start).Round(time.Millisecond))
	return s, nil
}

// Opener returns a crawler.SessionOpener that launches with opts.
func Opener(opts Options) crawler.SessionOpener {
	return func(ctx context.Context) (crawler.Session, error) {
		return Launch(ctx, opts)
	}
}

// run executes actions on the tab, bounded by ctx. The tab itself survives
// ctx ending.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return context.DeadlineExceeded
		}
	}
	return err
}

// Open navigates the tab to url.
func (s *Session) Open(ctx context.Context, url string) error {
	logger.Debug("browser navigating", "url", url)
	return s.run(ctx, chromedp.Navigate(url))
}

// WaitReady blocks until selector matches an element.
func (s *Session) WaitReady(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

// HTML returns the current document's outer HTML.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Next clicks the next-page control, or returns crawler.ErrNoNextPage when
// none is present.
func (s *Session) Next(ctx context.Context, selector string) error {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return err
	}
	if len(nodes) == 0 {
		return crawler.ErrNoNextPage
	}

	logger.Debug("browser clicking next", "selector", selector, "matches", len(nodes))
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

// Close shuts the tab and the browser. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.cancelTab != nil {
			s.cancelTab()
		}
		if s.cancelAlloc != nil {
			s.cancelAlloc()
		}
		logger.Debug("browser closed")
	})
	return nil
}
