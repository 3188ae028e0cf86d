package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/realty/internal/logger"
)

// ErrNoNextPage is returned by Session.Next when no next-page control exists.
var ErrNoNextPage = errors.New("no next page control")

// Session is an open rendering session on the results page. Every call is
// bounded by ctx.
type Session interface {
	// Open navigates to url.
	Open(ctx context.Context, url string) error
	// WaitReady blocks until selector is present.
	WaitReady(ctx context.Context, selector string) error
	// HTML returns the current rendered document.
	HTML(ctx context.Context) (string, error)
	// Next activates the next-page control matched by selector, returning
	// ErrNoNextPage when there is none.
	Next(ctx context.Context, selector string) error
	// Close releases the session. It is safe to call more than once.
	Close() error
}

// SessionOpener starts a rendering session.
type SessionOpener func(ctx context.Context) (Session, error)

// NavigationOutcome is the result of trying to advance to the next page.
type NavigationOutcome int

const (
	Advanced  NavigationOutcome = iota // a new page is loading
	Exhausted                          // no next-page control
	TimedOut                           // the control did not respond in time
	Failed                             // the session reported an error
)

func (o NavigationOutcome) String() string {
	switch o {
	case Advanced:
		return "advanced"
	case Exhausted:
		return "exhausted"
	case TimedOut:
		return "timed_out"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// StopReason records why discovery ended.
type StopReason string

const (
	StopLimit      StopReason = "limit"
	StopNoProgress StopReason = "no_progress"
	StopMaxPages   StopReason = "max_pages"
	StopExhausted  StopReason = "exhausted"
	StopTimedOut   StopReason = "timed_out"
	StopFailed     StopReason = "failed"
	StopCancelled  StopReason = "cancelled"
)

// Discovery is the outcome of walking the results pages.
type Discovery struct {
	URLs  []string   // unique listing URLs in discovery order, at most the limit
	Pages int        // results pages scanned
	Stop  StopReason // why discovery ended
}

// Navigator walks paginated results through a Session and collects listing
// links until the limit is reached or pagination ends.
type Navigator struct {
	config Config
	links  *LinkSelector
}

// NewNavigator creates a Navigator from cfg. Zero durations and counts take
// their defaults; MaxPages zero means unlimited.
func NewNavigator(cfg Config) *Navigator {
	cfg = cfg.withDefaults()
	return &Navigator{
		config: cfg,
		links:  NewLinkSelector(cfg.LinkSelector),
	}
}

// Discover runs discovery on session. Only a failure to open the start page
// is returned as an error; every other ending returns the URLs found so far.
func (n *Navigator) Discover(ctx context.Context, session Session) (Discovery, error) {
	cfg := n.config

	ctx, cancel := context.WithTimeout(ctx, cfg.DiscoveryTimeout)
	defer cancel()

	set := NewDiscoverySet(cfg.Limit)
	result := func(pages int, stop StopReason) Discovery {
		return Discovery{URLs: set.Items(), Pages: pages, Stop: stop}
	}

	logger.Info("discovery starting", "url", cfg.StartURL, "limit", cfg.Limit)

	openCtx, cancelOpen := context.WithTimeout(ctx, cfg.RenderTimeout)
	err := session.Open(openCtx, cfg.StartURL)
	cancelOpen()
	if err != nil {
		return Discovery{}, fmt.Errorf("open %s: %w", cfg.StartURL, err)
	}

	pages, empty := 0, 0
	previous := ""
	for {
		if ctx.Err() != nil {
			return result(pages, StopCancelled), nil
		}

		html, err := n.render(ctx, session, previous, pages > 0)
		if err != nil {
			if ctx.Err() != nil {
				return result(pages, StopCancelled), nil
			}
			logger.Warn("results page could not be read", "page", pages+1, "error", err)
			return result(pages, StopFailed), nil
		}
		pages++
		previous = n.fingerprint(html)

		found, added := n.merge(set, html)
		logger.Info("results page scanned",
			"page", pages,
			"found", found,
			"added", added,
			"total", set.Len())

		if set.Full() {
			return result(pages, StopLimit), nil
		}
		if added == 0 {
			empty++
			if empty >= cfg.MaxEmptyPages {
				logger.Info("no new links on consecutive pages", "pages", empty)
				return result(pages, StopNoProgress), nil
			}
		} else {
			empty = 0
		}
		if cfg.MaxPages > 0 && pages >= cfg.MaxPages {
			return result(pages, StopMaxPages), nil
		}

		outcome, err := n.advance(ctx, session)
		switch outcome {
		case Advanced:
			if err := settle(ctx, cfg.PageDelay); err != nil {
				return result(pages, StopCancelled), nil
			}
			continue
		case Exhausted:
			logger.Info("pagination exhausted", "pages", pages)
			return result(pages, StopExhausted), nil
		case TimedOut:
			if ctx.Err() != nil {
				return result(pages, StopCancelled), nil
			}
			logger.Warn("next page timed out", "page", pages, "timeout", cfg.RenderTimeout)
			return result(pages, StopTimedOut), nil
		default:
			if ctx.Err() != nil {
				return result(pages, StopCancelled), nil
			}
			logger.Warn("next page failed", "page", pages, "error", err)
			return result(pages, StopFailed), nil
		}
	}
}

// render waits for the results marker, then reads the document. A marker
// that never appears is tolerated; the page simply yields no links.
//
// After an advance the old results are still in the DOM until the new page
// swaps in, and they match the marker too. When advanced is set, render keeps
// reading until the page's links differ from previous or RenderTimeout
// passes, in which case the unchanged page is returned.
func (n *Navigator) render(ctx context.Context, session Session, previous string, advanced bool) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, n.config.RenderTimeout)
	err := session.WaitReady(waitCtx, n.config.ReadySelector)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Debug("results marker not found", "selector", n.config.ReadySelector, "error", err)
	}

	readCtx, cancel := context.WithTimeout(ctx, n.config.RenderTimeout)
	defer cancel()

	var last string
	read := false
	for {
		html, err := session.HTML(readCtx)
		if err != nil {
			if read && ctx.Err() == nil && readCtx.Err() != nil {
				return last, nil
			}
			return "", err
		}
		if !advanced || n.fingerprint(html) != previous {
			return html, nil
		}
		last, read = html, true

		select {
		case <-readCtx.Done():
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			logger.Debug("results page unchanged after advance", "timeout", n.config.RenderTimeout)
			return last, nil
		case <-time.After(refreshInterval):
		}
	}
}

// refreshInterval spaces re-reads while waiting for a new page to swap in.
const refreshInterval = 100 * time.Millisecond

// fingerprint identifies a results page by its listing links.
func (n *Navigator) fingerprint(html string) string {
	return strings.Join(n.links.ExtractLinks(html), "\n")
}

// merge adds the page's in-domain links to set, stopping once it is full.
func (n *Navigator) merge(set *DiscoverySet, html string) (found, added int) {
	links := ResolveLinks(n.config.StartURL, n.links.ExtractLinks(html))
	found = len(links)

	for _, link := range links {
		if set.Full() {
			break
		}
		if !InDomain(link, n.config.AllowedDomain) {
			logger.Debug("skipping out-of-domain link", "link", link)
			continue
		}
		if _, ok := set.Add(link); ok {
			added++
		}
	}
	return found, added
}

func (n *Navigator) advance(ctx context.Context, session Session) (NavigationOutcome, error) {
	nextCtx, cancel := context.WithTimeout(ctx, n.config.RenderTimeout)
	defer cancel()

	err := session.Next(nextCtx, n.config.NextSelector)
	switch {
	case err == nil:
		return Advanced, nil
	case errors.Is(err, ErrNoNextPage):
		return Exhausted, err
	case errors.Is(err, context.DeadlineExceeded):
		return TimedOut, err
	default:
		return Failed, err
	}
}

// settle pauses after a page advance so the click has time to take effect.
func settle(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
