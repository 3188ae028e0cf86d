package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/realty/internal/logger"
)

// StaticConfig holds configuration for the static fetcher.
type StaticConfig struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize string // human readable, e.g. "10MB"; empty keeps the default
}

// DefaultStaticConfig returns sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		UserAgent:   defaultUserAgent,
		Timeout:     30 * time.Second,
		MaxBodySize: "10MB",
	}
}

// Chrome user agent for better compatibility
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// StaticFetcher uses Colly to fetch detail pages without a browser.
// It implements the Fetcher interface.
type StaticFetcher struct {
	config  StaticConfig
	maxBody int
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg StaticConfig) (*StaticFetcher, error) {
	defaults := DefaultStaticConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxBodySize == "" {
		cfg.MaxBodySize = defaults.MaxBodySize
	}

	size, err := humanize.ParseBytes(cfg.MaxBodySize)
	if err != nil {
		return nil, fmt.Errorf("invalid max body size %q: %w", cfg.MaxBodySize, err)
	}
	if size == 0 {
		return nil, fmt.Errorf("invalid max body size %q: must be positive", cfg.MaxBodySize)
	}

	return &StaticFetcher{config: cfg, maxBody: int(size)}, nil
}

// Fetch retrieves page content using Colly. The request is bound to ctx and
// its timeout is capped by the context deadline.
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string) (Page, error) {
	logger.Debug("static fetch starting", "url", targetURL)

	page := Page{URL: targetURL, FetchedAt: time.Now()}
	if err := ctx.Err(); err != nil {
		return page, err
	}

	timeout := f.config.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	// A fresh collector per request keeps colly's visited-URL tracking out of the way.
	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.MaxBodySize(f.maxBody),
		colly.ParseHTTPErrorResponse(),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(timeout)

	c.OnResponse(func(r *colly.Response) {
		page.StatusCode = r.StatusCode
		page.ContentType = r.Headers.Get("Content-Type")
		page.HTML = string(r.Body)
		logger.Debug("static fetch response received",
			"status", r.StatusCode,
			"content_type", page.ContentType,
			"body_size", humanize.Bytes(uint64(len(r.Body))))
	})

	var fetchErr error
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			page.StatusCode = r.StatusCode
		}
		fetchErr = err
	})

	if err := c.Visit(targetURL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	if fetchErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return page, ctxErr
		}
		if page.StatusCode != 0 && (page.StatusCode < 200 || page.StatusCode > 299) {
			return page, &StatusError{URL: targetURL, Code: page.StatusCode}
		}
		return page, fmt.Errorf("fetch %s: %w", targetURL, fetchErr)
	}

	if page.StatusCode < 200 || page.StatusCode > 299 {
		return page, &StatusError{URL: targetURL, Code: page.StatusCode}
	}

	logger.Debug("static fetch complete", "url", targetURL, "status", page.StatusCode)
	return page, nil
}

// Close releases resources.
func (f *StaticFetcher) Close() error {
	return nil
}

// Type returns the fetcher type.
func (f *StaticFetcher) Type() string {
	return "static"
}
