// Package crawler discovers listing links across paginated results and
// fetches the detail pages they point to.
package crawler

import (
	"net/url"
	"sync"
)

// DiscoverySet accumulates unique listing URLs in discovery order, capped at
// a fixed limit. Once full it refuses further additions.
type DiscoverySet struct {
	mu    sync.Mutex
	limit int
	order []string
	seen  map[string]bool
}

// NewDiscoverySet creates a set holding at most limit URLs. A limit below
// one is treated as one.
func NewDiscoverySet(limit int) *DiscoverySet {
	if limit < 1 {
		limit = 1
	}
	return &DiscoverySet{
		limit: limit,
		order: make([]string, 0, min(limit, 256)),
		seen:  make(map[string]bool),
	}
}

// Add inserts rawURL if it is new and the set has room. It returns the size
// after the call and whether the URL was added.
func (s *DiscoverySet) Add(rawURL string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := normalizeURL(rawURL)
	if normalized == "" || s.seen[normalized] || len(s.order) >= s.limit {
		return len(s.order), false
	}

	s.seen[normalized] = true
	s.order = append(s.order, normalized)
	return len(s.order), true
}

// Contains reports whether rawURL, once normalized, is in the set.
func (s *DiscoverySet) Contains(rawURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[normalizeURL(rawURL)]
}

// Items returns a copy of the URLs in discovery order.
func (s *DiscoverySet) Items() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of URLs collected.
func (s *DiscoverySet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Limit returns the capacity.
func (s *DiscoverySet) Limit() int {
	return s.limit
}

// Full reports whether the limit has been reached.
func (s *DiscoverySet) Full() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order) >= s.limit
}

// normalizeURL normalizes a URL for comparison.
func normalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}

	// Remove fragment
	parsed.Fragment = ""

	// Remove trailing slash from path (unless it's just "/")
	if len(parsed.Path) > 1 && parsed.Path[len(parsed.Path)-1] == '/' {
		parsed.Path = parsed.Path[:len(parsed.Path)-1]
	}

	return parsed.String()
}
