package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultLinkSelector matches the summary cards on a results page.
const DefaultLinkSelector = ".property-thumbnail-summary-link"

// LinkSelector extracts detail-page links from a rendered results page.
type LinkSelector struct {
	CSSSelector string // CSS selector for summary-card anchors
}

// NewLinkSelector creates a link selector. An empty selector uses
// DefaultLinkSelector.
func NewLinkSelector(cssSelector string) *LinkSelector {
	if strings.TrimSpace(cssSelector) == "" {
		cssSelector = DefaultLinkSelector
	}
	return &LinkSelector{CSSSelector: cssSelector}
}

// ExtractLinks returns the href of every matching element, verbatim and in
// document order. Elements without an href are skipped. It never fails;
// markup it cannot read yields no links.
func (ls *LinkSelector) ExtractLinks(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var links []string
	doc.Find(ls.CSSSelector).Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || strings.TrimSpace(href) == "" {
			return
		}
		links = append(links, href)
	})

	return links
}

// ResolveLinks makes hrefs absolute against base. Hrefs that do not parse,
// fragments and javascript links are dropped.
func ResolveLinks(baseURL string, hrefs []string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	resolved := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			continue
		}

		linkURL, err := url.Parse(href)
		if err != nil {
			continue
		}
		if !linkURL.IsAbs() {
			linkURL = base.ResolveReference(linkURL)
		}
		resolved = append(resolved, linkURL.String())
	}
	return resolved
}

// InDomain reports whether rawURL's host is domain or one of its subdomains.
// An empty domain allows every host.
func InDomain(rawURL, domain string) bool {
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "."))
	if domain == "" {
		return true
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return host == domain || strings.HasSuffix(host, "."+domain)
}
