// Package extractor derives listing records from detail-page markup.
package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/realty/internal/logger"
	"github.com/jmylchreest/realty/pkg/listing"
)

// Selectors holds the CSS selector for every extracted field. Each selector
// reads the first non-blank text node directly under a matching element.
type Selectors struct {
	Title       string `mapstructure:"title" yaml:"title"`
	Location    string `mapstructure:"location" yaml:"location"` // region and address
	Description string `mapstructure:"description" yaml:"description"`
	Photos      string `mapstructure:"photos" yaml:"photos"`
	Price       string `mapstructure:"price" yaml:"price"`
	Bedrooms    string `mapstructure:"bedrooms" yaml:"bedrooms"`
	FloorArea   string `mapstructure:"floor_area" yaml:"floor_area"`
}

// DefaultSelectors returns the selectors for realtylink.org detail pages.
func DefaultSelectors() Selectors {
	return Selectors{
		Title:       "span[data-id='PageTitle']",
		Location:    "div.d-flex.mt-1 h2",
		Description: "div.property-description div[itemprop='description']",
		Photos:      "div.thumbnail.last-child.first-child script",
		Price:       "span.text-nowrap",
		Bedrooms:    "div.col-lg-3.col-sm-6.cac",
		FloorArea:   "div.carac-value span",
	}
}

// merge fills empty selectors from defaults.
func (s Selectors) merge(defaults Selectors) Selectors {
	pick := func(v, d string) string {
		if strings.TrimSpace(v) == "" {
			return d
		}
		return v
	}
	return Selectors{
		Title:       pick(s.Title, defaults.Title),
		Location:    pick(s.Location, defaults.Location),
		Description: pick(s.Description, defaults.Description),
		Photos:      pick(s.Photos, defaults.Photos),
		Price:       pick(s.Price, defaults.Price),
		Bedrooms:    pick(s.Bedrooms, defaults.Bedrooms),
		FloorArea:   pick(s.FloorArea, defaults.FloorArea),
	}
}

// Extractor applies the per-field rules. It holds no state between calls
// and is safe for concurrent use.
type Extractor struct {
	selectors Selectors
}

// Option configures the extractor.
type Option func(*Extractor)

// WithSelectors overrides field selectors. Empty entries keep the default.
func WithSelectors(s Selectors) Option {
	return func(e *Extractor) {
		e.selectors = s.merge(DefaultSelectors())
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{selectors: DefaultSelectors()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Selectors returns the selectors in use.
func (e *Extractor) Selectors() Selectors {
	return e.selectors
}

// ExtractHTML parses html and extracts a record for link.
func (e *Extractor) ExtractHTML(link, html string) (listing.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return listing.Record{}, fmt.Errorf("failed to parse detail page: %w", err)
	}
	return e.Extract(link, doc), nil
}

// Extract derives every field from doc. Absent or malformed fields become
// missing values; extraction itself never fails.
func (e *Extractor) Extract(link string, doc *goquery.Document) listing.Record {
	location, hasLocation := firstText(doc, e.selectors.Location)

	fields := map[string]listing.Value{
		listing.FieldTitle:            textField(doc, e.selectors.Title, listing.FieldTitle),
		listing.FieldRegion:           region(location, hasLocation),
		listing.FieldAddress:          address(location, hasLocation),
		listing.FieldDescription:      textField(doc, e.selectors.Description, listing.FieldDescription),
		listing.FieldPhotosLinks:      photos(doc, e.selectors.Photos),
		listing.FieldPrice:            price(doc, e.selectors.Price),
		listing.FieldNumberOfBedrooms: bedrooms(doc, e.selectors.Bedrooms),
		listing.FieldFloorArea:        floorArea(doc, e.selectors.FloorArea),
	}

	for name, v := range fields {
		if v.IsMalformed() {
			reason, _ := v.Reason()
			logger.Debug("malformed field", "url", link, "field", name, "reason", reason)
		}
	}

	return listing.NewRecord(link, fields)
}

// firstText returns the first direct text node under any element matching
// selector, in document order, skipping whitespace-only nodes.
func firstText(doc *goquery.Document, selector string) (string, bool) {
	var text string
	found := false

	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		s.Contents().EachWithBreak(func(_ int, c *goquery.Selection) bool {
			if goquery.NodeName(c) != "#text" {
				return true
			}
			if t := c.Text(); strings.TrimSpace(t) != "" {
				text, found = t, true
				return false
			}
			return true
		})
		return !found
	})

	return text, found
}
