package extractor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/realty/pkg/listing"
)

const testLink = "https://realtylink.org/en/condo~for-rent~montreal/12345678"

// readTestdata reads a file from the testdata directory
func readTestdata(t *testing.T, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("failed to read testdata %s: %v", filename, err)
	}
	return string(data)
}

func extract(t *testing.T, html string) listing.Record {
	t.Helper()
	rec, err := New().ExtractHTML(testLink, html)
	if err != nil {
		t.Fatalf("ExtractHTML() error = %v", err)
	}
	return rec
}

func field(t *testing.T, rec listing.Record, name string) listing.Value {
	t.Helper()
	v, ok := rec.Get(name)
	if !ok {
		t.Fatalf("record has no field %q", name)
	}
	return v
}

func TestExtract_FullDetailPage(t *testing.T) {
	rec := extract(t, readTestdata(t, "detail.html"))

	texts := map[string]string{
		listing.FieldTitle:       "Condo for rent",
		listing.FieldAddress:     "1234",
		listing.FieldRegion:      "Rue Sherbrooke Ouest Montréal (Ville-Marie)",
		listing.FieldDescription: "Bright corner unit close to the metro.",
		listing.FieldPhotosLinks: `["https://mediaserver.example/1.jpg","https://mediaserver.example/2.jpg"]`,
		listing.FieldLink:        testLink,
	}
	for name, want := range texts {
		got, ok := field(t, rec, name).Text()
		if !ok || got != want {
			t.Errorf("%s = %q (text=%v), want %q", name, got, ok, want)
		}
	}

	if got, ok := field(t, rec, listing.FieldPrice).Number(); !ok || got != 2150 {
		t.Errorf("price = %v (number=%v), want 2150", got, ok)
	}
	if got, ok := field(t, rec, listing.FieldNumberOfBedrooms).Integer(); !ok || got != 2 {
		t.Errorf("number_of_bedrooms = %v (integer=%v), want 2", got, ok)
	}
	if got, ok := field(t, rec, listing.FieldFloorArea).Number(); !ok || got != 812.5 {
		t.Errorf("floor_area = %v (number=%v), want 812.5", got, ok)
	}
}

func TestExtract_SentinelCompleteness(t *testing.T) {
	rec := extract(t, readTestdata(t, "empty.html"))

	want := map[string]string{
		listing.FieldTitle:            "No title provided",
		listing.FieldRegion:           "Unknown region",
		listing.FieldAddress:          "Unknown address",
		listing.FieldDescription:      "No description provided",
		listing.FieldPhotosLinks:      "No photos provided",
		listing.FieldPrice:            "Price not provided",
		listing.FieldNumberOfBedrooms: "Number of bedrooms not provided",
		listing.FieldFloorArea:        "Floor area not provided",
	}
	for name, reason := range want {
		v := field(t, rec, name)
		got, ok := v.Reason()
		if !ok || got != reason {
			t.Errorf("%s reason = %q (missing=%v), want %q", name, got, ok, reason)
		}
		if v.IsMalformed() {
			t.Errorf("%s should be plain missing, not malformed", name)
		}
	}

	if rec.Link() != testLink {
		t.Errorf("link = %q, want %q", rec.Link(), testLink)
	}
}

func TestExtract_NiceCondoWithoutPrice(t *testing.T) {
	html := `<html><body><span data-id="PageTitle">  Nice Condo  </span></body></html>`
	rec := extract(t, html)

	if got, _ := field(t, rec, listing.FieldTitle).Text(); got != "Nice Condo" {
		t.Errorf("title = %q, want %q", got, "Nice Condo")
	}
	if !field(t, rec, listing.FieldPrice).Equal(listing.Missing("Price not provided")) {
		t.Errorf("price = %v, want Missing(Price not provided)", field(t, rec, listing.FieldPrice))
	}
}

func TestExtract_MalformedValues(t *testing.T) {
	rec := extract(t, readTestdata(t, "malformed.html"))

	malformed := map[string]string{
		listing.FieldPrice:            `Price malformed: "abc"`,
		listing.FieldNumberOfBedrooms: `Number of bedrooms malformed: "Studio"`,
		listing.FieldFloorArea:        `Floor area malformed: "n/a sqft"`,
		listing.FieldPhotosLinks:      `Photos malformed: "loadGallery();"`,
	}
	for name, reason := range malformed {
		v := field(t, rec, name)
		if !v.IsMalformed() {
			t.Errorf("%s should be malformed, got %v", name, v)
			continue
		}
		if got, _ := v.Reason(); got != reason {
			t.Errorf("%s reason = %q, want %q", name, got, reason)
		}
	}

	// Other fields still extract.
	if got, _ := field(t, rec, listing.FieldTitle).Text(); got != "Nice Condo" {
		t.Errorf("title = %q", got)
	}
	if got, _ := field(t, rec, listing.FieldAddress).Text(); got != "Laval" {
		t.Errorf("address = %q", got)
	}
	if got, _ := field(t, rec, listing.FieldRegion).Reason(); got != "Unknown region" {
		t.Errorf("region reason = %q, want Unknown region", got)
	}
}

func TestPrice_Parsing(t *testing.T) {
	tests := []struct {
		text      string
		want      float64
		malformed bool
	}{
		{"$1,234.5", 1234.5, false},
		{"1,234.5", 1234.5, false},
		{"  $2,150  ", 2150, false},
		{"$1 950", 1950, false},
		{"abc", 0, true},
		{"$NaN", 0, true},
		{"$Inf", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			html := `<span class="text-nowrap">` + tt.text + `</span>`
			v := field(t, extract(t, html), listing.FieldPrice)
			if tt.malformed {
				if !v.IsMalformed() {
					t.Errorf("expected malformed, got %v", v)
				}
				return
			}
			if got, ok := v.Number(); !ok || got != tt.want {
				t.Errorf("price = %v (number=%v), want %v", got, ok, tt.want)
			}
		})
	}
}

func TestFloorArea_Parsing(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"812 sqft", 812},
		{"812,5 sqft", 812.5},
		{"640", 640},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			html := `<div class="carac-value"><span>` + tt.text + `</span></div>`
			v := field(t, extract(t, html), listing.FieldFloorArea)
			if got, ok := v.Number(); !ok || got != tt.want {
				t.Errorf("floor_area = %v (number=%v), want %v", got, ok, tt.want)
			}
		})
	}
}

func TestPhotos_WindowsLineEndings(t *testing.T) {
	html := "<div class=\"thumbnail last-child first-child\"><script>\r\nvar photos = [\"a\",\"b\"];\r\nvar n = 2;\r\n</script></div>"
	v := field(t, extract(t, html), listing.FieldPhotosLinks)
	if got, _ := v.Text(); got != `["a","b"]` {
		t.Errorf("photos_links = %q", got)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(readTestdata(t, "detail.html")))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	e := New()
	first := e.Extract(testLink, doc)
	second := e.Extract(testLink, doc)
	if !first.Equal(second) {
		t.Error("extracting the same document twice should give identical records")
	}
}

func TestExtract_SkipsWhitespaceTextNodes(t *testing.T) {
	// The first direct text node is blank; the value sits after a child element.
	html := `<div class="col-lg-3 col-sm-6 cac">
		<i class="icon"></i>3 bedrooms</div>`
	v := field(t, extract(t, html), listing.FieldNumberOfBedrooms)
	if got, ok := v.Integer(); !ok || got != 3 {
		t.Errorf("number_of_bedrooms = %v (integer=%v), want 3", got, ok)
	}
}

func TestWithSelectors_EmptyKeepsDefault(t *testing.T) {
	e := New(WithSelectors(Selectors{Title: "h1.custom"}))
	sel := e.Selectors()

	if sel.Title != "h1.custom" {
		t.Errorf("Title selector = %q", sel.Title)
	}
	if sel.Price != DefaultSelectors().Price {
		t.Errorf("Price selector = %q, want default", sel.Price)
	}

	rec, err := e.ExtractHTML(testLink, `<h1 class="custom">Loft</h1>`)
	if err != nil {
		t.Fatalf("ExtractHTML() error = %v", err)
	}
	if got, _ := field(t, rec, listing.FieldTitle).Text(); got != "Loft" {
		t.Errorf("title = %q", got)
	}
}
