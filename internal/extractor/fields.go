package extractor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/realty/pkg/listing"
)

// textField trims the selected text, falling back to the field's sentinel.
func textField(doc *goquery.Document, selector, field string) listing.Value {
	raw, ok := firstText(doc, selector)
	if !ok {
		return listing.Sentinel(field)
	}
	return listing.Text(strings.TrimSpace(raw))
}

// region is everything after the first comma of the location heading.
// The remaining parts are concatenated without a separator.
func region(location string, ok bool) listing.Value {
	if !ok {
		return listing.Sentinel(listing.FieldRegion)
	}
	parts := strings.Split(location, ",")
	r := strings.TrimSpace(strings.Join(parts[1:], ""))
	if r == "" {
		return listing.Sentinel(listing.FieldRegion)
	}
	return listing.Text(r)
}

// address is the part of the location heading before the first comma.
func address(location string, ok bool) listing.Value {
	if !ok {
		return listing.Sentinel(listing.FieldAddress)
	}
	a, _, _ := strings.Cut(location, ",")
	a = strings.TrimSpace(a)
	if a == "" {
		return listing.Sentinel(listing.FieldAddress)
	}
	return listing.Text(a)
}

// photos pulls the right-hand side of the photo array assignment out of the
// inline gallery script, e.g. `var MosaicPhotoUrls = ["a","b"];`.
func photos(doc *goquery.Document, selector string) listing.Value {
	raw, ok := firstText(doc, selector)
	if !ok {
		return listing.Sentinel(listing.FieldPhotosLinks)
	}

	_, rhs, found := strings.Cut(raw, " = ")
	if !found {
		return malformed("Photos", raw)
	}

	for _, term := range []string{";\r\n", ";\n"} {
		if i := strings.Index(rhs, term); i >= 0 {
			rhs = rhs[:i]
			break
		}
	}
	rhs = strings.TrimSuffix(strings.TrimSpace(rhs), ";")
	if rhs == "" {
		return malformed("Photos", raw)
	}
	return listing.Text(rhs)
}

// price strips the currency symbol, thousands separators and spacing.
func price(doc *goquery.Document, selector string) listing.Value {
	raw, ok := firstText(doc, selector)
	if !ok {
		return listing.Sentinel(listing.FieldPrice)
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ', '\u00a0', '\t', '\n', '\r':
			return -1
		}
		return r
	}, raw)

	f, err := parseFloat(cleaned)
	if err != nil {
		return malformed("Price", raw)
	}
	return listing.Number(f)
}

// bedrooms parses the leading token of the bedroom count, e.g. "3 bedrooms".
func bedrooms(doc *goquery.Document, selector string) listing.Value {
	raw, ok := firstText(doc, selector)
	if !ok {
		return listing.Sentinel(listing.FieldNumberOfBedrooms)
	}

	tokens := strings.Fields(raw)
	if len(tokens) == 0 {
		return listing.Sentinel(listing.FieldNumberOfBedrooms)
	}
	n, err := strconv.ParseInt(tokens[0], 10, 64)
	if err != nil {
		return malformed("Number of bedrooms", raw)
	}
	return listing.Integer(n)
}

// floorArea drops the "sqft" unit and reads a comma as the decimal separator.
func floorArea(doc *goquery.Document, selector string) listing.Value {
	raw, ok := firstText(doc, selector)
	if !ok {
		return listing.Sentinel(listing.FieldFloorArea)
	}

	number, _, _ := strings.Cut(raw, "sqft")
	number = strings.ReplaceAll(strings.TrimSpace(number), ",", ".")

	f, err := parseFloat(number)
	if err != nil {
		return malformed("Floor area", raw)
	}
	return listing.Number(f)
}

// parseFloat rejects the NaN and infinity spellings strconv accepts.
func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return f, nil
}

func malformed(label, raw string) listing.Value {
	return listing.Malformed(fmt.Sprintf("%s malformed: %q", label, strings.TrimSpace(raw)))
}
