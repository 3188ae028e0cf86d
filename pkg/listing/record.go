package listing

import (
	"encoding/json"
	"maps"
)

// Field names, in output order.
const (
	FieldTitle            = "title"
	FieldLink             = "link"
	FieldRegion           = "region"
	FieldAddress          = "address"
	FieldDescription      = "description"
	FieldPhotosLinks      = "photos_links"
	FieldPrice            = "price"
	FieldNumberOfBedrooms = "number_of_bedrooms"
	FieldFloorArea        = "floor_area"
)

// FieldNames lists every output key in order.
var FieldNames = []string{
	FieldTitle,
	FieldLink,
	FieldRegion,
	FieldAddress,
	FieldDescription,
	FieldPhotosLinks,
	FieldPrice,
	FieldNumberOfBedrooms,
	FieldFloorArea,
}

// Sentinel reasons used when a field's marker is absent from the page.
var sentinels = map[string]string{
	FieldTitle:            "No title provided",
	FieldRegion:           "Unknown region",
	FieldAddress:          "Unknown address",
	FieldDescription:      "No description provided",
	FieldPhotosLinks:      "No photos provided",
	FieldPrice:            "Price not provided",
	FieldNumberOfBedrooms: "Number of bedrooms not provided",
	FieldFloorArea:        "Floor area not provided",
}

// Sentinel returns the missing value reported when field is absent.
func Sentinel(field string) Value {
	return Missing(sentinels[field])
}

// Record is the extracted data for one detail page. It is built once by
// NewRecord and has no mutators.
type Record struct {
	link   string
	fields map[string]Value
}

// NewRecord builds a record for link. Every extractable field not present in
// fields is filled with its sentinel. A "link" entry in fields is ignored.
func NewRecord(link string, fields map[string]Value) Record {
	r := Record{link: link, fields: make(map[string]Value, len(sentinels))}
	for name := range sentinels {
		if v, ok := fields[name]; ok {
			r.fields[name] = v
		} else {
			r.fields[name] = Sentinel(name)
		}
	}
	return r
}

// Link returns the URL the record was fetched from.
func (r Record) Link() string { return r.link }

// Get returns the value of the named field. "link" is returned as text.
func (r Record) Get(name string) (Value, bool) {
	if name == FieldLink {
		return Text(r.link), true
	}
	v, ok := r.fields[name]
	return v, ok
}

// Fields returns a copy of the field values, including link.
func (r Record) Fields() map[string]Value {
	out := maps.Clone(r.fields)
	if out == nil {
		out = make(map[string]Value, 1)
	}
	out[FieldLink] = Text(r.link)
	return out
}

// Strings returns the record's values rendered with Value.String, in
// FieldNames order.
func (r Record) Strings() []string {
	row := make([]string, len(FieldNames))
	for i, name := range FieldNames {
		v, _ := r.Get(name)
		row[i] = v.String()
	}
	return row
}

// Equal reports whether both records hold the same link and values.
func (r Record) Equal(o Record) bool {
	if r.link != o.link || len(r.fields) != len(o.fields) {
		return false
	}
	for k, v := range r.fields {
		if !v.Equal(o.fields[k]) {
			return false
		}
	}
	return true
}

// document fixes the key order for encoders.
type document struct {
	Title            Value  `json:"title" yaml:"title"`
	Link             string `json:"link" yaml:"link"`
	Region           Value  `json:"region" yaml:"region"`
	Address          Value  `json:"address" yaml:"address"`
	Description      Value  `json:"description" yaml:"description"`
	PhotosLinks      Value  `json:"photos_links" yaml:"photos_links"`
	Price            Value  `json:"price" yaml:"price"`
	NumberOfBedrooms Value  `json:"number_of_bedrooms" yaml:"number_of_bedrooms"`
	FloorArea        Value  `json:"floor_area" yaml:"floor_area"`
}

func (r Record) document() document {
	get := func(name string) Value {
		v, _ := r.Get(name)
		return v
	}
	return document{
		Title:            get(FieldTitle),
		Link:             r.link,
		Region:           get(FieldRegion),
		Address:          get(FieldAddress),
		Description:      get(FieldDescription),
		PhotosLinks:      get(FieldPhotosLinks),
		Price:            get(FieldPrice),
		NumberOfBedrooms: get(FieldNumberOfBedrooms),
		FloorArea:        get(FieldFloorArea),
	}
}

// MarshalJSON encodes the record as an object with the nine output keys.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.document())
}

// MarshalYAML implements yaml.Marshaler.
func (r Record) MarshalYAML() (any, error) {
	return r.document(), nil
}
