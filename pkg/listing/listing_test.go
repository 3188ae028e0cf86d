package listing

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestValue_Accessors(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		kind Kind
		str  string
	}{
		{"text", Text("Nice Condo"), KindText, "Nice Condo"},
		{"number", Number(1234.5), KindNumber, "1234.5"},
		{"integer", Integer(3), KindInteger, "3"},
		{"missing", Missing("Price not provided"), KindMissing, "Price not provided"},
		{"malformed", Malformed(`Price malformed: "abc"`), KindMissing, `Price malformed: "abc"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", tt.v.Kind(), tt.kind)
			}
			if got := tt.v.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
		})
	}
}

func TestValue_WrongAccessorReportsFalse(t *testing.T) {
	v := Text("x")
	if _, ok := v.Number(); ok {
		t.Error("Number() on text should report false")
	}
	if _, ok := v.Integer(); ok {
		t.Error("Integer() on text should report false")
	}
	if _, ok := v.Reason(); ok {
		t.Error("Reason() on text should report false")
	}

	m := Missing("gone")
	if _, ok := m.Text(); ok {
		t.Error("Text() on missing should report false")
	}
	if reason, ok := m.Reason(); !ok || reason != "gone" {
		t.Errorf("Reason() = %q, %v", reason, ok)
	}
}

func TestValue_Malformed(t *testing.T) {
	if Missing("x").IsMalformed() {
		t.Error("plain missing should not be malformed")
	}
	m := Malformed("x")
	if !m.IsMalformed() || !m.IsMissing() {
		t.Error("malformed value should be missing and malformed")
	}
	if m.Equal(Missing("x")) {
		t.Error("malformed and missing with the same reason should differ")
	}
}

func TestNewRecord_FillsSentinels(t *testing.T) {
	r := NewRecord("https://realtylink.org/en/1", map[string]Value{
		FieldTitle: Text("Nice Condo"),
	})

	if r.Link() != "https://realtylink.org/en/1" {
		t.Errorf("Link() = %q", r.Link())
	}

	want := map[string]string{
		FieldRegion:           "Unknown region",
		FieldAddress:          "Unknown address",
		FieldDescription:      "No description provided",
		FieldPhotosLinks:      "No photos provided",
		FieldPrice:            "Price not provided",
		FieldNumberOfBedrooms: "Number of bedrooms not provided",
		FieldFloorArea:        "Floor area not provided",
	}
	for field, reason := range want {
		v, ok := r.Get(field)
		if !ok {
			t.Errorf("field %s not present", field)
			continue
		}
		if got, _ := v.Reason(); got != reason {
			t.Errorf("%s reason = %q, want %q", field, got, reason)
		}
	}

	title, _ := r.Get(FieldTitle)
	if s, _ := title.Text(); s != "Nice Condo" {
		t.Errorf("title = %q", s)
	}
}

func TestRecord_FieldsIsACopy(t *testing.T) {
	r := NewRecord("u", nil)
	f := r.Fields()
	f[FieldTitle] = Text("changed")

	v, _ := r.Get(FieldTitle)
	if !v.IsMissing() {
		t.Error("mutating Fields() result should not change the record")
	}
	if len(f) != len(FieldNames) {
		t.Errorf("Fields() has %d entries, want %d", len(f), len(FieldNames))
	}
}

func TestRecord_MarshalJSON_KeysAndTypes(t *testing.T) {
	r := NewRecord("https://realtylink.org/en/1", map[string]Value{
		FieldTitle:            Text("Nice Condo"),
		FieldPrice:            Number(1234.5),
		FieldNumberOfBedrooms: Integer(2),
	})

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(got) != len(FieldNames) {
		t.Errorf("expected %d keys, got %d: %s", len(FieldNames), len(got), data)
	}
	if got["price"] != 1234.5 {
		t.Errorf("price = %v", got["price"])
	}
	if got["number_of_bedrooms"] != float64(2) {
		t.Errorf("number_of_bedrooms = %v", got["number_of_bedrooms"])
	}
	if got["floor_area"] != "Floor area not provided" {
		t.Errorf("floor_area = %v", got["floor_area"])
	}

	// Keys come out in output order.
	if !strings.HasPrefix(string(data), `{"title":"Nice Condo","link":`) {
		t.Errorf("unexpected key order: %s", data)
	}
}

func TestRecord_MarshalYAML(t *testing.T) {
	r := NewRecord("u", map[string]Value{FieldPrice: Number(900)})

	data, err := yaml.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got map[string]any
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["price"] != 900 {
		t.Errorf("price = %v (%T)", got["price"], got["price"])
	}
	if got["title"] != "No title provided" {
		t.Errorf("title = %v", got["title"])
	}
}

func TestRecord_Strings(t *testing.T) {
	r := NewRecord("u", map[string]Value{FieldFloorArea: Number(61.5)})
	row := r.Strings()
	if len(row) != len(FieldNames) {
		t.Fatalf("row has %d cells", len(row))
	}
	if row[1] != "u" {
		t.Errorf("link cell = %q", row[1])
	}
	if row[8] != "61.5" {
		t.Errorf("floor_area cell = %q", row[8])
	}
}
