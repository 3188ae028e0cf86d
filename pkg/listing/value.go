// Package listing defines the records produced for each listing detail page.
package listing

import (
	"encoding/json"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindMissing Kind = iota
	KindText
	KindNumber
	KindInteger
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	default:
		return "missing"
	}
}

// Value is a single extracted field: text, a number, an integer, or a
// missing marker carrying a human-readable reason. The zero Value is missing
// with an empty reason.
type Value struct {
	kind      Kind
	text      string
	number    float64
	integer   int64
	malformed bool
}

// Text returns a text value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Number returns a floating-point value.
func Number(f float64) Value {
	return Value{kind: KindNumber, number: f}
}

// Integer returns an integer value.
func Integer(i int64) Value {
	return Value{kind: KindInteger, integer: i}
}

// Missing returns a value marking the field as absent from the page.
func Missing(reason string) Value {
	return Value{kind: KindMissing, text: reason}
}

// Malformed returns a missing value for a field that was present but could
// not be parsed. It reports IsMalformed.
func Malformed(reason string) Value {
	return Value{kind: KindMissing, text: reason, malformed: true}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether v is a missing or malformed marker.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// IsMalformed reports whether v marks a present but unparsable field.
func (v Value) IsMalformed() bool { return v.kind == KindMissing && v.malformed }

// Text returns the text of a text value.
func (v Value) Text() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// Number returns the number of a number value.
func (v Value) Number() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.number, true
}

// Integer returns the integer of an integer value.
func (v Value) Integer() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.integer, true
}

// Reason returns why a missing value is missing.
func (v Value) Reason() (string, bool) {
	if v.kind != KindMissing {
		return "", false
	}
	return v.text, true
}

// String renders the value the way it appears in flat outputs such as CSV.
// Missing values render as their reason.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case KindInteger:
		return strconv.FormatInt(v.integer, 10)
	default:
		return v.text
	}
}

// Equal reports whether two values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	return v == o
}

// plain returns the untagged Go value used by the encoders.
func (v Value) plain() any {
	switch v.kind {
	case KindNumber:
		return v.number
	case KindInteger:
		return v.integer
	default:
		return v.text
	}
}

// MarshalJSON encodes numbers as JSON numbers and everything else as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.plain())
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (any, error) {
	return v.plain(), nil
}
