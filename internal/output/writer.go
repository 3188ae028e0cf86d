// Package output handles serializing listing records.
package output

import (
	"errors"
	"fmt"
	"io"

	"github.com/jmylchreest/realty/pkg/listing"
)

// Format represents output format types.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatJSONL, FormatYAML, FormatCSV}

// ErrClosed is returned when writing to a writer that has been flushed
// for the last time.
var ErrClosed = errors.New("writer closed")

// Writer handles record serialization.
type Writer interface {
	// Write outputs a single record.
	Write(rec listing.Record) error

	// WriteAll outputs multiple records.
	WriteAll(recs []listing.Record) error

	// Flush ensures all data is written.
	Flush() error

	// Close releases resources.
	Close() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty bool
	indent string
	header bool
}

// WithPretty enables pretty-printing.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// WithHeader controls the CSV header row.
func WithHeader(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.header = enabled
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty: true,
		indent: "  ",
		header: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatJSON:
		return NewJSONWriter(w, cfg.pretty, cfg.indent), nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	case FormatCSV:
		return NewCSVWriter(w, cfg.header), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// MultiWriter fans records out to several writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter combines writers. Nil entries are skipped.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	m := &MultiWriter{}
	for _, w := range writers {
		if w != nil {
			m.writers = append(m.writers, w)
		}
	}
	return m
}

// Write writes rec to every writer.
func (m *MultiWriter) Write(rec listing.Record) error {
	var errs []error
	for _, w := range m.writers {
		errs = append(errs, w.Write(rec))
	}
	return errors.Join(errs...)
}

// WriteAll writes recs to every writer.
func (m *MultiWriter) WriteAll(recs []listing.Record) error {
	var errs []error
	for _, w := range m.writers {
		errs = append(errs, w.WriteAll(recs))
	}
	return errors.Join(errs...)
}

// Flush flushes every writer.
func (m *MultiWriter) Flush() error {
	var errs []error
	for _, w := range m.writers {
		errs = append(errs, w.Flush())
	}
	return errors.Join(errs...)
}

// Close closes every writer.
func (m *MultiWriter) Close() error {
	var errs []error
	for _, w := range m.writers {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}
