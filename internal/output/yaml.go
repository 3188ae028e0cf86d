package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/realty/pkg/listing"
)

// YAMLWriter writes records as a YAML sequence on Flush.
type YAMLWriter struct {
	w     *bufio.Writer
	items []listing.Record
	done  bool
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{
		w:     bufio.NewWriter(w),
		items: make([]listing.Record, 0),
	}
}

// Write buffers a single record.
func (w *YAMLWriter) Write(rec listing.Record) error {
	if w.done {
		return ErrClosed
	}
	w.items = append(w.items, rec)
	return nil
}

// WriteAll buffers multiple records.
func (w *YAMLWriter) WriteAll(recs []listing.Record) error {
	if w.done {
		return ErrClosed
	}
	w.items = append(w.items, recs...)
	return nil
}

// Flush writes the buffered records as YAML.
func (w *YAMLWriter) Flush() error {
	if w.done {
		return nil
	}
	w.done = true

	encoder := yaml.NewEncoder(w.w)
	encoder.SetIndent(2)

	if err := encoder.Encode(w.items); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}

	return w.w.Flush()
}

// Close flushes and closes the writer.
func (w *YAMLWriter) Close() error {
	return w.Flush()
}
