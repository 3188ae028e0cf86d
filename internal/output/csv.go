package output

import (
	"encoding/csv"
	"io"

	"github.com/jmylchreest/realty/pkg/listing"
)

// CSVWriter writes one row per record with columns in listing.FieldNames
// order. Missing values are written as their reason text.
type CSVWriter struct {
	w          *csv.Writer
	header     bool
	headerDone bool
}

// NewCSVWriter creates a CSV writer. The header row is written before the
// first record when header is true.
func NewCSVWriter(w io.Writer, header bool) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), header: header}
}

// Write writes a single record row.
func (w *CSVWriter) Write(rec listing.Record) error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	if err := w.w.Write(rec.Strings()); err != nil {
		return err
	}
	w.w.Flush()
	return w.w.Error()
}

// WriteAll writes multiple record rows.
func (w *CSVWriter) WriteAll(recs []listing.Record) error {
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func (w *CSVWriter) writeHeader() error {
	if !w.header || w.headerDone {
		return nil
	}
	w.headerDone = true
	return w.w.Write(listing.FieldNames)
}

// Flush flushes the buffer. A header-only file is produced when nothing was
// written.
func (w *CSVWriter) Flush() error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	w.w.Flush()
	return w.w.Error()
}

// Close flushes the writer.
func (w *CSVWriter) Close() error {
	return w.Flush()
}
