package store

import (
	"context"

	"github.com/jmylchreest/realty/pkg/listing"
)

// DefaultBatchSize is the number of records buffered before a batch is sent.
const DefaultBatchSize = 50

// batchSaver is the part of Postgres the writer needs.
type batchSaver interface {
	SaveBatch(ctx context.Context, recs []listing.Record) (int, error)
}

// Writer buffers records and upserts them in batches. It satisfies
// output.Writer so it can sit next to the file writers.
type Writer struct {
	ctx       context.Context
	saver     batchSaver
	batchSize int
	pending   []listing.Record
	saved     int
}

// NewWriter creates a batching writer over p. ctx bounds every batch.
func NewWriter(ctx context.Context, p *Postgres, batchSize int) *Writer {
	return newWriter(ctx, p, batchSize)
}

func newWriter(ctx context.Context, s batchSaver, batchSize int) *Writer {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Writer{ctx: ctx, saver: s, batchSize: batchSize}
}

// Write buffers rec, sending a batch once batchSize records are pending.
func (w *Writer) Write(rec listing.Record) error {
	w.pending = append(w.pending, rec)
	if len(w.pending) >= w.batchSize {
		return w.Flush()
	}
	return nil
}

// WriteAll buffers recs.
func (w *Writer) WriteAll(recs []listing.Record) error {
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// Flush sends pending records.
func (w *Writer) Flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	n, err := w.saver.SaveBatch(w.ctx, w.pending)
	w.saved += n
	w.pending = w.pending[:0]
	return err
}

// Close flushes pending records. The pool is closed by its owner.
func (w *Writer) Close() error {
	return w.Flush()
}

// Saved returns the number of rows sent so far.
func (w *Writer) Saved() int {
	return w.saved
}
