package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jmylchreest/realty/internal/output"
	"github.com/jmylchreest/realty/pkg/listing"
)

var _ output.Writer = (*Writer)(nil)

func fullRecord() listing.Record {
	return listing.NewRecord("https://realtylink.org/en/1", map[string]listing.Value{
		listing.FieldTitle:            listing.Text("Condo for rent"),
		listing.FieldRegion:           listing.Text("Montréal (Ville-Marie)"),
		listing.FieldAddress:          listing.Text("1234"),
		listing.FieldDescription:      listing.Text("Bright"),
		listing.FieldPhotosLinks:      listing.Text(`["a"]`),
		listing.FieldPrice:            listing.Number(2150),
		listing.FieldNumberOfBedrooms: listing.Integer(2),
		listing.FieldFloorArea:        listing.Number(812.5),
	})
}

// --- Row Mapping Tests ---

func TestToRow_Complete(t *testing.T) {
	r := toRow(fullRecord())

	if r.URL != "https://realtylink.org/en/1" || r.Title != "Condo for rent" || r.Address != "1234" {
		t.Errorf("unexpected text columns %+v", r)
	}
	if r.Price == nil || *r.Price != 2150 {
		t.Errorf("Price = %v", r.Price)
	}
	if r.Bedrooms == nil || *r.Bedrooms != 2 {
		t.Errorf("Bedrooms = %v", r.Bedrooms)
	}
	if r.FloorArea == nil || *r.FloorArea != 812.5 {
		t.Errorf("FloorArea = %v", r.FloorArea)
	}
	if len(r.MissingFields) != 0 {
		t.Errorf("expected no missing fields, got %v", r.MissingFields)
	}
}

func TestToRow_LargeValuesKept(t *testing.T) {
	rec := listing.NewRecord("https://realtylink.org/en/3", map[string]listing.Value{
		listing.FieldPrice:            listing.Number(1e18),
		listing.FieldNumberOfBedrooms: listing.Integer(1 << 40),
		listing.FieldFloorArea:        listing.Number(123456789012.75),
	})
	r := toRow(rec)

	if r.Price == nil || *r.Price != 1e18 {
		t.Errorf("Price = %v", r.Price)
	}
	if r.Bedrooms == nil || *r.Bedrooms != 1<<40 {
		t.Errorf("Bedrooms = %v", r.Bedrooms)
	}
	if r.FloorArea == nil || *r.FloorArea != 123456789012.75 {
		t.Errorf("FloorArea = %v", r.FloorArea)
	}
}

func TestSchema_NumericColumnsHoldParsedRange(t *testing.T) {
	for _, col := range []string{
		"price              DOUBLE PRECISION",
		"number_of_bedrooms BIGINT",
		"floor_area         DOUBLE PRECISION",
	} {
		if !strings.Contains(schemaSQL, col) {
			t.Errorf("schema should declare %q", col)
		}
	}
	if strings.Contains(schemaSQL, "NUMERIC(") {
		t.Error("schema should not bound numeric precision")
	}
}

func TestToRow_MissingValues(t *testing.T) {
	rec := listing.NewRecord("https://realtylink.org/en/2", map[string]listing.Value{
		listing.FieldTitle: listing.Text("Nice Condo"),
		listing.FieldPrice: listing.Malformed(`Price malformed: "abc"`),
	})
	r := toRow(rec)

	if r.Price != nil || r.Bedrooms != nil || r.FloorArea != nil {
		t.Errorf("missing numerics should be NULL, got %+v", r)
	}
	if r.Region != "Unknown region" {
		t.Errorf("Region = %q, want sentinel", r.Region)
	}

	want := []string{
		listing.FieldRegion,
		listing.FieldAddress,
		listing.FieldDescription,
		listing.FieldPhotosLinks,
		listing.FieldPrice,
		listing.FieldNumberOfBedrooms,
		listing.FieldFloorArea,
	}
	if len(r.MissingFields) != len(want) {
		t.Fatalf("MissingFields = %v, want %v", r.MissingFields, want)
	}
	for i := range want {
		if r.MissingFields[i] != want[i] {
			t.Errorf("MissingFields[%d] = %q, want %q", i, r.MissingFields[i], want[i])
		}
	}
}

func TestBuildBatch_SkipsRecordsWithoutLink(t *testing.T) {
	batch := buildBatch([]listing.Record{fullRecord(), listing.NewRecord("", nil)})
	if batch.Len() != 1 {
		t.Errorf("expected 1 queued row, got %d", batch.Len())
	}
}

// --- Writer Tests ---

type fakeSaver struct {
	batches [][]listing.Record
	err     error
}

func (f *fakeSaver) SaveBatch(_ context.Context, recs []listing.Record) (int, error) {
	f.batches = append(f.batches, append([]listing.Record(nil), recs...))
	if f.err != nil {
		return 0, f.err
	}
	return len(recs), nil
}

func TestWriter_BatchesAndFlushesOnClose(t *testing.T) {
	saver := &fakeSaver{}
	w := newWriter(context.Background(), saver, 2)

	for range 5 {
		if err := w.Write(fullRecord()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if len(saver.batches) != 2 {
		t.Errorf("expected 2 full batches before close, got %d", len(saver.batches))
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if len(saver.batches) != 3 || len(saver.batches[2]) != 1 {
		t.Errorf("expected trailing batch of 1, got %d batches", len(saver.batches))
	}
	if w.Saved() != 5 {
		t.Errorf("Saved() = %d, want 5", w.Saved())
	}
}

func TestWriter_PropagatesErrors(t *testing.T) {
	boom := errors.New("connection lost")
	w := newWriter(context.Background(), &fakeSaver{err: boom}, 1)

	if err := w.Write(fullRecord()); !errors.Is(err, boom) {
		t.Errorf("expected save error, got %v", err)
	}
}

func TestWriter_DefaultBatchSize(t *testing.T) {
	w := newWriter(context.Background(), &fakeSaver{}, 0)
	if w.batchSize != DefaultBatchSize {
		t.Errorf("batchSize = %d, want %d", w.batchSize, DefaultBatchSize)
	}
}
