package insights

import (
	"context"
	"testing"

	"github.com/rhan/realtor-worker-fleet/internal/model"
)

func TestCollector_AccumulatesAcrossBatches(t *testing.T) {
	c := NewCollector()
	if err := c.WriteBatch(context.Background(), []*model.ListingRecord{{ListingID: "a"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.WriteBatch(context.Background(), []*model.ListingRecord{{ListingID: "b"}, {ListingID: "c"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := c.Records()
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
}

func TestCollector_ShedsOldestBeyondCap(t *testing.T) {
	c := NewCollector()
	batch := make([]*model.ListingRecord, sampleCap)
	for i := range batch {
		batch[i] = &model.ListingRecord{ListingID: "first"}
	}
	if err := c.WriteBatch(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.WriteBatch(context.Background(), []*model.ListingRecord{{ListingID: "newest"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := c.Records()
	if len(records) != sampleCap {
		t.Fatalf("records = %d, want %d", len(records), sampleCap)
	}
	if records[len(records)-1].ListingID != "newest" {
		t.Errorf("newest record was dropped instead of an older one")
	}
}
