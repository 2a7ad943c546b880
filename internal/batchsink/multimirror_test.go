package batchsink

import (
	"context"
	"errors"
	"testing"

	"github.com/rhan/realtor-worker-fleet/internal/model"
)

type recordingMirror struct {
	batches [][]*model.ListingRecord
	err     error
}

func (m *recordingMirror) WriteBatch(_ context.Context, records []*model.ListingRecord) error {
	m.batches = append(m.batches, records)
	return m.err
}

func TestMultiMirror_WritesToAllNonNilMirrors(t *testing.T) {
	a := &recordingMirror{}
	b := &recordingMirror{}
	m := NewMultiMirror(a, nil, b)

	recs := []*model.ListingRecord{{ListingID: "x"}}
	if err := m.WriteBatch(context.Background(), recs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(a.batches) != 1 || len(b.batches) != 1 {
		t.Fatalf("expected both mirrors to receive the batch, got a=%d b=%d", len(a.batches), len(b.batches))
	}
}

func TestMultiMirror_CombinesErrorsButStillWritesToEach(t *testing.T) {
	failing := &recordingMirror{err: errors.New("boom")}
	ok := &recordingMirror{}
	m := NewMultiMirror(failing, ok)

	err := m.WriteBatch(context.Background(), []*model.ListingRecord{{ListingID: "x"}})
	if err == nil {
		t.Fatal("expected combined error from failing mirror")
	}
	if len(ok.batches) != 1 {
		t.Error("expected the healthy mirror to still receive the batch")
	}
}
