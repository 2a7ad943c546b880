package batchsink

import (
	"context"
	"errors"

	"github.com/rhan/realtor-worker-fleet/internal/model"
)

// MultiMirror fans a flushed batch out to several Mirrors, so the optional
// Postgres mirror and an in-process insights sample can both ride along
// with the same flush without the sink needing to know about either.
type MultiMirror struct {
	mirrors []Mirror
}

// NewMultiMirror returns a Mirror that writes to each non-nil mirror in
// order, combining their errors rather than stopping at the first failure
// so one mirror's outage doesn't silently starve the others.
func NewMultiMirror(mirrors ...Mirror) *MultiMirror {
	var filtered []Mirror
	for _, m := range mirrors {
		if m != nil {
			filtered = append(filtered, m)
		}
	}
	return &MultiMirror{mirrors: filtered}
}

func (m *MultiMirror) WriteBatch(ctx context.Context, records []*model.ListingRecord) error {
	var errs []error
	for _, mirror := range m.mirrors {
		if err := mirror.WriteBatch(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
