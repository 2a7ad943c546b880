package insights

import (
	"context"
	"sync"

	"github.com/rhan/realtor-worker-fleet/internal/model"
)

// sampleCap bounds how many records the collector retains. The worker fleet
// is a long-running daemon rather than the teacher's one-shot scrape, so an
// unbounded "every record this process ever saw" accumulator would grow
// without limit; a fixed-size ring sample is enough for an end-of-run
// report without becoming a second, uncapped buffer alongside the batch
// sink's own.
const sampleCap = 20_000

// Collector implements batchsink.Mirror, sampling up to sampleCap records
// across the run so Print can summarize a representative slice at
// shutdown. Oldest records are dropped once the cap is reached.
type Collector struct {
	mu      sync.Mutex
	records []*model.ListingRecord
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{records: make([]*model.ListingRecord, 0, sampleCap)}
}

// WriteBatch appends a flushed batch's records to the sample, shedding the
// oldest entries once sampleCap is exceeded.
func (c *Collector) WriteBatch(_ context.Context, records []*model.ListingRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, records...)
	if over := len(c.records) - sampleCap; over > 0 {
		c.records = c.records[over:]
	}
	return nil
}

// Records returns a snapshot of the currently sampled records.
func (c *Collector) Records() []*model.ListingRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*model.ListingRecord(nil), c.records...)
}
