// Package batchsink buffers finalized listing records and flushes them as
// compressed NDJSON objects to S3, grounded on original_source's
// flush_buffer/_compress_ndjson. spec.md §9 prefers a bounded-channel
// design over the Python implementation's buffer-plus-lock, so the buffer
// here is driven by a single goroutine reading off a channel rather than
// guarded by a mutex.
package batchsink

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/rhan/realtor-worker-fleet/internal/model"
)

// overflowFactor caps the channel at this multiple of BufferMax so a stalled
// flusher sheds load instead of growing without bound (spec.md §7 resource
// model).
const overflowFactor = 10

// Uploader is the narrow S3 surface the sink needs, so tests can substitute
// an in-memory fake instead of a real client.
type Uploader interface {
	PutObject(ctx context.Context, bucket, key string, body []byte, contentType, contentEncoding string) error
}

// Mirror is the optional secondary sink (e.g. Postgres) a flushed batch is
// also written to. A nil Mirror is a no-op.
type Mirror interface {
	WriteBatch(ctx context.Context, records []*model.ListingRecord) error
}

// Config controls buffering thresholds and the S3 destination.
type Config struct {
	Bucket        string
	PrefixRecords string
	Codec         string // "zstd" or "gzip"
	BufferMax     int
	FlushAfter    time.Duration
}

// Sink accumulates records off a channel and flushes them in batches.
type Sink struct {
	cfg      Config
	uploader Uploader
	mirror   Mirror

	records chan *model.ListingRecord
	done    chan struct{}

	// nowFunc is overridable in tests.
	nowFunc func() time.Time
}

// New builds a Sink. It does not start the flush loop: call Run to drive
// it, and cancel Run's context to drain and stop it.
func New(cfg Config, uploader Uploader, mirror Mirror) *Sink {
	if cfg.BufferMax <= 0 {
		cfg.BufferMax = 500
	}
	if cfg.FlushAfter <= 0 {
		cfg.FlushAfter = 10 * time.Second
	}
	if cfg.Codec == "" {
		cfg.Codec = "zstd"
	}

	s := &Sink{
		cfg:      cfg,
		uploader: uploader,
		mirror:   mirror,
		records:  make(chan *model.ListingRecord, cfg.BufferMax*overflowFactor),
		done:     make(chan struct{}),
		nowFunc:  time.Now,
	}
	return s
}

// Add enqueues a record for the next flush. It never blocks indefinitely:
// if the channel is full the record is dropped with a warning, matching
// spec.md §7's overflow-shedding safety valve.
func (s *Sink) Add(rec *model.ListingRecord) {
	select {
	case s.records <- rec:
	default:
		log.Warn().Str("listing_id", rec.ListingID).Msg("batchsink: buffer full, dropping record")
	}
}

// Run drives the flush loop until ctx is cancelled, then performs one final
// drain-and-flush before returning. Grounded on original_source's
// run_worker flusher coroutine (size- or age-triggered flush).
func (s *Sink) Run(ctx context.Context) error {
	defer close(s.done)

	buf := make([]*model.ListingRecord, 0, s.cfg.BufferMax)
	ticker := time.NewTicker(s.cfg.FlushAfter)
	defer ticker.Stop()

	// flush leaves buf untouched on a storage failure so the same records
	// are retried next tick (spec.md §4.5/§7: "buffer retained for next
	// tick" on a persistent object-store failure); it only drains buf once
	// the put actually succeeds.
	flush := func() {
		if len(buf) == 0 {
			return
		}
		if err := s.flush(ctx, buf); err != nil {
			log.Error().Err(err).Int("count", len(buf)).Msg("batchsink: flush failed, retaining buffer")
			return
		}
		log.Info().Int("count", len(buf)).Msg("batchsink: flushed")
		buf = buf[:0]
	}

	// safetyCap bounds buf itself: if storage stays down long enough that
	// retained records plus ongoing appends exceed it, the oldest records
	// are shed with a warning rather than growing without bound (spec.md
	// §4.5's "safety cap, ≥10×BUFFER_MAX").
	safetyCap := s.cfg.BufferMax * overflowFactor
	shedIfOverCap := func() {
		if over := len(buf) - safetyCap; over > 0 {
			log.Warn().Int("shed", over).Int("cap", safetyCap).Msg("batchsink: buffer exceeded safety cap, shedding oldest records")
			buf = append(buf[:0], buf[over:]...)
		}
	}

	for {
		select {
		case <-ctx.Done():
			// Best-effort final drain: pick up whatever is already queued,
			// then flush once. The final put runs on a context detached
			// from the cancellation, so the upload is not aborted by it.
			runErr := ctx.Err()
			ctx = context.WithoutCancel(ctx)
			for {
				select {
				case rec := <-s.records:
					buf = append(buf, rec)
					shedIfOverCap()
				default:
					flush()
					return runErr
				}
			}
		case rec := <-s.records:
			buf = append(buf, rec)
			shedIfOverCap()
			if len(buf) >= s.cfg.BufferMax {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (s *Sink) flush(ctx context.Context, buf []*model.ListingRecord) error {
	blob, ext, encoding, err := compress(buf, s.cfg.Codec)
	if err != nil {
		return fmt.Errorf("batchsink: compress: %w", err)
	}

	now := s.nowFunc().UTC()
	key := fmt.Sprintf("%s/%s/part-%s-%d.ndjson.%s",
		s.cfg.PrefixRecords,
		now.Format("20060102"),
		now.Format("150405"),
		now.UnixMilli(),
		ext,
	)

	if err := s.uploader.PutObject(ctx, s.cfg.Bucket, key, blob, "application/x-ndjson", encoding); err != nil {
		return fmt.Errorf("batchsink: put object: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.WriteBatch(ctx, buf); err != nil {
			log.Error().Err(err).Msg("batchsink: postgres mirror write failed")
		}
	}

	return nil
}

// compress serializes records as compact, non-HTML-escaped NDJSON and
// compresses the result, returning the blob, file extension, and
// Content-Encoding header value to use.
func compress(records []*model.ListingRecord, codec string) (blob []byte, ext string, encoding string, err error) {
	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, "", "", err
		}
	}

	if codec == "zstd" {
		// klauspost/compress/zstd exposes named speed tiers rather than
		// original_source's numeric level 10; SpeedBestCompression is the
		// closest available tier.
		zw, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return nil, "", "", err
		}
		compressed := zw.EncodeAll(payload.Bytes(), nil)
		if err := zw.Close(); err != nil {
			return nil, "", "", err
		}
		return compressed, "zst", "zstd", nil
	}

	var gz bytes.Buffer
	gw, err := gzip.NewWriterLevel(&gz, gzip.DefaultCompression)
	if err != nil {
		return nil, "", "", err
	}
	if _, err := gw.Write(payload.Bytes()); err != nil {
		return nil, "", "", err
	}
	if err := gw.Close(); err != nil {
		return nil, "", "", err
	}
	return gz.Bytes(), "gz", "gzip", nil
}
