// Package orchestrator runs the receiver and worker pool that drive one
// worker process; the flusher of the receiver/workers/flusher triad is
// batchsink.Sink.Run, which cmd/worker starts alongside. Grounded on
// original_source's
// run_worker (receiver/worker_task/flusher asyncio orchestration) and the
// teacher's service/scraper_service.go Service+Run shape and
// scraper/airbnb/chromedp_scraper.go worker-pool channel idiom.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rhan/realtor-worker-fleet/internal/batchsink"
	"github.com/rhan/realtor-worker-fleet/internal/extractor"
	"github.com/rhan/realtor-worker-fleet/internal/fetcher"
	"github.com/rhan/realtor-worker-fleet/internal/fingerprint"
	"github.com/rhan/realtor-worker-fleet/internal/model"
	"github.com/rhan/realtor-worker-fleet/internal/proxypool"
	"github.com/rhan/realtor-worker-fleet/internal/queueclient"
)

// Fetcher is the collaborator interface the orchestrator needs from
// internal/fetcher, narrowed to one method per the teacher's
// internal/domain.Scraper capability-interface idiom.
type Fetcher interface {
	Fetch(ctx context.Context, url, proxyURL string, headers map[string]string, timeout time.Duration) (*fetcher.Result, error)
}

// Extractor is the collaborator interface for turning fetched HTML into a
// finalized record.
type Extractor interface {
	Extract(ctx context.Context, url, html string) *model.ListingRecord
}

// Sink is the collaborator interface for buffering finalized records.
type Sink interface {
	Add(rec *model.ListingRecord)
}

// Config controls concurrency and polling cadence.
type Config struct {
	MaxConcurrency  int
	SiteHost        string
	WaitTimeSeconds int32
	VisibilityS     int32
	IdleSleep       time.Duration
	RequestTimeout  time.Duration
}

// Orchestrator wires the queue, proxy pool, fetcher, extractor, and sink
// together into the receiver/worker-pool pipeline; it only calls Sink.Add
// and does not run the sink's flush loop.
type Orchestrator struct {
	cfg     Config
	queue   queueclient.Queue
	proxies *proxypool.Pool
	ua      *fingerprint.Builder
	fetch   Fetcher
	extract Extractor
	sink    Sink
}

func New(cfg Config, queue queueclient.Queue, proxies *proxypool.Pool, ua *fingerprint.Builder, fetch Fetcher, extract Extractor, sink Sink) *Orchestrator {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	return &Orchestrator{cfg: cfg, queue: queue, proxies: proxies, ua: ua, fetch: fetch, extract: extract, sink: sink}
}

// Run starts the receiver, the worker pool, and blocks until ctx is
// cancelled, at which point in-flight workers finish their current
// message best-effort and Run returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	jobs := make(chan queueclient.Message, o.cfg.MaxConcurrency*2)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.receive(ctx, jobs)
	}()

	for i := 0; i < o.cfg.MaxConcurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			o.work(ctx, id, jobs)
		}(i)
	}

	wg.Wait()
	return ctx.Err()
}

// receive long-polls the queue and forwards messages onto jobs until ctx is
// cancelled. Queue errors back off for a second; empty polls back off for
// IdleSleep, matching original_source's receiver coroutine.
func (o *Orchestrator) receive(ctx context.Context, jobs chan<- queueclient.Message) {
	defer close(jobs)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := o.queue.Receive(ctx, o.cfg.WaitTimeSeconds, o.cfg.VisibilityS)
		if err != nil {
			log.Warn().Err(err).Msg("orchestrator: receive error")
			if !sleepOrDone(ctx, time.Second) {
				return
			}
			continue
		}
		if len(msgs) == 0 {
			if !sleepOrDone(ctx, o.cfg.IdleSleep) {
				return
			}
			continue
		}
		for _, m := range msgs {
			select {
			case jobs <- m:
			case <-ctx.Done():
				return
			}
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// work processes messages off jobs until the channel is closed, handling
// each message's full fetch/classify/extract-or-discover/delete lifecycle.
// A malformed body is logged and deleted immediately without running the
// pipeline, matching spec.md §7's "logged; message deleted to stop
// redelivery" — unlike a processing failure, it must never be retried.
func (o *Orchestrator) work(ctx context.Context, id int, jobs <-chan queueclient.Message) {
	for m := range jobs {
		if m.Malformed {
			log.Warn().Int("worker", id).Msg("orchestrator: malformed queue body, deleting")
			if err := o.queue.Delete(ctx, m.ReceiptHandle); err != nil {
				log.Warn().Err(err).Msg("orchestrator: delete error")
			}
			continue
		}
		if err := o.handle(ctx, m.Task.URLToScrape); err != nil {
			log.Warn().Err(err).Int("worker", id).Str("url", m.Task.URLToScrape).Msg("orchestrator: message abandoned")
			continue
		}
		if err := o.queue.Delete(ctx, m.ReceiptHandle); err != nil {
			log.Warn().Err(err).Msg("orchestrator: delete error")
		}
	}
}

// handle runs one message's pipeline: fetch, classify, then either
// discover+enqueue child URLs (index page) or extract+sink a record
// (detail page). A non-nil error means the message should NOT be deleted
// — it becomes visible again after the queue's visibility timeout, acting
// as an implicit retry, matching original_source's handle_message.
func (o *Orchestrator) handle(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}

	headers := o.ua.Build()
	proxyURL, proxyEP, hasProxy := o.proxies.SelectEndpoint()

	res, err := o.fetch.Fetch(ctx, url, proxyURL, headers, o.cfg.RequestTimeout)
	if err != nil {
		if hasProxy {
			o.proxies.MarkFailure(proxyEP)
		}
		return err
	}
	if hasProxy {
		o.proxies.MarkSuccess(proxyEP)
	}

	if extractor.IsIndexURL(url) {
		links := extractor.DiscoverDetailLinks(res.Body, o.cfg.SiteHost)
		if len(links) == 0 {
			return nil
		}
		if err := o.queue.SendURLs(ctx, links); err != nil {
			log.Warn().Err(err).Msg("orchestrator: enqueue discovered links failed")
		}
		return nil
	}

	rec := o.extract.Extract(ctx, url, res.Body)
	o.sink.Add(rec)
	return nil
}
