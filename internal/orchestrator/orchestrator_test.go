package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rhan/realtor-worker-fleet/internal/fetcher"
	"github.com/rhan/realtor-worker-fleet/internal/fingerprint"
	"github.com/rhan/realtor-worker-fleet/internal/model"
	"github.com/rhan/realtor-worker-fleet/internal/proxypool"
	"github.com/rhan/realtor-worker-fleet/internal/queueclient"
)

type fakeQueue struct {
	mu       sync.Mutex
	pending  []queueclient.Message
	deleted  []string
	sent     [][]string
	received bool
}

func (q *fakeQueue) Receive(ctx context.Context, waitSeconds, visibilityTimeoutS int32) ([]queueclient.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.received || len(q.pending) == 0 {
		return nil, nil
	}
	q.received = true
	out := q.pending
	q.pending = nil
	return out, nil
}

func (q *fakeQueue) Delete(ctx context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, receiptHandle)
	return nil
}

func (q *fakeQueue) SendURLs(ctx context.Context, urls []string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, urls)
	return nil
}

func (q *fakeQueue) snapshot() (deleted []string, sent [][]string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.deleted...), append([][]string(nil), q.sent...)
}

type fakeFetcher struct {
	body string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, proxyURL string, headers map[string]string, timeout time.Duration) (*fetcher.Result, error) {
	return &fetcher.Result{Status: 200, Body: f.body, FinalURL: url}, nil
}

type fakeExtractor struct {
	calls []string
}

func (f *fakeExtractor) Extract(ctx context.Context, url, html string) *model.ListingRecord {
	f.calls = append(f.calls, url)
	return &model.ListingRecord{URL: url, ListingID: "X"}
}

type fakeSink struct {
	mu      sync.Mutex
	records []*model.ListingRecord
}

func (s *fakeSink) Add(rec *model.ListingRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *fakeSink) snapshot() []*model.ListingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.ListingRecord(nil), s.records...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for condition")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestOrchestrator_DetailPageExtractsAndDeletes(t *testing.T) {
	q := &fakeQueue{pending: []queueclient.Message{
		{ReceiptHandle: "rh-1", Task: model.URLTask{URLToScrape: "https://www.realtor.com/realestateandhomes-detail/x_M1"}},
	}}
	fe := &fakeExtractor{}
	sink := &fakeSink{}

	o := New(
		Config{MaxConcurrency: 1, SiteHost: "www.realtor.com", IdleSleep: 5 * time.Millisecond, RequestTimeout: time.Second},
		q, proxypool.NewPool(""), fingerprint.NewBuilder(nil),
		&fakeFetcher{body: "<html></html>"}, fe, sink,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	waitFor(t, func() bool { return len(sink.snapshot()) == 1 })
	waitFor(t, func() bool { d, _ := q.snapshot(); return len(d) == 1 })

	cancel()
	<-done

	deleted, _ := q.snapshot()
	if len(deleted) != 1 || deleted[0] != "rh-1" {
		t.Errorf("deleted = %v, want [rh-1]", deleted)
	}
	if len(fe.calls) != 1 {
		t.Errorf("extractor calls = %d, want 1", len(fe.calls))
	}
}

func TestOrchestrator_IndexPageDiscoversAndEnqueuesWithoutExtracting(t *testing.T) {
	indexHTML := `<html><body><a href="https://www.realtor.com/realestateandhomes-detail/child-1">x</a></body></html>`
	q := &fakeQueue{pending: []queueclient.Message{
		{ReceiptHandle: "rh-1", Task: model.URLTask{URLToScrape: "https://www.realtor.com/realestateandhomes-search/Austin_TX"}},
	}}
	fe := &fakeExtractor{}
	sink := &fakeSink{}

	o := New(
		Config{MaxConcurrency: 1, SiteHost: "www.realtor.com", IdleSleep: 5 * time.Millisecond, RequestTimeout: time.Second},
		q, proxypool.NewPool(""), fingerprint.NewBuilder(nil),
		&fakeFetcher{body: indexHTML}, fe, sink,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	waitFor(t, func() bool { _, sent := q.snapshot(); return len(sent) == 1 })

	cancel()
	<-done

	if len(fe.calls) != 0 {
		t.Errorf("extractor should not run for an index page, got %d calls", len(fe.calls))
	}
	if len(sink.snapshot()) != 0 {
		t.Errorf("sink should not receive a record for an index page, got %d", len(sink.snapshot()))
	}
	_, sent := q.snapshot()
	if len(sent) != 1 || len(sent[0]) != 1 || sent[0][0] != "https://www.realtor.com/realestateandhomes-detail/child-1" {
		t.Errorf("sent = %v, want one batch with the discovered child link", sent)
	}
}

type alwaysFailFetcher struct{}

func (alwaysFailFetcher) Fetch(ctx context.Context, url, proxyURL string, headers map[string]string, timeout time.Duration) (*fetcher.Result, error) {
	return nil, errFetchFailed
}

type fetchErr string

func (e fetchErr) Error() string { return string(e) }

const errFetchFailed = fetchErr("fetch failed")

func TestOrchestrator_MalformedMessageDeletedWithoutFetching(t *testing.T) {
	q := &fakeQueue{pending: []queueclient.Message{
		{ReceiptHandle: "rh-bad", Malformed: true},
	}}
	fe := &fakeExtractor{}
	sink := &fakeSink{}

	o := New(
		Config{MaxConcurrency: 1, SiteHost: "www.realtor.com", IdleSleep: 5 * time.Millisecond, RequestTimeout: time.Second},
		q, proxypool.NewPool(""), fingerprint.NewBuilder(nil),
		alwaysFailFetcher{}, fe, sink,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	waitFor(t, func() bool { d, _ := q.snapshot(); return len(d) == 1 })

	cancel()
	<-done

	deleted, _ := q.snapshot()
	if len(deleted) != 1 || deleted[0] != "rh-bad" {
		t.Errorf("deleted = %v, want [rh-bad]", deleted)
	}
	if len(fe.calls) != 0 {
		t.Errorf("extractor should never run for a malformed message, got %d calls", len(fe.calls))
	}
	if len(sink.snapshot()) != 0 {
		t.Errorf("sink should not receive a record for a malformed message, got %d", len(sink.snapshot()))
	}
}

func TestOrchestrator_FailedFetchDoesNotDeleteMessage(t *testing.T) {
	q := &fakeQueue{pending: []queueclient.Message{
		{ReceiptHandle: "rh-1", Task: model.URLTask{URLToScrape: "https://www.realtor.com/realestateandhomes-detail/x_M1"}},
	}}
	sink := &fakeSink{}

	o := New(
		Config{MaxConcurrency: 1, SiteHost: "www.realtor.com", IdleSleep: 5 * time.Millisecond, RequestTimeout: time.Second},
		q, proxypool.NewPool(""), fingerprint.NewBuilder(nil),
		alwaysFailFetcher{}, &fakeExtractor{}, sink,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	deleted, _ := q.snapshot()
	if len(deleted) != 0 {
		t.Errorf("expected no delete on fetch failure, got %v", deleted)
	}
}
