package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// recordingPublisher captures every batch handed to it.
type recordingPublisher struct {
	mu      sync.Mutex
	batches []Batch
	calls   chan Batch
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{calls: make(chan Batch, 1024)}
}

func (r *recordingPublisher) Publish(_ context.Context, b Batch) {
	lines := append([]string(nil), b.Lines...)
	b.Lines = lines

	r.mu.Lock()
	r.batches = append(r.batches, b)
	r.mu.Unlock()

	select {
	case r.calls <- b:
	default:
	}
}

func (r *recordingPublisher) snapshot() []Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Batch(nil), r.batches...)
}

func (r *recordingPublisher) allLines() []string {
	var lines []string
	for _, b := range r.snapshot() {
		lines = append(lines, b.Lines...)
	}
	return lines
}

// fakeWriter is a Writer with scripted behaviour.
type fakeWriter struct {
	name  string
	err   error
	delay time.Duration
	panic bool

	mu       sync.Mutex
	payloads []string
	received []time.Time
	calls    atomic.Int32

	inFlight    *atomic.Int32
	maxInFlight *atomic.Int32
}

func (w *fakeWriter) Write(ctx context.Context, payload []byte) error {
	if w.inFlight != nil {
		n := w.inFlight.Add(1)
		defer w.inFlight.Add(-1)
		for {
			m := w.maxInFlight.Load()
			if n <= m || w.maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
	}

	w.mu.Lock()
	w.payloads = append(w.payloads, string(payload))
	w.received = append(w.received, time.Now())
	w.mu.Unlock()
	w.calls.Add(1)

	if w.panic {
		panic("writer exploded")
	}

	if w.delay > 0 {
		select {
		case <-time.After(w.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return w.err
}

func (w *fakeWriter) Name() string { return w.name }

func (w *fakeWriter) gotPayloads() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.payloads...)
}

var errDestinationDown = errors.New("destination down")

// ctxWriter fails once its context is done and records delivered and
// failed payloads separately.
type ctxWriter struct {
	delay time.Duration

	mu        sync.Mutex
	delivered []string
	failed    []string
}

func (w *ctxWriter) Write(ctx context.Context, payload []byte) error {
	err := ctx.Err()
	if err == nil && w.delay > 0 {
		select {
		case <-time.After(w.delay):
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.failed = append(w.failed, string(payload))
		return err
	}
	w.delivered = append(w.delivered, string(payload))
	return nil
}

func (w *ctxWriter) Name() string { return "ctx" }

func (w *ctxWriter) results() (delivered, failed []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.delivered...), append([]string(nil), w.failed...)
}
