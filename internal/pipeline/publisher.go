package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/mqtt2influx/internal/infrastructure/logging"
)

// defaultMaxConcurrentWrites bounds the destination fan-out when no limit is given.
const defaultMaxConcurrentWrites = 4

// Writer delivers an encoded batch to one storage endpoint.
//
// Write should return a non-nil error for transport failures and for any
// response the endpoint does not treat as success. Timeouts are the
// Writer's concern.
type Writer interface {
	Write(ctx context.Context, payload []byte) error

	// Name identifies the destination in logs and metrics.
	// It must not contain credentials.
	Name() string
}

// Batch is the set of lines accumulated between two flushes.
type Batch struct {
	// Seq numbers flushes from 1 and identifies the batch in delivery logs.
	Seq   uint64
	Lines []string
}

// PublisherOptions configures a Publisher.
type PublisherOptions struct {
	// MaxConcurrentWrites limits how many destinations are written at once.
	MaxConcurrentWrites int
	Logger              *logging.Logger
	Metrics             *Metrics
}

// Publisher writes each batch to every configured destination.
//
// Destinations are written concurrently and independently: a failing or slow
// destination never stops the others from receiving the batch, and nothing
// is retried.
type Publisher struct {
	writers []Writer
	limit   int
	logger  *logging.Logger
	metrics *Metrics
}

// NewPublisher creates a Publisher for writers.
func NewPublisher(writers []Writer, opts PublisherOptions) *Publisher {
	limit := opts.MaxConcurrentWrites
	if limit <= 0 {
		limit = defaultMaxConcurrentWrites
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Publisher{
		writers: writers,
		limit:   limit,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Publish sends b to all destinations and returns once every write has
// finished. An empty batch is a no-op.
func (p *Publisher) Publish(ctx context.Context, b Batch) {
	if len(b.Lines) == 0 {
		return
	}

	payload := []byte(strings.Join(b.Lines, "\n"))

	// A plain Group: a failed write must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(p.limit)
	for _, w := range p.writers {
		g.Go(func() error {
			p.write(ctx, w, b, payload)
			return nil
		})
	}
	_ = g.Wait()
}

// write performs one destination write and records the outcome.
func (p *Publisher) write(ctx context.Context, w Writer, b Batch, payload []byte) {
	start := time.Now()
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("writer panic: %v", r)
		}
		p.metrics.observeWrite(w.Name(), err, time.Since(start))
		if err != nil {
			p.logger.Error("destination write failed",
				"destination", w.Name(),
				"batch", b.Seq,
				"lines", len(b.Lines),
				"bytes", len(payload),
				"first_line", b.Lines[0],
				"error", err,
			)
			return
		}
		p.logger.Debug("batch delivered",
			"destination", w.Name(),
			"batch", b.Seq,
			"lines", len(b.Lines),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	err = w.Write(ctx, payload)
}
