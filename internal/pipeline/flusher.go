package pipeline

import (
	"context"
	"time"

	"github.com/nerrad567/mqtt2influx/internal/infrastructure/logging"
)

// Flusher defaults.
const (
	// DefaultPollInterval is how long the flusher waits for a line before
	// re-checking its triggers.
	DefaultPollInterval = time.Second

	// defaultShutdownTimeout bounds the final flush after cancellation.
	defaultShutdownTimeout = 10 * time.Second

	// defaultFlushTimeout bounds a regular flush.
	defaultFlushTimeout = 30 * time.Second
)

// BatchPublisher receives every batch the Flusher produces, including empty ones.
type BatchPublisher interface {
	Publish(ctx context.Context, b Batch)
}

// FlusherConfig holds the flush triggers.
type FlusherConfig struct {
	// MaxBatchSize triggers a flush once the batch holds more lines than this.
	MaxBatchSize int

	// MaxInterval triggers a flush once more than this has passed since the
	// previous one, even if the batch is empty.
	MaxInterval time.Duration

	// PollInterval bounds each wait on the queue. Defaults to DefaultPollInterval.
	PollInterval time.Duration

	// ShutdownTimeout bounds the final flush once Run's context is cancelled.
	ShutdownTimeout time.Duration

	// FlushTimeout bounds each regular flush. Cancelling Run does not abort
	// a flush already in progress.
	FlushTimeout time.Duration
}

// Flusher drains the queue into batches and publishes them on a size or
// time trigger. It is the queue's only consumer.
type Flusher struct {
	queue     *Queue
	publisher BatchPublisher
	cfg       FlusherConfig
	now       func() time.Time
	logger    *logging.Logger
	metrics   *Metrics

	seq uint64
}

// NewFlusher creates a Flusher. logger and metrics may be nil.
func NewFlusher(queue *Queue, publisher BatchPublisher, cfg FlusherConfig, logger *logging.Logger, metrics *Metrics) *Flusher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = defaultFlushTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Flusher{
		queue:     queue,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run executes the flush loop until ctx is cancelled.
//
// Each iteration waits up to PollInterval for a line, then checks both
// triggers. On a trigger the current batch is published, then cleared and
// the timer reset regardless of delivery outcome. After cancellation the
// remaining queue is published as one last batch using a fresh context
// bounded by ShutdownTimeout.
func (f *Flusher) Run(ctx context.Context) {
	f.logger.Info("flusher started",
		"max_batch_size", f.cfg.MaxBatchSize,
		"max_interval", f.cfg.MaxInterval,
		"poll_interval", f.cfg.PollInterval,
	)

	var batch []string
	lastFlush := f.now()

	for {
		if ctx.Err() != nil {
			f.shutdown(batch)
			return
		}

		if line, ok := f.queue.Pop(ctx, f.cfg.PollInterval); ok {
			batch = append(batch, line)
		}
		f.metrics.setQueueLength(f.queue.Len())

		// Cancelled while waiting: the batch goes out with the final flush.
		if ctx.Err() != nil {
			f.shutdown(batch)
			return
		}

		if len(batch) > f.cfg.MaxBatchSize || f.now().Sub(lastFlush) > f.cfg.MaxInterval {
			f.flushDetached(ctx, batch)
			// The publisher may still reference the old slice; start a new one.
			batch = nil
			lastFlush = f.now()
		}
	}
}

// flushDetached publishes a regular batch on a context that keeps ctx's
// values but not its cancellation, so a shutdown signal arriving mid-write
// does not abort delivery.
func (f *Flusher) flushDetached(ctx context.Context, lines []string) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.cfg.FlushTimeout)
	defer cancel()
	f.flush(pubCtx, lines)
}

// flush hands one batch to the publisher.
func (f *Flusher) flush(ctx context.Context, lines []string) {
	f.seq++
	f.metrics.flushed(len(lines))
	if len(lines) > 0 {
		f.logger.Debug("flushing batch", "batch", f.seq, "lines", len(lines))
	}
	f.publisher.Publish(ctx, Batch{Seq: f.seq, Lines: lines})
}

// shutdown publishes whatever is left after cancellation.
func (f *Flusher) shutdown(batch []string) {
	batch = append(batch, f.queue.Drain()...)
	f.metrics.setQueueLength(0)

	if len(batch) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), f.cfg.ShutdownTimeout)
		defer cancel()

		f.logger.Info("flushing remaining lines before exit", "lines", len(batch))
		f.flush(ctx, batch)
	}

	f.logger.Info("flusher stopped", "batches", f.seq)
}
