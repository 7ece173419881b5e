package pipeline

import (
	"github.com/nerrad567/mqtt2influx/internal/infrastructure/logging"
	"github.com/nerrad567/mqtt2influx/internal/sample"
)

// RawMessage is one message as delivered by the broker.
type RawMessage struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// Ingestor is the broker message callback. It normalizes each live message
// and queues the resulting line.
//
// Thread Safety:
//   - HandleMessage is safe for concurrent use from multiple goroutines.
type Ingestor struct {
	normalizer *sample.Normalizer
	queue      *Queue
	metrics    *Metrics
	logger     *logging.Logger
}

// NewIngestor creates an Ingestor feeding queue. metrics may be nil.
func NewIngestor(normalizer *sample.Normalizer, queue *Queue, metrics *Metrics, logger *logging.Logger) *Ingestor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Ingestor{
		normalizer: normalizer,
		queue:      queue,
		metrics:    metrics,
		logger:     logger,
	}
}

// HandleMessage processes one inbound message.
//
// Retained messages are dropped without inspection: they are last-known
// values replayed on (re)connect, and stamping them with the current time
// would write stale readings as new ones. Payloads the normalizer rejects
// are dropped after it has logged them. It never blocks beyond a queue append.
func (i *Ingestor) HandleMessage(msg RawMessage) {
	i.metrics.messageReceived()
	if msg.Retained {
		i.metrics.retained()
		return
	}

	s, err := i.normalizer.Normalize(msg.Topic, msg.Payload)
	if err != nil {
		i.metrics.discarded(sample.DiscardReason(err))
		return
	}

	line := s.Line()
	i.logger.Debug("sample queued", "line", line)
	i.queue.Push(line)
	i.metrics.enqueued()
}
