package pipeline

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "mqtt2influx"

// Write outcome labels.
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics holds the Prometheus collectors for one pipeline.
//
// A nil *Metrics is valid and records nothing, so tests and embedders can
// run the pipeline without a registry.
type Metrics struct {
	messagesReceived prometheus.Counter
	retainedSkipped  prometheus.Counter
	samplesDiscarded *prometheus.CounterVec
	linesEnqueued    prometheus.Counter
	queueLength      prometheus.Gauge
	flushes          prometheus.Counter
	batchLines       prometheus.Histogram
	destWrites       *prometheus.CounterVec
	destWriteSeconds *prometheus.HistogramVec
	brokerUp         prometheus.Gauge
	brokerLost       prometheus.Counter
}

// NewMetrics creates the pipeline collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_received_total",
			Help:      "MQTT messages delivered to the bridge, including retained ones.",
		}),
		retainedSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_retained_skipped_total",
			Help:      "Retained messages ignored because they are not fresh readings.",
		}),
		samplesDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "samples_discarded_total",
			Help:      "Payloads that could not be turned into a sample, by reason.",
		}, []string{"reason"}),
		linesEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lines_enqueued_total",
			Help:      "Line protocol lines added to the send queue.",
		}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "queue_length",
			Help:      "Lines waiting in the send queue at the last poll.",
		}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "flushes_total",
			Help:      "Flush triggers, including empty flushes on the time trigger.",
		}),
		batchLines: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "batch_lines",
			Help:      "Number of lines per flushed batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		destWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "destination_writes_total",
			Help:      "Batch writes per destination, by result.",
		}, []string{"destination", "result"}),
		destWriteSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "destination_write_duration_seconds",
			Help:      "Time taken to write one batch to a destination.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"destination"}),
		brokerUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "broker_connected",
			Help:      "1 while the MQTT broker connection is up, 0 otherwise.",
		}),
		brokerLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "broker_disconnects_total",
			Help:      "Times the MQTT broker connection was lost.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.messagesReceived, m.retainedSkipped, m.samplesDiscarded, m.linesEnqueued,
		m.queueLength, m.flushes, m.batchLines, m.destWrites, m.destWriteSeconds,
		m.brokerUp, m.brokerLost,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering pipeline metrics: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) messageReceived() {
	if m == nil {
		return
	}
	m.messagesReceived.Inc()
}

func (m *Metrics) retained() {
	if m == nil {
		return
	}
	m.retainedSkipped.Inc()
}

func (m *Metrics) discarded(reason string) {
	if m == nil {
		return
	}
	m.samplesDiscarded.WithLabelValues(reason).Inc()
}

func (m *Metrics) enqueued() {
	if m == nil {
		return
	}
	m.linesEnqueued.Inc()
}

func (m *Metrics) setQueueLength(n int) {
	if m == nil {
		return
	}
	m.queueLength.Set(float64(n))
}

func (m *Metrics) flushed(lines int) {
	if m == nil {
		return
	}
	m.flushes.Inc()
	m.batchLines.Observe(float64(lines))
}

func (m *Metrics) observeWrite(destination string, err error, took time.Duration) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}
	m.destWrites.WithLabelValues(destination, result).Inc()
	m.destWriteSeconds.WithLabelValues(destination).Observe(took.Seconds())
}

// BrokerConnected records that the broker connection is up.
func (m *Metrics) BrokerConnected() {
	if m == nil {
		return
	}
	m.brokerUp.Set(1)
}

// BrokerDisconnected records a lost broker connection.
func (m *Metrics) BrokerDisconnected(error) {
	if m == nil {
		return
	}
	m.brokerUp.Set(0)
	m.brokerLost.Inc()
}
