package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/mqtt2influx/internal/sample"
)

func newTestIngestor(t *testing.T) (*Ingestor, *Queue, *Metrics) {
	t.Helper()
	clock := func() time.Time { return time.Unix(0, 1700000000000000000) }
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	q := NewQueue()
	n := sample.NewNormalizer("mqtt.", nil, sample.WithClock(clock))
	return NewIngestor(n, q, m, nil), q, m
}

func TestIngestor_QueuesAcceptedSample(t *testing.T) {
	ing, q, m := newTestIngestor(t)

	ing.HandleMessage(RawMessage{Topic: "home/kitchen light", Payload: []byte("On")})

	assert.Equal(t, []string{`mqtt.home.kitchen\ light value=1 1700000000000000000`}, q.Drain())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.linesEnqueued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messagesReceived))
}

func TestIngestor_RetainedNeverQueued(t *testing.T) {
	ing, q, m := newTestIngestor(t)

	for _, payload := range []string{"21.5", "on", "{}", "garbage", "\xff"} {
		ing.HandleMessage(RawMessage{Topic: "sensor/temp", Payload: []byte(payload), Retained: true})
	}

	assert.Zero(t, q.Len())
	assert.Equal(t, 5.0, testutil.ToFloat64(m.retainedSkipped))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.samplesDiscarded.WithLabelValues(sample.ReasonParse)),
		"retained messages are not normalized")
}

func TestIngestor_DiscardsAreCountedNotQueued(t *testing.T) {
	ing, q, m := newTestIngestor(t)

	ing.HandleMessage(RawMessage{Topic: "a", Payload: []byte{0xff}})
	ing.HandleMessage(RawMessage{Topic: "a", Payload: []byte(`{"v":1}`)})
	ing.HandleMessage(RawMessage{Topic: "a", Payload: []byte("nope")})
	ing.HandleMessage(RawMessage{Topic: "a", Payload: []byte("nope again")})

	assert.Zero(t, q.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.samplesDiscarded.WithLabelValues(sample.ReasonDecode)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.samplesDiscarded.WithLabelValues(sample.ReasonJSON)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.samplesDiscarded.WithLabelValues(sample.ReasonParse)))
}

func TestIngestor_EndToEnd(t *testing.T) {
	ing, q, _ := newTestIngestor(t)
	healthy := &fakeWriter{name: "healthy"}
	failing := &fakeWriter{name: "failing", err: errDestinationDown}
	pub := NewPublisher([]Writer{failing, healthy}, PublisherOptions{})

	ing.HandleMessage(RawMessage{Topic: "sensor/temp", Payload: []byte("21.5")})
	ing.HandleMessage(RawMessage{Topic: "sensor/door", Payload: []byte("closed"), Retained: true})
	ing.HandleMessage(RawMessage{Topic: "sensor/door", Payload: []byte("open")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewFlusher(q, pub, FlusherConfig{MaxBatchSize: 100, MaxInterval: time.Hour}, nil, nil).Run(ctx)

	want := "mqtt.sensor.temp value=21.5 1700000000000000000\nmqtt.sensor.door value=1 1700000000000000000"
	assert.Equal(t, []string{want}, healthy.gotPayloads())
	assert.Equal(t, []string{want}, failing.gotPayloads())
}
