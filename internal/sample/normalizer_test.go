package sample

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/mqtt2influx/internal/infrastructure/config"
	"github.com/nerrad567/mqtt2influx/internal/infrastructure/logging"
)

var fixedTime = time.Date(2026, 10, 18, 12, 0, 0, 123456789, time.UTC)

func fixedClock() time.Time { return fixedTime }

func capitalize(s string) string {
	return strings.ToUpper(s[:1]) + s[1:]
}

func newTestNormalizer(prefix string) *Normalizer {
	return NewNormalizer(prefix, nil, WithClock(fixedClock))
}

// =============================================================================
// Vocabulary Tests
// =============================================================================

func TestNormalize_BooleanVocabulary(t *testing.T) {
	n := newTestNormalizer("mqtt.")

	falsy := []string{"false", "f", "off", "low", "closed", "up"}
	truthy := []string{"true", "t", "on", "high", "open", "down"}

	for _, word := range falsy {
		for _, variant := range []string{word, strings.ToUpper(word), capitalize(word)} {
			s, err := n.Normalize("switch", []byte(variant))
			require.NoError(t, err, variant)
			assert.Equal(t, 0.0, s.Value, variant)
		}
	}

	for _, word := range truthy {
		for _, variant := range []string{word, strings.ToUpper(word), capitalize(word)} {
			s, err := n.Normalize("switch", []byte(variant))
			require.NoError(t, err, variant)
			assert.Equal(t, 1.0, s.Value, variant)
		}
	}
}

func TestNormalize_UpDownMapping(t *testing.T) {
	n := newTestNormalizer("mqtt.")

	up, err := n.Normalize("blind", []byte("UP"))
	require.NoError(t, err)
	down, err := n.Normalize("blind", []byte("down"))
	require.NoError(t, err)

	assert.Equal(t, 0.0, up.Value)
	assert.Equal(t, 1.0, down.Value)
}

func TestNormalize_BooleanWordsNeedExactMatch(t *testing.T) {
	n := newTestNormalizer("mqtt.")

	for _, payload := range []string{" on", "on ", "onn", "yes", "no"} {
		_, err := n.Normalize("switch", []byte(payload))
		assert.ErrorIs(t, err, ErrParse, "payload %q", payload)
	}
}

// =============================================================================
// Discard Tests
// =============================================================================

func TestNormalize_JSONPayload(t *testing.T) {
	n := newTestNormalizer("mqtt.")

	for _, payload := range []string{`{"temp":21.5}`, `{`, `{not json at all`, `{}`} {
		_, err := n.Normalize("zigbee/sensor", []byte(payload))
		assert.ErrorIs(t, err, ErrJSONPayload, "payload %q", payload)
		assert.Equal(t, ReasonJSON, DiscardReason(err))
	}
}

func TestNormalize_InvalidUTF8(t *testing.T) {
	n := newTestNormalizer("mqtt.")

	for _, payload := range [][]byte{
		{0xff},
		{0xc3, 0x28},
		{'2', '1', 0xfe},
		{0xed, 0xa0, 0x80}, // surrogate half
	} {
		_, err := n.Normalize("binary", payload)
		assert.ErrorIs(t, err, ErrDecode, "payload %x", payload)
		assert.Equal(t, ReasonDecode, DiscardReason(err))
	}
}

func TestNormalize_ParseError(t *testing.T) {
	n := newTestNormalizer("mqtt.")

	for _, payload := range []string{"", "hello", "21,5", "12abc", "NaN", "inf", "-Infinity", "1e999"} {
		_, err := n.Normalize("text", []byte(payload))
		assert.ErrorIs(t, err, ErrParse, "payload %q", payload)
		assert.Equal(t, ReasonParse, DiscardReason(err))
	}
}

func TestNormalize_DiscardLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, config.LoggingConfig{Level: "debug", Format: "text"}, "test")
	n := NewNormalizer("mqtt.", logger, WithClock(fixedClock))

	_, _ = n.Normalize("a", []byte{0xff})
	assert.Contains(t, buf.String(), "level=WARN")
	buf.Reset()

	_, _ = n.Normalize("a", []byte("garbage"))
	assert.Contains(t, buf.String(), "level=DEBUG")
	buf.Reset()

	_, _ = n.Normalize("a", []byte(`{"x":1}`))
	assert.Empty(t, buf.String(), "structured payloads are skipped silently")
}

// =============================================================================
// Numeric Tests
// =============================================================================

func TestNormalize_NumberSyntaxEdges(t *testing.T) {
	n := newTestNormalizer("mqtt.")

	accepted := []struct {
		payload string
		want    float64
	}{
		{"1_000", 1000},
		{"1_000.5", 1000.5},
		{"-2_5", -25},
		{"1e1_0", 1e10},
	}
	for _, tt := range accepted {
		s, err := n.Normalize("sensor", []byte(tt.payload))
		require.NoError(t, err, tt.payload)
		assert.Equal(t, tt.want, s.Value, tt.payload)
	}

	for _, payload := range []string{"0x1p3", "0X1P-2", "-0x1.8p1", "_1", "1_", "1__0", "1_.5", "1._5"} {
		_, err := n.Normalize("sensor", []byte(payload))
		assert.ErrorIs(t, err, ErrParse, "payload %q", payload)
	}
}

func TestNormalize_Numbers(t *testing.T) {
	n := newTestNormalizer("mqtt.")

	tests := []struct {
		payload string
		want    float64
	}{
		{"21.5", 21.5},
		{"0", 0},
		{"-3", -3},
		{"1e3", 1000},
		{" 42 ", 42},
		{"0.000001", 0.000001},
		{"-0.5", -0.5},
	}

	for _, tt := range tests {
		s, err := n.Normalize("sensor", []byte(tt.payload))
		require.NoError(t, err, tt.payload)
		assert.Equal(t, tt.want, s.Value, tt.payload)
	}
}

func TestNormalize_RoundTrip(t *testing.T) {
	n := newTestNormalizer("mqtt.")

	for _, x := range []float64{0.1, 1.0 / 3.0, 123456789.125, -2.5e-12, math.MaxFloat64, math.SmallestNonzeroFloat64} {
		text := strconv.FormatFloat(x, 'g', -1, 64)
		s, err := n.Normalize("sensor", []byte(text))
		require.NoError(t, err, text)
		assert.Equal(t, x, s.Value, text)

		// The encoded value must parse back to the same float.
		fields := strings.Fields(s.Line())
		require.Len(t, fields, 3)
		encoded, err := strconv.ParseFloat(strings.TrimPrefix(fields[1], "value="), 64)
		require.NoError(t, err)
		assert.Equal(t, x, encoded)
	}
}

// =============================================================================
// Line Encoding Tests
// =============================================================================

func TestNormalize_LineExamples(t *testing.T) {
	n := newTestNormalizer("mqtt.")
	ts := strconv.FormatInt(fixedTime.UnixNano(), 10)

	s, err := n.Normalize("home/kitchen light", []byte("On"))
	require.NoError(t, err)
	assert.Equal(t, `mqtt.home.kitchen\ light`, s.Measurement)
	assert.Equal(t, `mqtt.home.kitchen\ light value=1 `+ts, s.Line())

	s, err = n.Normalize("sensor/temp", []byte("21.5"))
	require.NoError(t, err)
	assert.Equal(t, "mqtt.sensor.temp value=21.5 "+ts, s.Line())
}

func TestNormalize_Idempotent(t *testing.T) {
	n := newTestNormalizer("mqtt.")

	a, err := n.Normalize("sensor/temp", []byte("21.5"))
	require.NoError(t, err)
	b, err := n.Normalize("sensor/temp", []byte("21.5"))
	require.NoError(t, err)

	assert.Equal(t, a.Line(), b.Line())
}

func TestNormalize_TimestampCapturedAtNormalization(t *testing.T) {
	calls := 0
	clock := func() time.Time {
		calls++
		return fixedTime.Add(time.Duration(calls) * time.Second)
	}
	n := NewNormalizer("mqtt.", nil, WithClock(clock))

	s, err := n.Normalize("sensor", []byte("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, fixedTime.Add(time.Second), s.Time)
}

func TestMeasurementName(t *testing.T) {
	tests := []struct {
		prefix, topic, want string
	}{
		{"mqtt.", "a/b/c", "mqtt.a.b.c"},
		{"mqtt.", "living room/lamp", `mqtt.living\ room.lamp`},
		{"", "plain", "plain"},
		{"home.", "a,b", `home.a\,b`},
		{"mqtt.", "line\nbreak\r", "mqtt.linebreak"},
		{"mqtt.", "/leading", "mqtt..leading"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MeasurementName(tt.prefix, tt.topic), "topic %q", tt.topic)
	}
}

func TestSampleLine(t *testing.T) {
	s := Sample{Measurement: "m", Value: 1000000, Time: time.Unix(0, 42)}
	assert.Equal(t, "m value=1e+06 42", s.Line())
}

func TestDiscardReason_Other(t *testing.T) {
	assert.Equal(t, ReasonOther, DiscardReason(assert.AnError))
}

func BenchmarkNormalize(b *testing.B) {
	n := newTestNormalizer("mqtt.")
	payload := []byte("21.5")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := n.Normalize("home/kitchen/temperature", payload); err != nil {
			b.Fatal(err)
		}
	}
}
