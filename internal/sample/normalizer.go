package sample

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nerrad567/mqtt2influx/internal/infrastructure/logging"
)

// Boolean vocabularies, matched case-insensitively against the whole payload.
var (
	falsyWords = map[string]struct{}{
		"false": {}, "f": {}, "off": {}, "low": {}, "closed": {}, "up": {},
	}
	truthyWords = map[string]struct{}{
		"true": {}, "t": {}, "on": {}, "high": {}, "open": {}, "down": {},
	}
)

// Normalizer converts topic/payload pairs into samples.
//
// Thread Safety:
//   - Normalize is safe for concurrent use; the Normalizer holds no mutable state.
type Normalizer struct {
	prefix string
	now    func() time.Time
	logger *logging.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock overrides the wall clock used for sample timestamps.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// NewNormalizer creates a Normalizer that prefixes every measurement with prefix.
// A nil logger discards log output.
func NewNormalizer(prefix string, logger *logging.Logger, opts ...Option) *Normalizer {
	if logger == nil {
		logger = logging.Discard()
	}
	n := &Normalizer{
		prefix: prefix,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize interprets payload as a numeric sample for topic.
//
// Steps, in order:
//  1. Payload must be valid UTF-8, else ErrDecode (logged at warn with the raw bytes)
//  2. Boolean words map to 0 or 1
//  3. Text starting with "{" is rejected with ErrJSONPayload (not logged)
//  4. Anything else must parse as a finite float, else ErrParse (logged at debug)
//
// The timestamp is taken when Normalize runs.
func (n *Normalizer) Normalize(topic string, payload []byte) (Sample, error) {
	if !utf8.Valid(payload) {
		n.logger.Warn("payload decode failed", "topic", topic, "payload", fmt.Sprintf("%q", payload))
		return Sample{}, ErrDecode
	}

	text := string(payload)
	value, err := parseValue(text)
	if err != nil {
		if err == ErrParse {
			n.logger.Debug("payload parse failed", "topic", topic, "payload", text)
		}
		return Sample{}, err
	}

	return Sample{
		Measurement: MeasurementName(n.prefix, topic),
		Value:       value,
		Time:        n.now(),
	}, nil
}

// parseValue applies the boolean vocabularies, the structured payload check
// and float parsing, in that order.
func parseValue(text string) (float64, error) {
	lower := strings.ToLower(text)
	if _, ok := falsyWords[lower]; ok {
		return 0, nil
	}
	if _, ok := truthyWords[lower]; ok {
		return 1, nil
	}

	if strings.HasPrefix(text, "{") {
		return 0, ErrJSONPayload
	}

	v, err := parseDecimal(strings.TrimSpace(text))
	if err != nil {
		return 0, ErrParse
	}
	// Line protocol has no representation for these; one such line would get
	// the whole batch rejected by the endpoint.
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrParse
	}

	return v, nil
}

// parseDecimal parses decimal float text. Hex mantissas ("0x1p3") are
// refused, and single underscores between digits ("1_000") are allowed.
func parseDecimal(s string) (float64, error) {
	if strings.ContainsAny(s, "xX") {
		return 0, ErrParse
	}
	if strings.Contains(s, "_") {
		for i := 0; i < len(s); i++ {
			if s[i] != '_' {
				continue
			}
			if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
				return 0, ErrParse
			}
		}
		s = strings.ReplaceAll(s, "_", "")
	}
	return strconv.ParseFloat(s, 64)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
