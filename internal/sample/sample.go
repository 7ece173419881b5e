package sample

import (
	"strconv"
	"strings"
	"time"
)

// Sample is one numeric reading derived from an MQTT message.
type Sample struct {
	// Measurement is the full, escaped measurement name including the prefix.
	Measurement string
	Value       float64
	// Time is when the message was normalized, not when it is flushed.
	Time time.Time
}

// Line renders the sample as a single line of InfluxDB line protocol.
//
// Format: <measurement> value=<number> <unix nanoseconds>
//
// Numbers use the shortest representation that parses back to the same
// float64, so 1 is written as "1" and 21.5 as "21.5".
func (s Sample) Line() string {
	var b strings.Builder
	b.Grow(len(s.Measurement) + 40)
	b.WriteString(s.Measurement)
	b.WriteString(" value=")
	b.WriteString(strconv.FormatFloat(s.Value, 'g', -1, 64))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(s.Time.UnixNano(), 10))
	return b.String()
}

// MeasurementName derives the measurement for a topic.
//
// Topic levels become dot separated ("home/kitchen" -> "home.kitchen").
// Spaces and commas are backslash-escaped and line breaks removed so the
// name cannot split or corrupt a line. The prefix is used verbatim.
func MeasurementName(prefix, topic string) string {
	name := strings.ReplaceAll(topic, "/", ".")
	name = strings.ReplaceAll(name, "\n", "")
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, " ", "\\ ")
	name = strings.ReplaceAll(name, ",", "\\,")
	return prefix + name
}
