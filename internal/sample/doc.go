// Package sample turns raw MQTT payloads into numeric samples encoded as
// InfluxDB line protocol.
//
// A payload is accepted when it is UTF-8 text that is either one of the
// boolean words below (case-insensitive) or a finite number:
//
//	0: false f off low closed up
//	1: true  t on  high open  down
//
// The up/down mapping matches existing dashboards and is kept as is.
// Text starting with "{" is treated as a structured payload and skipped.
//
// Each accepted sample becomes one line:
//
//	<prefix><topic with / as . and spaces escaped> value=<number> <unix ns>
//
// Rejections are reported as ErrDecode, ErrJSONPayload or ErrParse.
package sample
