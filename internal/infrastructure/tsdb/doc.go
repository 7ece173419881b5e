// Package tsdb writes InfluxDB line protocol batches over plain HTTP.
//
// A Client POSTs each batch verbatim to its configured URL, so the URL must
// already be the full write endpoint including any query parameters:
//
//	http://influx:8086/write?db=sensors            (InfluxDB 1.x)
//	http://victoria:8428/write                     (VictoriaMetrics)
//	http://telegraf:8186/write                     (Telegraf http_listener_v2)
//
// Any 2xx response is success. Everything else, and any transport error,
// is returned wrapped in ErrWriteFailed. Nothing is retried.
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
package tsdb
