// Package api implements the bridge's operational HTTP server.
//
// This package provides:
//   - GET /health: broker connection state and queue depth as JSON
//   - GET /metrics: Prometheus exposition of the pipeline collectors
//   - Middleware stack (request ID, logging, recovery)
//
// The server is optional and disabled by default. It never touches the
// data path: a slow scrape cannot delay ingestion or flushing.
package api
