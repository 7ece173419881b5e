package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// healthCheckTimeout bounds the dependency checks behind /health.
const healthCheckTimeout = 2 * time.Second

// Health status values.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string     `json:"status"`
	Version       string     `json:"version"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	MQTT          MQTTHealth `json:"mqtt"`
	QueueLength   int        `json:"queue_length"`
}

// MQTTHealth reports the broker connection.
type MQTTHealth struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// handleHealth reports broker connectivity and queue depth.
// It answers 503 while the broker connection is down.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        statusOK,
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}
	if s.queue != nil {
		resp.QueueLength = s.queue.Len()
	}

	status := http.StatusOK
	if s.mqtt != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.mqtt.HealthCheck(ctx); err != nil {
			resp.Status = statusDegraded
			resp.MQTT.Error = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			resp.MQTT.Connected = true
		}
	}

	writeJSON(w, status, resp)
}

// metricsHandler exposes the injected gatherer in Prometheus text format.
func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		ErrorLog:      promLogger{s},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// promLogger routes promhttp errors to the server logger.
type promLogger struct {
	s *Server
}

func (l promLogger) Println(v ...any) {
	l.s.logger.Error("metrics exposition error", "error", v)
}
