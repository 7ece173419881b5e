package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/mqtt2influx/internal/infrastructure/config"
	"github.com/nerrad567/mqtt2influx/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 5 * time.Second

// HealthChecker reports whether a dependency is usable.
// *mqtt.Client satisfies it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// QueueLengther reports the number of lines waiting to be flushed.
// *pipeline.Queue satisfies it.
type QueueLengther interface {
	Len() int
}

// Timeouts holds the ops server's HTTP timeouts. A zero value disables
// the corresponding timeout.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// Deps holds the dependencies required by the ops server.
type Deps struct {
	Config   config.HTTPConfig
	Timeouts Timeouts
	Logger   *logging.Logger
	Gatherer prometheus.Gatherer
	MQTT     HealthChecker // optional
	Queue    QueueLengther // optional
	Version  string
}

// Server is the ops HTTP server.
//
// The server is created with New() and started with Start().
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Server struct {
	cfg       config.HTTPConfig
	timeouts  Timeouts
	logger    *logging.Logger
	gatherer  prometheus.Gatherer
	mqtt      HealthChecker
	queue     QueueLengther
	version   string
	startTime time.Time
	server    *http.Server
	listener  net.Listener
}

// New creates a new ops server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Logger and Gatherer are required; MQTT and Queue are optional
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Gatherer == nil {
		return nil, fmt.Errorf("metrics gatherer is required")
	}

	return &Server{
		cfg:       deps.Config,
		timeouts:  deps.Timeouts,
		logger:    deps.Logger,
		gatherer:  deps.Gatherer,
		mqtt:      deps.MQTT,
		queue:     deps.Queue,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listen address and serves in a background goroutine.
// The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation of the bind
//
// Returns:
//   - error: If the address cannot be bound (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       s.timeouts.Read,
		ReadHeaderTimeout: s.timeouts.Read,
		WriteTimeout:      s.timeouts.Write,
		IdleTimeout:       s.timeouts.Idle,
	}

	s.logger.Info("ops server listening", "address", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("ops server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the ops server.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("ops server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down ops server: %w", err)
	}
	return nil
}
