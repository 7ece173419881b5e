// mqtt2influx bridges an MQTT broker to one or more time-series databases.
//
// It subscribes to every topic, turns each numeric or boolean-looking
// payload into a single InfluxDB line protocol point named after its
// topic, and posts the points in batches to every configured write URL.
//
// Configuration comes from the environment (INFLUX_URLS is required) and,
// optionally, a YAML file named by MQTT2INFLUX_CONFIG.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/mqtt2influx/internal/api"
	"github.com/nerrad567/mqtt2influx/internal/infrastructure/config"
	"github.com/nerrad567/mqtt2influx/internal/infrastructure/influxdb"
	"github.com/nerrad567/mqtt2influx/internal/infrastructure/logging"
	"github.com/nerrad567/mqtt2influx/internal/infrastructure/mqtt"
	"github.com/nerrad567/mqtt2influx/internal/infrastructure/tsdb"
	"github.com/nerrad567/mqtt2influx/internal/pipeline"
	"github.com/nerrad567/mqtt2influx/internal/sample"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// configPathEnv names the optional YAML configuration file.
const configPathEnv = "MQTT2INFLUX_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the bridge together and blocks until ctx is cancelled.
//
// Shutdown order matters: the broker connection is closed first so no new
// lines arrive, then the flusher drains the queue into one final batch,
// then the destination clients are released.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting mqtt2influx",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := os.Getenv(configPathEnv)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"destinations", len(cfg.Influx.Destinations),
		"measurement_prefix", cfg.Influx.MeasurementPrefix,
		"max_send_interval", cfg.FlushInterval(),
		"max_send_metrics", cfg.Batch.MaxSendMetrics,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := pipeline.NewMetrics(registry)
	if err != nil {
		return err
	}

	writers, closers, err := buildWriters(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			if closeErr := c.Close(); closeErr != nil {
				log.Error("error closing destination", "error", closeErr)
			}
		}
	}()

	queue := pipeline.NewQueue()
	publisher := pipeline.NewPublisher(writers, pipeline.PublisherOptions{
		MaxConcurrentWrites: cfg.Influx.MaxConcurrentWrites,
		Logger:              log.With("component", "publisher"),
		Metrics:             metrics,
	})
	flusher := pipeline.NewFlusher(queue, publisher, pipeline.FlusherConfig{
		MaxBatchSize: cfg.Batch.MaxSendMetrics,
		MaxInterval:  cfg.FlushInterval(),
	}, log.With("component", "flusher"), metrics)

	// The flusher gets its own context so it outlives the broker connection
	// during shutdown and can drain what is already queued.
	flushCtx, stopFlusher := context.WithCancel(context.Background())
	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		flusher.Run(flushCtx)
	}()
	defer func() {
		stopFlusher()
		<-flushDone
	}()

	normalizer := sample.NewNormalizer(cfg.Influx.MeasurementPrefix, log.With("component", "normalizer"))
	ingestor := pipeline.NewIngestor(normalizer, queue, metrics, log.With("component", "ingest"))

	if cfg.MQTT.Broker.ClientID == "" {
		cfg.MQTT.Broker.ClientID = "mqtt2influx-" + uuid.NewString()
	}
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.With("component", "mqtt"))
	mqttClient.SetOnConnect(metrics.BrokerConnected)
	mqttClient.SetOnDisconnect(metrics.BrokerDisconnected)
	metrics.BrokerConnected()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// #nosec G115 -- QoS validated to 0..2 by config.Validate
	if err := mqttClient.Subscribe(cfg.MQTT.Topic, byte(cfg.MQTT.QoS), ingestHandler(ingestor)); err != nil {
		return fmt.Errorf("subscribing to %q: %w", cfg.MQTT.Topic, err)
	}
	log.Info("subscribed", "topic", cfg.MQTT.Topic, "qos", cfg.MQTT.QoS)

	if cfg.HTTP.Enabled {
		opsServer, err := api.New(api.Deps{
			Config: cfg.HTTP,
			Timeouts: api.Timeouts{
				Read:  cfg.GetReadTimeout(),
				Write: cfg.GetWriteTimeout(),
				Idle:  cfg.GetIdleTimeout(),
			},
			Logger:   log.With("component", "api"),
			Gatherer: registry,
			MQTT:     mqttClient,
			Queue:    queue,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating ops server: %w", err)
		}
		if err := opsServer.Start(ctx); err != nil {
			return fmt.Errorf("starting ops server: %w", err)
		}
		defer func() {
			if closeErr := opsServer.Close(); closeErr != nil {
				log.Error("error closing ops server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. Ops server (if enabled)
	// 2. MQTT
	// 3. Flusher final drain
	// 4. Destination clients

	return nil
}

// ingestHandler adapts broker deliveries to the ingestor.
func ingestHandler(ingestor *pipeline.Ingestor) mqtt.MessageHandler {
	return func(msg mqtt.Message) error {
		ingestor.HandleMessage(pipeline.RawMessage{
			Topic:    msg.Topic,
			Payload:  msg.Payload,
			Retained: msg.Retained,
		})
		return nil
	}
}

// buildWriters creates one Writer per configured destination.
//
// influxdb2 destinations are pinged once; an unreachable server is logged
// and kept, since it may come up later.
//
// Returns:
//   - []pipeline.Writer: Writers in configuration order
//   - []io.Closer: Clients holding resources that must be released on exit
//   - error: If a destination cannot be constructed
func buildWriters(ctx context.Context, cfg *config.Config, log *logging.Logger) ([]pipeline.Writer, []io.Closer, error) {
	writers := make([]pipeline.Writer, 0, len(cfg.Influx.Destinations))
	var closers []io.Closer
	fail := func(i int, err error) ([]pipeline.Writer, []io.Closer, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, nil, fmt.Errorf("destination %d: %w", i, err)
	}

	for i, dest := range cfg.Influx.Destinations {
		switch dest.Kind() {
		case config.DestinationInfluxDB2:
			w, err := influxdb.New(dest, cfg.RequestTimeout())
			if err != nil {
				return fail(i, err)
			}
			if err := w.HealthCheck(ctx); err != nil {
				log.Warn("destination not reachable at startup", "destination", w.Name(), "error", err)
			}
			writers = append(writers, w)
			closers = append(closers, w)

		default:
			w, err := tsdb.New(dest, cfg.RequestTimeout())
			if err != nil {
				return fail(i, err)
			}
			writers = append(writers, w)
		}
		log.Info("destination configured", "destination", writers[len(writers)-1].Name(), "type", dest.Kind())
	}

	return writers, closers, nil
}
