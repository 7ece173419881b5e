package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Destination types understood by the bridge.
const (
	// DestinationHTTP posts line protocol verbatim to the configured URL
	// (InfluxDB 1.x /write, VictoriaMetrics, Telegraf http_listener).
	DestinationHTTP = "http"

	// DestinationInfluxDB2 writes through the InfluxDB v2 API with token auth.
	DestinationInfluxDB2 = "influxdb2"
)

// ErrNoDestinations is returned when no storage endpoint is configured.
// The bridge must not connect to the broker without at least one.
var ErrNoDestinations = errors.New("no destinations configured (set INFLUX_URLS)")

// Config is the root configuration structure for the bridge.
// Values come from defaults, an optional YAML file and environment variables, in that order.
type Config struct {
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Influx  InfluxConfig  `yaml:"influx"`
	Batch   BatchConfig   `yaml:"batch"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Topic     string              `yaml:"topic"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxConfig describes where samples are written and how they are named.
type InfluxConfig struct {
	MeasurementPrefix   string              `yaml:"measurement_prefix"`
	Destinations        []DestinationConfig `yaml:"destinations"`
	RequestTimeout      int                 `yaml:"request_timeout"`
	MaxConcurrentWrites int                 `yaml:"max_concurrent_writes"`
}

// DestinationConfig is one storage write endpoint.
type DestinationConfig struct {
	URL  string `yaml:"url"`
	Type string `yaml:"type"`

	// Token, Org and Bucket are only used by influxdb2 destinations.
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// BatchConfig holds the flush triggers.
type BatchConfig struct {
	// MaxSendInterval is the time trigger in seconds.
	MaxSendInterval int `yaml:"max_send_interval"`

	// MaxSendMetrics is the size trigger; a batch is flushed once it holds more lines than this.
	MaxSendMetrics int `yaml:"max_send_metrics"`
}

// HTTPConfig contains the ops server (health and metrics) settings.
type HTTPConfig struct {
	Enabled  bool              `yaml:"enabled"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Timeouts HTTPTimeoutConfig `yaml:"timeouts"`
}

// HTTPTimeoutConfig contains HTTP timeout settings in seconds.
type HTTPTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load builds the configuration and validates it.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values, when path is not empty
//  3. Environment variables (override file values)
//
// Environment variables keep the names used by earlier deployments of the
// bridge: MQTT_HOST, MQTT_PORT, INFLUX_URLS, INFLUX_MEASUREMENT_PREFIX,
// MAX_SEND_INTERVAL and MAX_SEND_METRICS.
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for env-only configuration
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read or parsed, an env value is malformed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "mqtt",
				Port: 1883,
			},
			QoS:   0,
			Topic: "#",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Influx: InfluxConfig{
			MeasurementPrefix:   "mqtt.",
			RequestTimeout:      10,
			MaxConcurrentWrites: 4,
		},
		Batch: BatchConfig{
			MaxSendInterval: 5,
			MaxSendMetrics:  100,
		},
		HTTP: HTTPConfig{
			Enabled: false,
			Host:    "0.0.0.0",
			Port:    9273,
			Timeouts: HTTPTimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// INFLUX_URLS replaces any destinations from the file with plain HTTP destinations.
func applyEnvOverrides(cfg *Config) error {
	// MQTT
	if v := os.Getenv("MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if err := envInt("MQTT_PORT", &cfg.MQTT.Broker.Port); err != nil {
		return err
	}
	if v := os.Getenv("MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.Broker.ClientID = v
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Destinations
	if v := os.Getenv("INFLUX_URLS"); v != "" {
		urls := strings.Fields(v)
		cfg.Influx.Destinations = make([]DestinationConfig, 0, len(urls))
		for _, u := range urls {
			cfg.Influx.Destinations = append(cfg.Influx.Destinations, DestinationConfig{
				URL:  u,
				Type: DestinationHTTP,
			})
		}
	}
	// An explicitly empty prefix is valid, so presence matters here.
	if v, ok := os.LookupEnv("INFLUX_MEASUREMENT_PREFIX"); ok {
		cfg.Influx.MeasurementPrefix = v
	}

	// Batching
	if err := envInt("MAX_SEND_INTERVAL", &cfg.Batch.MaxSendInterval); err != nil {
		return err
	}
	if err := envInt("MAX_SEND_METRICS", &cfg.Batch.MaxSendMetrics); err != nil {
		return err
	}

	// Ops server
	if v := os.Getenv("HTTP_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HTTP_ENABLED: %w", err)
		}
		cfg.HTTP.Enabled = enabled
	}
	if err := envInt("HTTP_PORT", &cfg.HTTP.Port); err != nil {
		return err
	}

	// Logging
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	return nil
}

// envInt overwrites dst with the integer value of the named variable, if set.
func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = n
	return nil
}

// Validate checks the configuration for errors.
// All problems are reported together; ErrNoDestinations can be matched with errors.Is.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []error

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, errors.New("mqtt.broker.host is required"))
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, errors.New("mqtt.broker.port must be between 1 and 65535"))
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, errors.New("mqtt.qos must be 0, 1, or 2"))
	}
	if c.MQTT.Topic == "" {
		errs = append(errs, errors.New("mqtt.topic is required"))
	}

	// Destinations
	if len(c.Influx.Destinations) == 0 {
		errs = append(errs, ErrNoDestinations)
	}
	for i, d := range c.Influx.Destinations {
		if err := d.validate(); err != nil {
			errs = append(errs, fmt.Errorf("influx.destinations[%d]: %w", i, err))
		}
	}
	if c.Influx.RequestTimeout <= 0 {
		errs = append(errs, errors.New("influx.request_timeout must be positive"))
	}
	if c.Influx.MaxConcurrentWrites <= 0 {
		errs = append(errs, errors.New("influx.max_concurrent_writes must be positive"))
	}

	// Batching: zero is allowed and means "flush on every poll"
	if c.Batch.MaxSendInterval < 0 {
		errs = append(errs, errors.New("batch.max_send_interval must not be negative"))
	}
	if c.Batch.MaxSendMetrics < 0 {
		errs = append(errs, errors.New("batch.max_send_metrics must not be negative"))
	}

	if c.HTTP.Enabled && (c.HTTP.Port < 1 || c.HTTP.Port > 65535) {
		errs = append(errs, errors.New("http.port must be between 1 and 65535"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(errs...))
	}

	return nil
}

// validate checks a single destination. An empty Type means DestinationHTTP.
func (d DestinationConfig) validate() error {
	if d.URL == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(d.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url has no host")
	}

	switch d.Kind() {
	case DestinationHTTP:
	case DestinationInfluxDB2:
		if d.Org == "" || d.Bucket == "" {
			return errors.New("influxdb2 destinations require org and bucket")
		}
	default:
		return fmt.Errorf("unknown type %q", d.Type)
	}

	return nil
}

// Kind returns the destination type with the default applied.
func (d DestinationConfig) Kind() string {
	if d.Type == "" {
		return DestinationHTTP
	}
	return strings.ToLower(d.Type)
}

// FlushInterval returns the batch time trigger as a Duration.
func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.Batch.MaxSendInterval) * time.Second
}

// RequestTimeout returns the per-destination write timeout as a Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Influx.RequestTimeout) * time.Second
}

// GetReadTimeout returns the ops server read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the ops server write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the ops server idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeouts.Idle) * time.Second
}
