package influxdb

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/mqtt2influx/internal/infrastructure/config"
)

// Default timeouts for InfluxDB operations.
const (
	defaultWriteTimeout = 10 * time.Second
	defaultPingTimeout  = 5 * time.Second
)

// Client writes batches to one InfluxDB v2 bucket.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	name     string
}

// New creates a Client for an influxdb2 destination.
//
// No request is made here; use HealthCheck to ping the server.
//
// Parameters:
//   - cfg: Destination with URL, Token, Org and Bucket
//   - timeout: HTTP request timeout for one write, or 0 for the default
//
// Returns:
//   - *Client: Ready for Write
//   - error: ErrMissingBucket if org or bucket is empty
func New(cfg config.DestinationConfig, timeout time.Duration) (*Client, error) {
	if cfg.Org == "" || cfg.Bucket == "" {
		return nil, ErrMissingBucket
	}
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	seconds := uint(math.Ceil(timeout.Seconds()))
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetPrecision(time.Nanosecond).
			SetHTTPRequestTimeout(seconds).
			SetMaxRetries(0),
	)

	return &Client{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		name:     destinationName(cfg),
	}, nil
}

// destinationName renders a credential-free label for logs and metrics.
func destinationName(cfg config.DestinationConfig) string {
	base := cfg.URL
	if u, err := url.Parse(cfg.URL); err == nil {
		base = u.Redacted()
	}
	return fmt.Sprintf("%s [%s/%s]", base, cfg.Org, cfg.Bucket)
}

// Name returns the server URL and target bucket.
func (c *Client) Name() string {
	return c.name
}

// Write sends payload, a newline-separated set of line protocol records.
//
// Returns:
//   - error: nil once the server has accepted the batch, otherwise ErrWriteFailed wrapping the cause
func (c *Client) Write(ctx context.Context, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	if err := c.writeAPI.WriteRecord(ctx, string(payload)); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// HealthCheck pings the server.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if the server answered, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	if !healthy {
		return ErrUnhealthy
	}

	return nil
}

// Close releases the underlying HTTP resources.
//
// Returns:
//   - error: nil (the InfluxDB client Close doesn't return errors)
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.client.Close()
	return nil
}
