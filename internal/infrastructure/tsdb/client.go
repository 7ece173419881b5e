package tsdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nerrad567/mqtt2influx/internal/infrastructure/config"
)

// defaultWriteTimeout bounds a single POST when no timeout is given.
const defaultWriteTimeout = 10 * time.Second

// secretParams are query parameters that carry credentials on InfluxDB 1.x
// style write endpoints.
var secretParams = []string{"p", "password", "token", "access_token"}

// maxErrorBody caps how much of a rejection response is kept for the error message.
const maxErrorBody = 512

// Client writes line protocol batches to one HTTP endpoint.
type Client struct {
	url        string
	name       string
	httpClient *http.Client
}

// New creates a Client for the destination.
//
// Parameters:
//   - cfg: Destination whose URL is the full write endpoint
//   - timeout: Upper bound for one write, or 0 for the default
//
// Returns:
//   - *Client: Ready for Write; no connection is made until the first write
//   - error: ErrInvalidURL if the URL is not an absolute http(s) URL
func New(cfg config.DestinationConfig, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, redactURL(u))
	}
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	return &Client{
		url:  cfg.URL,
		name: redactURL(u),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// redactURL masks the userinfo password and any credential query parameters.
func redactURL(u *url.URL) string {
	masked := *u
	q := masked.Query()
	changed := false
	for _, key := range secretParams {
		if q.Has(key) {
			q.Set(key, "xxxxx")
			changed = true
		}
	}
	if changed {
		masked.RawQuery = q.Encode()
	}
	return masked.Redacted()
}

// Name returns the destination URL with any password or token masked.
func (c *Client) Name() string {
	return c.name
}

// Write POSTs payload to the endpoint.
//
// Returns:
//   - error: nil on a 2xx response, otherwise ErrWriteFailed wrapping the cause
func (c *Client) Write(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors embed the request URL.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = c.name
		}
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: HTTP %d: %s", ErrWriteFailed, resp.StatusCode, bytes.TrimSpace(body))
	}

	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
