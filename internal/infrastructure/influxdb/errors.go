package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, influxdb.ErrWriteFailed) {
//	    // batch not stored
//	}
var (
	// ErrUnhealthy indicates the server did not answer a ping.
	ErrUnhealthy = errors.New("influxdb: server not healthy")

	// ErrWriteFailed indicates a batch write was not accepted.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrMissingBucket indicates a destination without org or bucket.
	ErrMissingBucket = errors.New("influxdb: org and bucket are required")
)
