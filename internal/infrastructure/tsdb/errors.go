package tsdb

import "errors"

// Sentinel errors for line protocol writes.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, tsdb.ErrWriteFailed) {
//	    // endpoint unreachable or rejected the batch
//	}
var (
	// ErrInvalidURL indicates the destination URL cannot be used for writes.
	ErrInvalidURL = errors.New("tsdb: invalid destination URL")

	// ErrWriteFailed indicates a write did not reach the endpoint or was rejected.
	ErrWriteFailed = errors.New("tsdb: write failed")
)
