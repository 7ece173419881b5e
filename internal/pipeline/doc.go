// Package pipeline moves samples from the MQTT callback to the storage
// endpoints.
//
//	MQTT message -> Ingestor -> Queue -> Flusher -> Publisher -> Writers
//
// The Ingestor runs on the broker's delivery goroutine and only ever
// appends to the Queue, which is unbounded and never blocks producers.
// A single Flusher goroutine drains the Queue into a batch and hands the
// batch to the Publisher when it holds more than MaxBatchSize lines or
// when more than MaxInterval has passed since the previous flush.
//
// Delivery is at-most-once: the Publisher writes each batch to every
// destination independently, logs failures, and never retries. The batch
// is discarded after the attempt whatever the outcome.
//
// Flusher.Run stops when its context is cancelled; anything still queued
// is published in a final batch before it returns.
package pipeline
