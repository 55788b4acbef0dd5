// Package inference drives the external inference service over a
// document's chunks: bounded-concurrency dispatch waves, per-chunk
// retry with exponential backoff and jitter, chunk-level failure
// isolation, and cooperative cancellation between waves.
package inference
