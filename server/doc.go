// Package server exposes the processing pipeline over HTTP: document
// upload, task progress polling, task listing, cancellation and a
// health probe. Caller identity comes from the X-User-ID header; the
// auth layer in front of this service is someone else's job.
package server
