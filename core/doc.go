// Package core defines the domain model shared by every stage of the
// vendor document pipeline: background tasks, document chunks, the
// structured vendor record extracted by inference, and per-job
// processing metrics.
package core
