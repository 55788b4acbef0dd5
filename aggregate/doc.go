// Package aggregate merges per-chunk structured fragments into a
// single document-level record. The merge is deterministic: fragments
// are ordered by chunk id before any rule runs, so concurrent
// completion order never changes the output.
package aggregate
