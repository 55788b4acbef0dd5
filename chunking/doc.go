// Package chunking splits extracted document text into ordered,
// overlapping word-window chunks honoring the memory governor's
// current limits, and scores each chunk's content quality so
// near-empty chunks can be skipped before inference.
package chunking
