package core

import "errors"

// Domain errors shared across pipeline stages.
var (
	// ErrEmptyDocument indicates extraction produced no text at all.
	ErrEmptyDocument = errors.New("document contains no extractable text")

	// ErrNoUsableContent indicates every chunk was filtered out before
	// inference.
	ErrNoUsableContent = errors.New("no usable content after quality filtering")

	// ErrAllChunksFailed indicates no chunk produced a fragment.
	ErrAllChunksFailed = errors.New("all chunks failed to process")
)
