package chunking

import "errors"

var (
	// ErrOverlapTooLarge is returned when the configured overlap is
	// not smaller than the chunk window.
	ErrOverlapTooLarge = errors.New("chunk overlap must be smaller than max chunk words")

	// ErrInvalidChunkWords is returned when the window size is not
	// positive.
	ErrInvalidChunkWords = errors.New("max chunk words must be positive")
)
