package chunking

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mynkchaudhry/VendorDocComparsion/core"
	"github.com/mynkchaudhry/VendorDocComparsion/memgov"
)

// Boundary maps a region of the extracted text back to its source
// location (a page or sheet). Offsets are half-open word indexes into
// the full text.
type Boundary struct {
	Label     string
	StartWord int
	EndWord   int
}

// Engine splits text into overlapping chunks. The overlap is fixed at
// construction; the window size comes from the limits passed to each
// Chunk call so memory pressure takes effect per document.
type Engine struct {
	overlap int
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a chunking engine with the given word overlap.
func NewEngine(overlapWords int, opts ...Option) *Engine {
	e := &Engine{
		overlap: overlapWords,
		logger:  slog.Default().With("component", "chunking"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Chunk splits text into ordered chunks of at most limits.MaxChunkWords
// words, each overlapping its predecessor by the configured overlap.
// Every call produces a fresh sequence numbered from zero. An empty
// document yields zero chunks; callers must treat that as a data
// error, not a success.
func (e *Engine) Chunk(text string, boundaries []Boundary, limits memgov.Limits) ([]core.DocumentChunk, error) {
	maxWords := limits.MaxChunkWords
	if maxWords <= 0 {
		return nil, ErrInvalidChunkWords
	}
	if e.overlap >= maxWords {
		return nil, fmt.Errorf("%w: overlap %d, window %d", ErrOverlapTooLarge, e.overlap, maxWords)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	var chunks []core.DocumentChunk
	step := maxWords - e.overlap

	for start := 0; start < len(words); start += step {
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}

		content := strings.Join(words[start:end], " ")
		chunks = append(chunks, core.DocumentChunk{
			ID:           len(chunks),
			SourceRange:  sourceRange(boundaries, start, end),
			Content:      content,
			WordCount:    end - start,
			QualityScore: Score(content),
		})

		if end == len(words) {
			break
		}
	}

	e.logger.Debug("split document into chunks",
		"chunks", len(chunks),
		"words", len(words),
		"max_chunk_words", maxWords,
		"overlap", e.overlap)

	return chunks, nil
}

// EstimateChunks predicts how many chunks a word count would produce
// under limits without materializing them. Used for the fast-path
// decision before any chunking happens.
func (e *Engine) EstimateChunks(wordCount int, limits memgov.Limits) int {
	maxWords := limits.MaxChunkWords
	if wordCount <= 0 || maxWords <= 0 || e.overlap >= maxWords {
		return 0
	}
	if wordCount <= maxWords {
		return 1
	}
	step := maxWords - e.overlap
	return 1 + (wordCount-maxWords+step-1)/step
}

// sourceRange resolves the boundary labels a word window falls within.
func sourceRange(boundaries []Boundary, start, end int) string {
	var first, last string
	for _, b := range boundaries {
		if b.EndWord <= start || b.StartWord >= end {
			continue
		}
		if first == "" {
			first = b.Label
		}
		last = b.Label
	}
	switch {
	case first == "":
		return fmt.Sprintf("words %d-%d", start, end)
	case first == last:
		return first
	default:
		return first + " - " + last
	}
}
