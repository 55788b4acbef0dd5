package chunking

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mynkchaudhry/VendorDocComparsion/memgov"
)

func wordsText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(words, " ")
}

func TestChunk_EmptyDocument(t *testing.T) {
	e := NewEngine(200)
	chunks, err := e.Chunk("", nil, memgov.Limits{MaxChunkWords: 2000})
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = e.Chunk("   \n\t  ", nil, memgov.Limits{MaxChunkWords: 2000})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunk_SingleChunkBelowWindow(t *testing.T) {
	e := NewEngine(200)
	chunks, err := e.Chunk(wordsText(500), nil, memgov.Limits{MaxChunkWords: 2000})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].ID)
	assert.Equal(t, 500, chunks[0].WordCount)
}

func TestChunk_OverlapMustBeSmaller(t *testing.T) {
	e := NewEngine(2000)
	_, err := e.Chunk(wordsText(100), nil, memgov.Limits{MaxChunkWords: 2000})
	assert.ErrorIs(t, err, ErrOverlapTooLarge)

	e = NewEngine(100)
	_, err = e.Chunk(wordsText(100), nil, memgov.Limits{MaxChunkWords: 0})
	assert.ErrorIs(t, err, ErrInvalidChunkWords)
}

func TestChunk_WindowAndOverlapInvariants(t *testing.T) {
	const total, window, overlap = 11000, 2000, 200
	e := NewEngine(overlap)
	chunks, err := e.Chunk(wordsText(total), nil, memgov.Limits{MaxChunkWords: window})
	require.NoError(t, err)

	// 11000 words, step 1800: starts at 0,1800,...,9000, where the
	// window reaches the end of the text -> 6 chunks.
	require.Len(t, chunks, 6)

	allWords := make(map[string]bool)
	for i, c := range chunks {
		assert.Equal(t, i, c.ID, "ids are a strictly increasing sequence")
		assert.LessOrEqual(t, c.WordCount, window, "chunk %d exceeds window", i)
		for _, w := range strings.Fields(c.Content) {
			allWords[w] = true
		}

		if i > 0 {
			prev := strings.Fields(chunks[i-1].Content)
			cur := strings.Fields(c.Content)
			assert.Equal(t, prev[len(prev)-overlap:], cur[:overlap],
				"chunk %d does not overlap its predecessor by %d words", i, overlap)
		}
	}

	assert.Len(t, allWords, total, "union of chunks covers the whole document")
}

func TestChunk_HighPressureLimitsNeverExceeded(t *testing.T) {
	// Scenario: governor reports high pressure, window drops to 1000.
	e := NewEngine(200)
	chunks, err := e.Chunk(wordsText(5000), nil, memgov.Limits{MaxChunkWords: 1000})
	require.NoError(t, err)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.WordCount, 1000)
	}
}

func TestChunk_FreshNumberingPerCall(t *testing.T) {
	e := NewEngine(10)
	text := wordsText(250)
	limits := memgov.Limits{MaxChunkWords: 100}

	first, err := e.Chunk(text, nil, limits)
	require.NoError(t, err)
	second, err := e.Chunk(text, nil, limits)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Content, second[i].Content)
	}
}

func TestEstimateChunks_MatchesActualCount(t *testing.T) {
	e := NewEngine(200)
	limits := memgov.Limits{MaxChunkWords: 2000}

	for _, total := range []int{1, 500, 2000, 2001, 5000, 10000, 11000} {
		chunks, err := e.Chunk(wordsText(total), nil, limits)
		require.NoError(t, err)
		assert.Equal(t, len(chunks), e.EstimateChunks(total, limits), "%d words", total)
	}

	assert.Zero(t, e.EstimateChunks(0, limits))
	assert.Zero(t, e.EstimateChunks(100, memgov.Limits{MaxChunkWords: 100}),
		"overlap >= window estimates nothing")
}

func TestChunk_SourceRanges(t *testing.T) {
	e := NewEngine(20)
	boundaries := []Boundary{
		{Label: "page 1", StartWord: 0, EndWord: 100},
		{Label: "page 2", StartWord: 100, EndWord: 200},
		{Label: "page 3", StartWord: 200, EndWord: 300},
	}
	chunks, err := e.Chunk(wordsText(300), boundaries, memgov.Limits{MaxChunkWords: 120})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, "page 1 - page 2", chunks[0].SourceRange)
	last := chunks[len(chunks)-1]
	assert.Contains(t, last.SourceRange, "page 3")
}

func TestChunk_NoBoundariesFallsBackToWordOffsets(t *testing.T) {
	e := NewEngine(10)
	chunks, err := e.Chunk(wordsText(50), nil, memgov.Limits{MaxChunkWords: 100})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "words 0-50", chunks[0].SourceRange)
}
