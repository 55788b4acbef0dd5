package inference

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/mynkchaudhry/VendorDocComparsion/core"
)

const (
	defaultMaxRetries       = 3
	defaultRetryDelay       = 2 * time.Second
	defaultCallTimeout      = 90 * time.Second
	defaultQualityThreshold = 0.1

	// maxChunkChars caps the text sent per inference call. Chunks are
	// sized in words, so a pathological chunk of very long tokens is
	// truncated rather than rejected.
	maxChunkChars = 6000
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used by the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryPolicy sets the per-chunk retry budget and the base backoff
// delay.
func WithRetryPolicy(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
		if baseDelay > 0 {
			c.retryDelay = baseDelay
		}
	}
}

// WithCallTimeout bounds each individual inference call.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithQualityThreshold sets the score below which chunks are skipped
// without spending an inference call.
func WithQualityThreshold(threshold float64) Option {
	return func(c *Client) {
		if threshold >= 0 {
			c.qualityThreshold = threshold
		}
	}
}

// Client fans document chunks out to a FragmentExtractor in bounded
// waves. Each chunk gets its own retry budget and its failure never
// aborts siblings.
type Client struct {
	extractor        FragmentExtractor
	maxRetries       int
	retryDelay       time.Duration
	callTimeout      time.Duration
	qualityThreshold float64
	logger           *slog.Logger
}

// NewClient creates a batch inference client around extractor.
func NewClient(extractor FragmentExtractor, opts ...Option) (*Client, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	c := &Client{
		extractor:        extractor,
		maxRetries:       defaultMaxRetries,
		retryDelay:       defaultRetryDelay,
		callTimeout:      defaultCallTimeout,
		qualityThreshold: defaultQualityThreshold,
		logger:           slog.Default().With("component", "inference"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Infer processes chunks in waves of at most maxConcurrent. Chunks
// scoring below the quality threshold resolve as skipped without an
// inference call. cancelled is polled between waves; when it reports
// true, in-flight work finishes, no further waves start, and Infer
// returns the results resolved so far with ErrCancelled.
//
// onResult, when non-nil, is invoked once per resolved chunk under an
// internal lock so callers see a serialized stream.
func (c *Client) Infer(ctx context.Context, chunks []core.DocumentChunk, maxConcurrent int, cancelled func() bool, onResult func(core.ChunkResult)) ([]core.ChunkResult, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if cancelled == nil {
		cancelled = func() bool { return false }
	}

	pool, err := ants.NewPool(maxConcurrent)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	results := make([]core.ChunkResult, len(chunks))
	total := len(chunks)

	var mu sync.Mutex
	resolve := func(idx int, res core.ChunkResult) {
		mu.Lock()
		defer mu.Unlock()
		results[idx] = res
		if onResult != nil {
			onResult(res)
		}
	}

	for start := 0; start < total; start += maxConcurrent {
		if err := ctx.Err(); err != nil {
			return results[:start], err
		}
		if cancelled() {
			c.logger.Info("cancellation observed, stopping dispatch",
				"resolved", start, "total", total)
			return results[:start], ErrCancelled
		}

		end := min(start+maxConcurrent, total)

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			idx := i
			chunk := chunks[idx]

			if chunk.QualityScore < c.qualityThreshold {
				resolve(idx, core.ChunkResult{ChunkID: chunk.ID, Status: core.ChunkSkipped})
				c.logger.Debug("chunk skipped below quality threshold",
					"chunk_id", chunk.ID, "score", chunk.QualityScore)
				continue
			}

			wg.Add(1)
			task := func() {
				defer wg.Done()
				resolve(idx, c.processChunk(ctx, chunk, total))
			}
			if err := pool.Submit(task); err != nil {
				task()
			}
		}
		wg.Wait()
	}

	return results, nil
}

func (c *Client) processChunk(ctx context.Context, chunk core.DocumentChunk, totalChunks int) core.ChunkResult {
	chunk.Content = truncateRunes(chunk.Content, maxChunkChars)

	var fragment *core.StructuredData
	err := RetryWithBackoff(ctx, c.logger, c.maxRetries, c.retryDelay, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()

		var callErr error
		fragment, callErr = c.extractor.ExtractFragment(callCtx, chunk, totalChunks)
		return callErr
	})
	if err != nil {
		c.logger.Warn("chunk inference failed",
			"chunk_id", chunk.ID, "error", err)
		return core.ChunkResult{ChunkID: chunk.ID, Status: core.ChunkFailed, Err: err}
	}

	return core.ChunkResult{ChunkID: chunk.ID, Status: core.ChunkSucceeded, Fragment: fragment}
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
