// Package mock provides a test double for inference.FragmentExtractor.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/mynkchaudhry/VendorDocComparsion/core"
)

// MockFragmentExtractor is a test double for
// inference.FragmentExtractor. It allows custom behavior injection via
// function fields and is safe for concurrent use.
type MockFragmentExtractor struct {
	// ExtractFragmentFunc is called by ExtractFragment if set.
	// If nil, a simple fragment is derived from the chunk text.
	ExtractFragmentFunc func(ctx context.Context, chunk core.DocumentChunk, totalChunks int) (*core.StructuredData, error)

	mu        sync.Mutex
	callCount int
}

// NewMockFragmentExtractor creates a mock extractor with default
// behavior.
func NewMockFragmentExtractor() *MockFragmentExtractor {
	return &MockFragmentExtractor{}
}

// ExtractFragment returns a deterministic fragment derived from the
// chunk text.
func (m *MockFragmentExtractor) ExtractFragment(ctx context.Context, chunk core.DocumentChunk, totalChunks int) (*core.StructuredData, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.ExtractFragmentFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, chunk, totalChunks)
	}

	words := strings.Fields(chunk.Content)
	data := &core.StructuredData{ConfidenceScore: 0.9}
	if len(words) > 0 {
		data.VendorName = words[0]
		data.ProductsOrServices = []string{words[len(words)-1]}
	}
	return data, nil
}

// CallCount returns the number of times ExtractFragment was called.
func (m *MockFragmentExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom function.
func (m *MockFragmentExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ExtractFragmentFunc = nil
}
