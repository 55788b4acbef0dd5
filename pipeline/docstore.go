package pipeline

import (
	"context"
	"sync"

	"github.com/mynkchaudhry/VendorDocComparsion/core"
)

// DocumentStore receives finished vendor records. The real document
// catalog lives with the caller; the pipeline only writes into it.
type DocumentStore interface {
	SaveResult(ctx context.Context, owner, taskID string, record *core.StructuredData, metrics core.ProcessingMetrics) error
}

// SavedResult is one record written to the in-memory document store.
type SavedResult struct {
	Owner   string
	TaskID  string
	Record  *core.StructuredData
	Metrics core.ProcessingMetrics
}

// MemoryDocumentStore is a DocumentStore backed by a slice. Used by
// the CLI tool and by tests.
type MemoryDocumentStore struct {
	mu    sync.Mutex
	saved []SavedResult
}

var _ DocumentStore = (*MemoryDocumentStore)(nil)

// NewMemoryDocumentStore creates an empty in-memory document store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{}
}

// SaveResult implements DocumentStore.
func (s *MemoryDocumentStore) SaveResult(_ context.Context, owner, taskID string, record *core.StructuredData, metrics core.ProcessingMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, SavedResult{
		Owner:   owner,
		TaskID:  taskID,
		Record:  record,
		Metrics: metrics,
	})
	return nil
}

// Saved returns a copy of everything written so far.
func (s *MemoryDocumentStore) Saved() []SavedResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SavedResult, len(s.saved))
	copy(out, s.saved)
	return out
}
