package task

import (
	"context"
	"sync"
	"time"

	"github.com/mynkchaudhry/VendorDocComparsion/core"
)

// MemoryStore is the in-process fallback used when the durable store
// cannot be opened. Tasks read from it carry Durable=false so clients
// know a restart loses them. Expiry is lazy: expired records are
// dropped when read.
type MemoryStore struct {
	mu      sync.RWMutex
	tasks   map[string]*core.Task
	expires map[string]time.Time
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory task store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:   make(map[string]*core.Task),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, task *core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = cloneTask(task)
	delete(s.expires, task.ID)
	return nil
}

// PutWithTTL implements Store.
func (s *MemoryStore) PutWithTTL(_ context.Context, task *core.Task, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = cloneTask(task)
	s.expires[task.ID] = s.now().Add(ttl)
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || s.expired(id) {
		delete(s.tasks, id)
		delete(s.expires, id)
		return nil, ErrTaskNotFound
	}
	return cloneTask(task), nil
}

// ListByOwner implements Store.
func (s *MemoryStore) ListByOwner(_ context.Context, owner string) ([]*core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*core.Task
	for id, task := range s.tasks {
		if s.expired(id) {
			delete(s.tasks, id)
			delete(s.expires, id)
			continue
		}
		if task.Owner == owner {
			out = append(out, cloneTask(task))
		}
	}
	return out, nil
}

// Durable implements Store.
func (s *MemoryStore) Durable() bool { return false }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) expired(id string) bool {
	deadline, ok := s.expires[id]
	return ok && s.now().After(deadline)
}

// cloneTask copies a task so callers never share mutable state with
// the store.
func cloneTask(task *core.Task) *core.Task {
	copied := *task
	copied.Durable = false
	return &copied
}
