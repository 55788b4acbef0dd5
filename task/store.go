package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mynkchaudhry/VendorDocComparsion/core"
)

// Store persists task records. Implementations must be safe for
// concurrent use. The Manager owns all task mutations; stores see only
// complete records.
type Store interface {
	// Put writes or overwrites a task record.
	Put(ctx context.Context, task *core.Task) error

	// PutWithTTL writes a task record that the store may drop after
	// ttl. Used for terminal tasks so finished work ages out.
	PutWithTTL(ctx context.Context, task *core.Task, ttl time.Duration) error

	// Get returns the task with the given id, or ErrTaskNotFound.
	Get(ctx context.Context, id string) (*core.Task, error)

	// ListByOwner returns all live tasks belonging to owner.
	ListByOwner(ctx context.Context, owner string) ([]*core.Task, error)

	// Durable reports whether records survive a process restart.
	Durable() bool

	// Close releases store resources.
	Close() error
}

// MarshalTask serializes a task record for storage.
func MarshalTask(task *core.Task) ([]byte, error) {
	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	return data, nil
}

// UnmarshalTask deserializes a stored task record.
func UnmarshalTask(data []byte) (*core.Task, error) {
	var task core.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &task, nil
}
