package task

import "errors"

var (
	// ErrTaskNotFound is returned when no task exists with the given id
	// for the given owner. Tasks owned by someone else are reported as
	// not found, never as forbidden.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTooManyTasks is returned when an owner already has the maximum
	// number of active tasks.
	ErrTooManyTasks = errors.New("too many active tasks")

	// ErrTaskTerminal is returned when an update targets a task that
	// already reached a final state.
	ErrTaskTerminal = errors.New("task already in terminal state")

	// ErrStoreRequired is returned when a manager is built without a
	// store.
	ErrStoreRequired = errors.New("task store required")
)
