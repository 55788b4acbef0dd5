package task

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mynkchaudhry/VendorDocComparsion/core"
)

const (
	defaultMaxUserTasks = 10
	defaultRetention    = 24 * time.Hour
)

// ProgressUpdate carries one progress report from the orchestrator.
// Zero-valued fields leave the corresponding task fields unchanged.
type ProgressUpdate struct {
	Percentage     float64
	Stage          string
	TotalSteps     int
	CompletedSteps int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used by the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMaxUserTasks caps the number of active tasks per owner.
func WithMaxUserTasks(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxUserTasks = n
		}
	}
}

// WithRetention sets how long terminal tasks stay readable.
func WithRetention(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.retention = d
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager owns the task lifecycle. All mutations go through its
// methods, serialized by an internal lock so read-modify-write cycles
// never interleave.
type Manager struct {
	store        Store
	maxUserTasks int
	retention    time.Duration
	now          func() time.Time
	logger       *slog.Logger

	mu sync.Mutex
}

// NewManager creates a task manager over store.
func NewManager(store Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	m := &Manager{
		store:        store,
		maxUserTasks: defaultMaxUserTasks,
		retention:    defaultRetention,
		now:          time.Now,
		logger:       slog.Default().With("component", "task-manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Create registers a new pending task for owner. Owners at their
// active-task cap get ErrTooManyTasks; terminal tasks don't count
// against the cap.
func (m *Manager) Create(ctx context.Context, owner string) (*core.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	active := 0
	for _, t := range existing {
		if !t.Status.Terminal() {
			active++
		}
	}
	if active >= m.maxUserTasks {
		return nil, ErrTooManyTasks
	}

	now := m.now().UTC()
	task := &core.Task{
		ID:        uuid.NewString(),
		Owner:     owner,
		Status:    core.TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
		Durable:   m.store.Durable(),
	}
	if err := m.store.Put(ctx, task); err != nil {
		return nil, err
	}

	m.logger.Info("task created", "task_id", task.ID, "owner", owner)
	return task, nil
}

// Get returns owner's task with the given id. Tasks belonging to a
// different owner are indistinguishable from missing ones.
func (m *Manager) Get(ctx context.Context, owner, id string) (*core.Task, error) {
	task, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Owner != owner {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// ListForOwner returns owner's tasks, newest first.
func (m *Manager) ListForOwner(ctx context.Context, owner string) ([]*core.Task, error) {
	tasks, err := m.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(tasks, func(a, b *core.Task) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return tasks, nil
}

// UpdateProgress applies a progress report. The first update moves a
// pending task to processing. Percentage is clamped to [0,100] and
// never decreases, so late or repeated reports are harmless. Updates
// against terminal tasks fail with ErrTaskTerminal.
func (m *Manager) UpdateProgress(ctx context.Context, id string, update ProgressUpdate) (*core.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return nil, ErrTaskTerminal
	}

	now := m.now().UTC()
	if task.Status == core.TaskPending {
		task.Status = core.TaskProcessing
		task.StartedAt = &now
	}

	pct := min(max(update.Percentage, 0), 100)
	if pct > task.ProgressPercentage {
		task.ProgressPercentage = pct
	}
	if update.Stage != "" {
		task.CurrentStage = update.Stage
	}
	if update.TotalSteps > 0 {
		task.TotalSteps = update.TotalSteps
	}
	if update.CompletedSteps > task.CompletedSteps {
		task.CompletedSteps = update.CompletedSteps
	}
	task.UpdatedAt = now

	if err := m.store.Put(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// RequestCancel flags owner's task for cooperative cancellation. The
// flag is advisory: the orchestrator observes it at safe points.
// Repeating the request is a no-op; cancelling a terminal task fails
// with ErrTaskTerminal.
func (m *Manager) RequestCancel(ctx context.Context, owner, id string) (*core.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Owner != owner {
		return nil, ErrTaskNotFound
	}
	if task.Status.Terminal() {
		return nil, ErrTaskTerminal
	}
	if task.CancelRequested {
		return task, nil
	}

	task.CancelRequested = true
	task.UpdatedAt = m.now().UTC()
	if err := m.store.Put(ctx, task); err != nil {
		return nil, err
	}

	m.logger.Info("task cancellation requested", "task_id", id, "owner", owner)
	return task, nil
}

// Cancelled reports whether cancellation has been requested for id.
// Used by the orchestrator as its poll between dispatch waves.
func (m *Manager) Cancelled(ctx context.Context, id string) bool {
	task, err := m.store.Get(ctx, id)
	if err != nil {
		return false
	}
	return task.CancelRequested
}

// Complete finishes a task successfully, attaching its result. A
// non-empty warning lands in ErrorMessage without affecting the
// status; partial chunk failures below the failure threshold use this.
func (m *Manager) Complete(ctx context.Context, id string, result *core.StructuredData, warning string) error {
	return m.finish(ctx, id, func(task *core.Task) {
		task.Status = core.TaskCompleted
		task.ProgressPercentage = 100
		task.CurrentStage = "completed"
		task.Result = result
		task.ErrorMessage = warning
	})
}

// Fail finishes a task with an error message.
func (m *Manager) Fail(ctx context.Context, id, message string) error {
	return m.finish(ctx, id, func(task *core.Task) {
		task.Status = core.TaskFailed
		task.CurrentStage = "failed"
		task.ErrorMessage = message
	})
}

// MarkCancelled finishes a cancelled task. Any partial result is
// discarded.
func (m *Manager) MarkCancelled(ctx context.Context, id string) error {
	return m.finish(ctx, id, func(task *core.Task) {
		task.Status = core.TaskCancelled
		task.CurrentStage = "cancelled"
		task.Result = nil
	})
}

func (m *Manager) finish(ctx context.Context, id string, apply func(*core.Task)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if task.Status.Terminal() {
		return ErrTaskTerminal
	}

	now := m.now().UTC()
	apply(task)
	task.UpdatedAt = now
	task.CompletedAt = &now

	if err := m.store.PutWithTTL(ctx, task, m.retention); err != nil {
		return err
	}

	m.logger.Info("task finished",
		"task_id", id,
		"status", task.Status,
		"error", task.ErrorMessage)
	return nil
}
