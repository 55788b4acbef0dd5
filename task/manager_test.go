package task

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mynkchaudhry/VendorDocComparsion/core"
)

func testManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	m, err := NewManager(NewMemoryStore(), opts...)
	require.NoError(t, err)
	return m
}

func TestNewManager_RequiresStore(t *testing.T) {
	_, err := NewManager(nil)
	assert.ErrorIs(t, err, ErrStoreRequired)
}

func TestCreate_NewTaskIsPending(t *testing.T) {
	m := testManager(t)
	task, err := m.Create(context.Background(), "alice")
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, core.TaskPending, task.Status)
	assert.Equal(t, "alice", task.Owner)
	assert.Zero(t, task.ProgressPercentage)
	assert.False(t, task.Durable, "memory store tasks are not durable")
}

func TestCreate_EnforcesPerUserCap(t *testing.T) {
	ctx := context.Background()
	m := testManager(t, WithMaxUserTasks(2))

	first, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = m.Create(ctx, "alice")
	require.NoError(t, err)

	_, err = m.Create(ctx, "alice")
	assert.ErrorIs(t, err, ErrTooManyTasks)

	_, err = m.Create(ctx, "bob")
	assert.NoError(t, err, "the cap is per owner")

	require.NoError(t, m.Complete(ctx, first.ID, &core.StructuredData{VendorName: "Acme"}, ""))
	_, err = m.Create(ctx, "alice")
	assert.NoError(t, err, "terminal tasks free capacity")
}

func TestGet_ForeignOwnerLooksLikeNotFound(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)

	task, err := m.Create(ctx, "alice")
	require.NoError(t, err)

	_, err = m.Get(ctx, "bob", task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	got, err := m.Get(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
}

func TestUpdateProgress_FirstUpdateStartsProcessing(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)

	task, err := m.Create(ctx, "alice")
	require.NoError(t, err)

	updated, err := m.UpdateProgress(ctx, task.ID, ProgressUpdate{
		Percentage: 10,
		Stage:      "chunking",
		TotalSteps: 7,
	})
	require.NoError(t, err)

	assert.Equal(t, core.TaskProcessing, updated.Status)
	require.NotNil(t, updated.StartedAt)
	assert.Equal(t, 10.0, updated.ProgressPercentage)
	assert.Equal(t, "chunking", updated.CurrentStage)
	assert.Equal(t, 7, updated.TotalSteps)
}

func TestUpdateProgress_ClampsAndNeverDecreases(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)

	task, err := m.Create(ctx, "alice")
	require.NoError(t, err)

	updated, err := m.UpdateProgress(ctx, task.ID, ProgressUpdate{Percentage: 150})
	require.NoError(t, err)
	assert.Equal(t, 100.0, updated.ProgressPercentage)

	updated, err = m.UpdateProgress(ctx, task.ID, ProgressUpdate{Percentage: 40})
	require.NoError(t, err)
	assert.Equal(t, 100.0, updated.ProgressPercentage, "late reports never move progress backwards")
}

func TestUpdateProgress_TerminalTaskRejected(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)

	task, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, m.Fail(ctx, task.ID, "boom"))

	_, err = m.UpdateProgress(ctx, task.ID, ProgressUpdate{Percentage: 50})
	assert.ErrorIs(t, err, ErrTaskTerminal)
}

func TestRequestCancel_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)

	task, err := m.Create(ctx, "alice")
	require.NoError(t, err)

	first, err := m.RequestCancel(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.True(t, first.CancelRequested)

	second, err := m.RequestCancel(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.True(t, second.CancelRequested)

	assert.True(t, m.Cancelled(ctx, task.ID))
}

func TestRequestCancel_TerminalAndForeign(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)

	task, err := m.Create(ctx, "alice")
	require.NoError(t, err)

	_, err = m.RequestCancel(ctx, "bob", task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	require.NoError(t, m.Complete(ctx, task.ID, &core.StructuredData{}, ""))
	_, err = m.RequestCancel(ctx, "alice", task.ID)
	assert.ErrorIs(t, err, ErrTaskTerminal)
}

func TestComplete_AttachesResult(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)

	task, err := m.Create(ctx, "alice")
	require.NoError(t, err)

	result := &core.StructuredData{VendorName: "Acme"}
	require.NoError(t, m.Complete(ctx, task.ID, result, ""))

	got, err := m.Get(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskCompleted, got.Status)
	assert.Equal(t, 100.0, got.ProgressPercentage)
	require.NotNil(t, got.Result)
	assert.Equal(t, "Acme", got.Result.VendorName)
	assert.NotNil(t, got.CompletedAt)
}

func TestMarkCancelled_DiscardsPartialResult(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)

	task, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = m.UpdateProgress(ctx, task.ID, ProgressUpdate{Percentage: 60})
	require.NoError(t, err)

	require.NoError(t, m.MarkCancelled(ctx, task.ID))

	got, err := m.Get(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskCancelled, got.Status)
	assert.Nil(t, got.Result)
}

func TestFinish_TwiceFails(t *testing.T) {
	ctx := context.Background()
	m := testManager(t)

	task, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, m.Fail(ctx, task.ID, "boom"))

	assert.ErrorIs(t, m.Complete(ctx, task.ID, &core.StructuredData{}, ""), ErrTaskTerminal)
}

func TestListForOwner_NewestFirst(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := testManager(t, WithClock(func() time.Time { return current }))

	older, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	current = current.Add(time.Minute)
	newer, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = m.Create(ctx, "bob")
	require.NoError(t, err)

	tasks, err := m.ListForOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, newer.ID, tasks[0].ID)
	assert.Equal(t, older.ID, tasks[1].ID)
}

func TestMemoryStore_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	done := &core.Task{ID: "t1", Owner: "alice", Status: core.TaskCompleted}
	require.NoError(t, store.PutWithTTL(ctx, done, time.Hour))

	_, err := store.Get(ctx, "t1")
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)
	_, err = store.Get(ctx, "t1")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	tasks, err := store.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
