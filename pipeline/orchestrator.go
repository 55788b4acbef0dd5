package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/mynkchaudhry/VendorDocComparsion/aggregate"
	"github.com/mynkchaudhry/VendorDocComparsion/chunking"
	"github.com/mynkchaudhry/VendorDocComparsion/core"
	"github.com/mynkchaudhry/VendorDocComparsion/extract"
	"github.com/mynkchaudhry/VendorDocComparsion/inference"
	"github.com/mynkchaudhry/VendorDocComparsion/memgov"
	"github.com/mynkchaudhry/VendorDocComparsion/task"
)

const (
	defaultProcessingTimeout = 30 * time.Minute
	defaultFailureRatio      = 0.5
	defaultFastPathThreshold = 1
	defaultMaxRunningTasks   = 4

	// Progress percentages reserved around the inference phase, which
	// scales between them as chunks resolve.
	progressChunked   = 10.0
	progressInferred  = 90.0
	progressAggregate = 95.0
)

// Deps are the collaborators an Orchestrator composes. All are
// required.
type Deps struct {
	Registry  *extract.Registry
	Governor  *memgov.Governor
	Chunker   *chunking.Engine
	Inference *inference.Client
	Merger    *aggregate.Merger
	Tasks     *task.Manager
	Documents DocumentStore
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used by the orchestrator.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProcessingTimeout sets the overall per-task deadline.
func WithProcessingTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.processingTimeout = d
		}
	}
}

// WithFailureRatio sets the fraction of attempted chunks that may fail
// before the whole task fails.
func WithFailureRatio(ratio float64) Option {
	return func(o *Orchestrator) {
		if ratio > 0 && ratio <= 1 {
			o.failureRatio = ratio
		}
	}
}

// WithFastPathThreshold sets the estimated chunk count at or below
// which documents are processed synchronously without a task.
func WithFastPathThreshold(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.fastPathThreshold = n
		}
	}
}

// WithMaxRunningTasks bounds how many tasks execute concurrently.
func WithMaxRunningTasks(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRunning = n
		}
	}
}

// Outcome is the immediate answer to a Process call: a synchronous
// record on the fast path, a task id to poll on the chunked path.
type Outcome struct {
	TaskID string               `json:"task_id,omitempty"`
	Record *core.StructuredData `json:"record,omitempty"`
}

// Orchestrator drives one document through extraction, chunking,
// inference and aggregation.
type Orchestrator struct {
	registry  *extract.Registry
	governor  *memgov.Governor
	chunker   *chunking.Engine
	inference *inference.Client
	merger    *aggregate.Merger
	tasks     *task.Manager
	documents DocumentStore

	pool              *ants.Pool
	processingTimeout time.Duration
	failureRatio      float64
	fastPathThreshold int
	maxRunning        int
	logger            *slog.Logger
}

// NewOrchestrator creates an orchestrator over deps.
func NewOrchestrator(deps Deps, opts ...Option) (*Orchestrator, error) {
	if deps.Registry == nil || deps.Governor == nil || deps.Chunker == nil ||
		deps.Inference == nil || deps.Merger == nil || deps.Tasks == nil ||
		deps.Documents == nil {
		return nil, ErrMissingDependency
	}

	o := &Orchestrator{
		registry:          deps.Registry,
		governor:          deps.Governor,
		chunker:           deps.Chunker,
		inference:         deps.Inference,
		merger:            deps.Merger,
		tasks:             deps.Tasks,
		documents:         deps.Documents,
		processingTimeout: defaultProcessingTimeout,
		failureRatio:      defaultFailureRatio,
		fastPathThreshold: defaultFastPathThreshold,
		maxRunning:        defaultMaxRunningTasks,
		logger:            slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}

	pool, err := ants.NewPool(o.maxRunning)
	if err != nil {
		return nil, err
	}
	o.pool = pool
	return o, nil
}

// Close stops accepting new tasks and releases the worker pool.
// Running tasks finish on their own deadlines.
func (o *Orchestrator) Close() {
	o.pool.Release()
}

// Process ingests one document for owner. Small documents (estimated
// chunk count at or below the fast-path threshold) are processed
// synchronously and return a record; larger ones get a background task
// and return its id immediately.
func (o *Orchestrator) Process(ctx context.Context, owner string, content []byte, fileType string) (*Outcome, error) {
	extracted, err := o.registry.Extract(ctx, content, fileType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	limits := o.governor.CurrentLimits()
	words := len(strings.Fields(extracted.Text))
	if words == 0 {
		return nil, core.ErrEmptyDocument
	}
	fingerprint := strconv.FormatUint(core.FingerprintContent(extracted.Text), 16)

	estimated := o.chunker.EstimateChunks(words, limits)
	if estimated <= o.fastPathThreshold {
		record, err := o.processFast(ctx, owner, extracted, limits, fingerprint)
		if err != nil {
			return nil, err
		}
		return &Outcome{Record: record}, nil
	}

	created, err := o.tasks.Create(ctx, owner)
	if err != nil {
		return nil, err
	}

	run := func() { o.run(owner, created.ID, extracted, limits, fingerprint) }
	if err := o.pool.Submit(run); err != nil {
		_ = o.tasks.Fail(context.Background(), created.ID, "task scheduling failed: "+err.Error())
		return nil, err
	}

	o.logger.Info("document accepted for background processing",
		"task_id", created.ID,
		"owner", owner,
		"words", words,
		"fingerprint", fingerprint,
		"estimated_chunks", estimated)
	return &Outcome{TaskID: created.ID}, nil
}

// processFast handles documents that fit in a single chunk: one
// synchronous inference call, no task bookkeeping.
func (o *Orchestrator) processFast(ctx context.Context, owner string, extracted *extract.Result, limits memgov.Limits, fingerprint string) (*core.StructuredData, error) {
	started := time.Now()

	chunks, err := o.chunker.Chunk(extracted.Text, extracted.Boundaries, limits)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, core.ErrEmptyDocument
	}

	results, err := o.inference.Infer(ctx, chunks, 1, nil, nil)
	if err != nil {
		return nil, err
	}

	succeeded, failed, skipped := countResults(results)
	if succeeded == 0 {
		if failed == 0 {
			return nil, core.ErrNoUsableContent
		}
		return nil, fmt.Errorf("%w: %v", core.ErrAllChunksFailed, firstChunkError(results))
	}

	record, conflicts := o.merger.Merge(results)
	metrics := o.buildMetrics(fingerprint, len(chunks), succeeded, failed, skipped, conflicts, started)
	if err := o.documents.SaveResult(ctx, owner, "", record, metrics); err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}
	return record, nil
}

// run executes the chunked path for one task. It runs detached from
// the upload request under its own deadline.
func (o *Orchestrator) run(owner, taskID string, extracted *extract.Result, limits memgov.Limits, fingerprint string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.processingTimeout)
	defer cancel()
	started := time.Now()

	o.progress(ctx, taskID, task.ProgressUpdate{Percentage: 5, Stage: "chunking"})

	chunks, err := o.chunker.Chunk(extracted.Text, extracted.Boundaries, limits)
	if err != nil {
		o.fail(taskID, "chunking failed: "+err.Error())
		return
	}
	if len(chunks) == 0 {
		o.fail(taskID, "no usable content")
		return
	}

	o.progress(ctx, taskID, task.ProgressUpdate{
		Percentage: progressChunked,
		Stage:      "analyzing chunks",
		TotalSteps: len(chunks),
	})

	var completed atomic.Int64
	onResult := func(core.ChunkResult) {
		done := completed.Add(1)
		pct := progressChunked + (progressInferred-progressChunked)*float64(done)/float64(len(chunks))
		o.progress(ctx, taskID, task.ProgressUpdate{
			Percentage:     pct,
			Stage:          "analyzing chunks",
			CompletedSteps: int(done),
		})
	}
	cancelled := func() bool { return o.tasks.Cancelled(ctx, taskID) }

	results, err := o.inference.Infer(ctx, chunks, limits.MaxConcurrentChunks, cancelled, onResult)
	switch {
	case errors.Is(err, inference.ErrCancelled):
		if err := o.tasks.MarkCancelled(context.Background(), taskID); err != nil {
			o.logger.Error("failed to mark task cancelled", "task_id", taskID, "error", err)
		}
		return
	case errors.Is(err, context.DeadlineExceeded):
		o.fail(taskID, fmt.Sprintf("processing deadline of %s exceeded", o.processingTimeout))
		return
	case err != nil:
		o.fail(taskID, "inference failed: "+err.Error())
		return
	}

	succeeded, failed, skipped := countResults(results)
	attempted := succeeded + failed
	if attempted == 0 {
		o.fail(taskID, "no usable content")
		return
	}
	if succeeded == 0 {
		o.fail(taskID, fmt.Sprintf("all %d chunks failed: %v", failed, firstChunkError(results)))
		return
	}
	if ratio := float64(failed) / float64(attempted); ratio >= o.failureRatio {
		o.fail(taskID, fmt.Sprintf("%d of %d chunks failed, above the failure threshold", failed, attempted))
		return
	}

	o.progress(ctx, taskID, task.ProgressUpdate{Percentage: progressAggregate, Stage: "aggregating"})

	record, conflicts := o.merger.Merge(results)
	metrics := o.buildMetrics(fingerprint, len(chunks), succeeded, failed, skipped, conflicts, started)
	if err := o.documents.SaveResult(ctx, owner, taskID, record, metrics); err != nil {
		o.fail(taskID, "saving result failed: "+err.Error())
		return
	}

	warning := ""
	if failed > 0 {
		warning = fmt.Sprintf("%d of %d chunks failed; result built from the remainder", failed, attempted)
	}
	if err := o.tasks.Complete(context.Background(), taskID, record, warning); err != nil {
		o.logger.Error("failed to complete task", "task_id", taskID, "error", err)
		return
	}

	o.logger.Info("document processed",
		"task_id", taskID,
		"chunks", len(chunks),
		"succeeded", succeeded,
		"failed", failed,
		"skipped", skipped,
		"pricing_conflicts", conflicts,
		"elapsed", metrics.Elapsed)
}

func (o *Orchestrator) buildMetrics(fingerprint string, created, succeeded, failed, skipped, conflicts int, started time.Time) core.ProcessingMetrics {
	return core.ProcessingMetrics{
		DocumentFingerprint: fingerprint,

		ChunksCreated:    created,
		ChunksSucceeded:  succeeded,
		ChunksFailed:     failed,
		ChunksSkipped:    skipped,
		PricingConflicts: conflicts,
		PeakMemoryMB:     o.governor.Stats().ProcessMB,
		Elapsed:          time.Since(started),
	}
}

func (o *Orchestrator) progress(ctx context.Context, taskID string, update task.ProgressUpdate) {
	if _, err := o.tasks.UpdateProgress(ctx, taskID, update); err != nil {
		o.logger.Warn("progress update dropped", "task_id", taskID, "error", err)
	}
}

func (o *Orchestrator) fail(taskID, message string) {
	// Failure is recorded even when the task deadline killed the
	// context, so polling clients always see a terminal state.
	if err := o.tasks.Fail(context.Background(), taskID, message); err != nil {
		o.logger.Error("failed to mark task failed", "task_id", taskID, "error", err)
	}
}

func countResults(results []core.ChunkResult) (succeeded, failed, skipped int) {
	for _, res := range results {
		switch res.Status {
		case core.ChunkSucceeded:
			succeeded++
		case core.ChunkFailed:
			failed++
		case core.ChunkSkipped:
			skipped++
		}
	}
	return succeeded, failed, skipped
}

func firstChunkError(results []core.ChunkResult) error {
	for _, res := range results {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}
