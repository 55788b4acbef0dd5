package core

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// TaskStatus describes the lifecycle state of a background task.
type TaskStatus string

const (
	// TaskPending is the only initial state.
	TaskPending TaskStatus = "pending"
	// TaskProcessing is entered on the first progress update.
	TaskProcessing TaskStatus = "processing"
	// TaskCompleted is terminal; a result is always attached.
	TaskCompleted TaskStatus = "completed"
	// TaskFailed is terminal; ErrorMessage explains the failure.
	TaskFailed TaskStatus = "failed"
	// TaskCancelled is terminal; no result is ever attached.
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status is a final state.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskProcessing, TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

// Task is one durable, pollable background job corresponding to one
// document's chunked processing. Tasks are owned exclusively by the
// TaskManager and mutated only through its update API.
type Task struct {
	ID                 string          `json:"task_id"`
	Owner              string          `json:"owner"`
	Status             TaskStatus      `json:"status"`
	ProgressPercentage float64         `json:"progress_percentage"`
	CurrentStage       string          `json:"current_stage"`
	TotalSteps         int             `json:"total_steps"`
	CompletedSteps     int             `json:"completed_steps"`
	ErrorMessage       string          `json:"error_message,omitempty"`
	Result             *StructuredData `json:"result,omitempty"`
	CancelRequested    bool            `json:"cancel_requested"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	StartedAt          *time.Time      `json:"started_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`

	// Durable is false when the task was read from the in-process
	// fallback store; a process restart loses it.
	Durable bool `json:"durable"`
}

// EstimatedDuration projects the remaining seconds of work from the
// progress so far. Returns 0 when no estimate is possible.
func (t *Task) EstimatedDuration() int {
	if t.StartedAt == nil || t.ProgressPercentage <= 0 || t.Status.Terminal() {
		return 0
	}
	elapsed := time.Since(*t.StartedAt).Seconds()
	remaining := elapsed * (100 - t.ProgressPercentage) / t.ProgressPercentage
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}

// ChunkStatus describes the outcome of a single chunk.
type ChunkStatus string

const (
	ChunkPending   ChunkStatus = "pending"
	ChunkSucceeded ChunkStatus = "succeeded"
	ChunkFailed    ChunkStatus = "failed"
	// ChunkSkipped marks chunks filtered out by the quality threshold
	// before inference.
	ChunkSkipped ChunkStatus = "skipped"
)

// DocumentChunk is a bounded, overlapping slice of a document's
// extracted text: the unit of inference work. Chunks are immutable once
// created and never outlive the job that created them.
type DocumentChunk struct {
	ID           int
	SourceRange  string
	Content      string
	WordCount    int
	QualityScore float64
}

// ChunkResult pairs a chunk with the outcome of its inference call.
// Exactly one of Fragment and Err is set for succeeded/failed chunks;
// skipped chunks carry neither.
type ChunkResult struct {
	ChunkID  int
	Status   ChunkStatus
	Fragment *StructuredData
	Err      error
}

// PricingItem is a single pricing line item as extracted by inference.
// Quantities and prices stay strings: the model's output is preserved
// verbatim and parsed only when totals are summed.
type PricingItem struct {
	Item       string `json:"item"`
	Quantity   string `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	TotalPrice string `json:"total_price"`
}

// Key returns the normalized composite identity used for
// deduplication: item name (case-insensitive, trimmed), quantity and
// unit price.
func (p PricingItem) Key() string {
	return strings.ToLower(strings.TrimSpace(p.Item)) + "\x00" +
		strings.TrimSpace(p.Quantity) + "\x00" +
		strings.TrimSpace(p.UnitPrice)
}

// Total parses the line item's total price. Currency symbols, grouping
// commas and surrounding noise are tolerated; unparseable totals count
// as zero.
func (p PricingItem) Total() float64 {
	s := strings.TrimSpace(p.TotalPrice)
	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// StructuredData is the canonical structured vendor record: either one
// chunk's extracted fragment or the final aggregate over all chunks.
type StructuredData struct {
	VendorName         string        `json:"vendor_name"`
	DocumentType       string        `json:"document_type"`
	Pricing            []PricingItem `json:"pricing"`
	ProductsOrServices []string      `json:"products_or_services"`
	DeliveryTerms      string        `json:"delivery_terms"`
	PaymentTerms       string        `json:"payment_terms"`
	SpecialClauses     string        `json:"special_clauses"`
	Notes              string        `json:"notes"`
	TotalPricing       float64       `json:"total_pricing"`
	ConfidenceScore    float32       `json:"confidence_score,omitempty"`
}

// Empty reports whether the record carries no extracted information.
func (d *StructuredData) Empty() bool {
	return d.VendorName == "" && d.DocumentType == "" &&
		len(d.Pricing) == 0 && len(d.ProductsOrServices) == 0 &&
		d.DeliveryTerms == "" && d.PaymentTerms == "" &&
		d.SpecialClauses == "" && d.Notes == ""
}

// ProcessingMetrics collects per-job counters. Written only by the
// orchestrator, read-only elsewhere.
type ProcessingMetrics struct {
	// DocumentFingerprint is the hex form of FingerprintContent over
	// the extracted text; identical uploads share it.
	DocumentFingerprint string `json:"document_fingerprint"`

	ChunksCreated    int           `json:"chunks_created"`
	ChunksSucceeded  int           `json:"chunks_succeeded"`
	ChunksFailed     int           `json:"chunks_failed"`
	ChunksSkipped    int           `json:"chunks_skipped"`
	PricingConflicts int           `json:"pricing_conflicts"`
	PeakMemoryMB     float64       `json:"peak_memory_mb"`
	Elapsed          time.Duration `json:"elapsed"`
}

// FingerprintContent generates a deterministic 64-bit fingerprint from
// text content using BLAKE2b hashing. Identical content produces
// identical fingerprints, which is used for chunk and document
// identity.
func FingerprintContent(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}
