// Package pipeline composes extraction, chunking, inference and
// aggregation into one document-processing flow. The orchestrator is
// the only component that moves tasks into a terminal state.
package pipeline
