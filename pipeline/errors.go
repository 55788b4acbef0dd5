package pipeline

import "errors"

var (
	// ErrMissingDependency is returned when an orchestrator is built
	// without one of its required collaborators.
	ErrMissingDependency = errors.New("missing orchestrator dependency")

	// ErrExtraction wraps extractor failures. They surface as task
	// failures with a message; extraction is never retried.
	ErrExtraction = errors.New("document extraction failed")
)
