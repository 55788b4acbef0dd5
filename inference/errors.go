package inference

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when a retry budget is not
	// positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrCancelled is returned by Infer when cancellation was observed
	// at a wave boundary. Results resolved before the boundary are
	// still returned.
	ErrCancelled = errors.New("inference cancelled")

	// ErrExtractorRequired is returned when a client is built without
	// an extractor.
	ErrExtractorRequired = errors.New("fragment extractor required")
)

// permanentError marks an error as non-retryable: the chunk fails
// immediately instead of consuming its retry budget.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so retry logic fails immediately instead of
// backing off. Used for malformed input and permanent rejections.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked non-retryable.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
