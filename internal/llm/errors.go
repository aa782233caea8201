package llm

import "errors"

// GenerationError wraps an upstream generation failure. Transient failures
// (rate limits, server errors, timeouts) may be retried once; permanent
// failures (auth, malformed request) never are.
type GenerationError struct {
	Err       error
	Transient bool
}

func (e *GenerationError) Error() string {
	return "generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a transient generation failure.
func IsTransient(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Transient
}
