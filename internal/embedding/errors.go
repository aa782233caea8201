package embedding

import (
	"errors"
	"fmt"
)

// TransientError marks an embedding failure as retriable (network errors,
// rate limits, upstream 5xx). Failures not wrapped in TransientError are
// permanent (malformed input, authentication) and are surfaced to the caller.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient embedding failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retriable embedding failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
