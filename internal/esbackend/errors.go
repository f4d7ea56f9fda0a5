package esbackend

import (
	"context"
	"errors"
	"fmt"
)

// QueryError classifies a failed backend operation. Transient failures
// (connection refused, auth rejection, 5xx, malformed response) are safe to
// retry on the next poll tick; non-transient failures (cancellation) end the
// run.
type QueryError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("esbackend: %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable backend failure.
func IsTransient(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.Transient
}

// classify wraps err for op. Operator cancellation is the only failure that
// is not retryable; everything else the backend can throw at us is expected
// to clear up before the run deadline.
func classify(op string, err error) error {
	return &QueryError{
		Op:        op,
		Transient: !errors.Is(err, context.Canceled),
		Err:       err,
	}
}
