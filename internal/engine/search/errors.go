package search

import "fmt"

// QueryError reports a failed data-store round trip. The search that hit it has
// already returned an empty result; the caller may retry.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Retryable is always true: store failures are transient from the caller's view.
func (e *QueryError) Retryable() bool {
	return true
}
