package models

// OutcomeStatus tags the result of a per-item operation.
type OutcomeStatus int

const (
	OutcomeOK OutcomeStatus = iota
	OutcomeSkipped
	OutcomeFailed
)

// String returns the status name.
func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "ok"
	}
}

// Outcome is either a value, a skip with a reason, or a failure with a reason and cause.
type Outcome[T any] struct {
	Status OutcomeStatus
	Value  T
	Reason string
	Err    error
}

// Ok wraps a successful value.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Status: OutcomeOK, Value: v}
}

// Skipped records an input that was not processed.
func Skipped[T any](reason string) Outcome[T] {
	return Outcome[T]{Status: OutcomeSkipped, Reason: reason}
}

// Failed records a collaborator failure.
func Failed[T any](reason string, err error) Outcome[T] {
	return Outcome[T]{Status: OutcomeFailed, Reason: reason, Err: err}
}

// IsOK reports whether the outcome carries a value.
func (o Outcome[T]) IsOK() bool {
	return o.Status == OutcomeOK
}
