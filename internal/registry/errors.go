package registry

// NonRetryableError wraps a handler failure that must not consume the
// node's remaining retry attempts: the scheduler fails the node
// immediately regardless of attemptsRemaining. Grounded on the
// teacher's queue.RetryPolicy.RetryOnError predicate
// (internal/scheduler/queue/task.go), generalized from a policy-level
// function into a per-error marker a handler can return directly.
type NonRetryableError struct {
	Cause error
}

// NonRetryable marks cause so the scheduler skips remaining attempts.
func NonRetryable(cause error) error {
	return &NonRetryableError{Cause: cause}
}

func (e *NonRetryableError) Error() string { return e.Cause.Error() }

func (e *NonRetryableError) Unwrap() error { return e.Cause }
