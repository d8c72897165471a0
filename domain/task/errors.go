package task

import (
	"errors"
	"fmt"
)

// Sentinel errors for task lifecycle operations.
var (
	// ErrInvalidInput is returned when an enqueue request is malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotAuthorized is returned when the submitter is not on the allow-list.
	ErrNotAuthorized = errors.New("submitter not authorized")

	// ErrRateLimited is returned when an identical pending task was submitted recently.
	ErrRateLimited = errors.New("duplicate task within rate limit window")

	// ErrNoPendingTask is returned by a claim when the queue is empty.
	ErrNoPendingTask = errors.New("no pending task")

	// ErrNotFound is returned when the task id does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrPersistence wraps storage failures.
	ErrPersistence = errors.New("persistence error")

	// ErrStatusConflict is returned by a guarded transition when the task
	// is no longer in the expected state.
	ErrStatusConflict = errors.New("task status changed concurrently")
)

// Validation failures. Each one also matches ErrInvalidInput.
var (
	ErrEmptyField      = fmt.Errorf("%w: submitter_id, target and content are required", ErrInvalidInput)
	ErrMalformedTarget = fmt.Errorf("%w: target must be exactly %d characters", ErrInvalidInput, TargetLength)
	ErrContentLength   = fmt.Errorf("%w: content must be between %d and %d characters", ErrInvalidInput, MinContentLength, MaxContentLength)
)

// Code returns a stable machine-readable code for err, or "" for nil.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrNoPendingTask):
		return "no_pending_task"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "persistence_error"
	}
}
