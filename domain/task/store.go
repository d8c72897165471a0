package task

import (
	"context"
	"time"
)

// Store is the transactional task table.
// Implementations must make ClaimOldestPending atomic across concurrent callers.
type Store interface {
	// Insert appends a new task and returns its id.
	Insert(ctx context.Context, t *Task) (int64, error)

	// ClaimOldestPending moves the oldest pending task to in-progress and
	// returns it. It returns ErrNoPendingTask when nothing is pending.
	ClaimOldestPending(ctx context.Context) (*Task, error)

	// SetStatus overwrites the status and refreshes updated_at.
	// It returns ErrNotFound for an unknown id.
	SetStatus(ctx context.Context, id int64, status Status) error

	// TransitionStatus moves a task from one status to another only if it is
	// still in the from status. It returns ErrNotFound for an unknown id and
	// ErrStatusConflict when the current status differs.
	TransitionStatus(ctx context.Context, id int64, from, to Status) error

	// FindExpiredLeases returns in-progress tasks not updated within lease.
	FindExpiredLeases(ctx context.Context, lease time.Duration) ([]Task, error)

	// HasRecentDuplicate reports whether a pending task with the same
	// submitter, target and content was created within window.
	HasRecentDuplicate(ctx context.Context, submitterID, target, content string, window time.Duration) (bool, error)

	// CountByStatus returns the number of tasks in each status.
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}

// Clock returns the current time. Stores take one so tests can move time.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}
