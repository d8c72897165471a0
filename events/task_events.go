package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// TaskEnqueuedEvent is emitted when a new task is accepted.
type TaskEnqueuedEvent struct {
	TaskID      int64     `json:"task_id"`
	SubmitterID string    `json:"submitter_id"`
	Target      string    `json:"target"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskEnqueuedV1 is the typed event definition for task enqueue.
// Subject: events.task.v1.task-enqueued
var TaskEnqueuedV1 = helper.EventDefinition[TaskEnqueuedEvent](
	"task", "TaskEnqueued", "v1",
)

// TaskClaimedEvent is emitted when the consumer claims a task.
type TaskClaimedEvent struct {
	TaskID    int64     `json:"task_id"`
	Target    string    `json:"target"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// TaskClaimedV1 is the typed event definition for task claims.
// Subject: events.task.v1.task-claimed
var TaskClaimedV1 = helper.EventDefinition[TaskClaimedEvent](
	"task", "TaskClaimed", "v1",
)

// TaskCompletedEvent is emitted when a task is marked done.
type TaskCompletedEvent struct {
	TaskID      int64     `json:"task_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// TaskCompletedV1 is the typed event definition for task completion.
// Subject: events.task.v1.task-completed
var TaskCompletedV1 = helper.EventDefinition[TaskCompletedEvent](
	"task", "TaskCompleted", "v1",
)

// TasksRequeuedEvent is emitted after a sweep returned expired leases to the queue.
type TasksRequeuedEvent struct {
	RunID     string    `json:"run_id"`
	TaskIDs   []int64   `json:"task_ids"`
	FailedIDs []int64   `json:"failed_ids,omitempty"`
	SweptAt   time.Time `json:"swept_at"`
}

// TasksRequeuedV1 is the typed event definition for lease sweeps.
// Subject: events.sweeper.v1.tasks-requeued
var TasksRequeuedV1 = helper.EventDefinition[TasksRequeuedEvent](
	"sweeper", "TasksRequeued", "v1",
)
