package task

import "context"

// Service names exposed by the task module.
const (
	ServiceEnqueue  = "enqueue"
	ServiceClaim    = "claim"
	ServiceComplete = "complete"
	ServiceStats    = "stats"
)

// EnqueueRequest is the request for enqueuing a notification task.
type EnqueueRequest struct {
	SubmitterID string `json:"submitter_id"`
	Target      string `json:"target"`
	Content     string `json:"content"`
}

// EnqueueResponse is the response for enqueuing a notification task.
type EnqueueResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	TaskID  int64  `json:"task_id,omitempty"`
}

// ClaimRequest is the request for claiming the next task.
type ClaimRequest struct{}

// TaskPayload is the wire shape of a claimed task.
type TaskPayload struct {
	ID          int64  `json:"id"`
	SubmitterID string `json:"submitter_id"`
	Target      string `json:"target"`
	Content     string `json:"content"`
}

// ClaimResponse is the response for claiming the next task.
type ClaimResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Code    string       `json:"code,omitempty"`
	Task    *TaskPayload `json:"task,omitempty"`
}

// CompleteRequest is the request for completing a task.
type CompleteRequest struct {
	TaskID int64 `json:"task_id"`
}

// CompleteResponse is the response for completing a task.
type CompleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// StatsRequest is the request for queue statistics.
type StatsRequest struct{}

// StatsResponse reports store health and task counts per status.
type StatsResponse struct {
	Healthy    bool   `json:"healthy"`
	Driver     string `json:"driver"`
	Pending    int64  `json:"pending"`
	InProgress int64  `json:"in_progress"`
	Done       int64  `json:"done"`
	Error      string `json:"error,omitempty"`
}

// TaskPort defines the interface for task operations (hexagonal port).
// Driving adapters such as the HTTP API use it to reach the lifecycle manager.
type TaskPort interface {
	Enqueue(ctx context.Context, req *EnqueueRequest) (*EnqueueResponse, error)
	Claim(ctx context.Context) (*ClaimResponse, error)
	Complete(ctx context.Context, taskID int64) (*CompleteResponse, error)
	Stats(ctx context.Context) (*StatsResponse, error)
}
