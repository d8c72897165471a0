package api

// EnqueueRequest is the body of POST /api/v1/tasks/enqueue.
type EnqueueRequest struct {
	SubmitterID string `json:"submitter_id"`
	Target      string `json:"target"`
	Content     string `json:"content"`
}

// EnqueueResponse is the reply of POST /api/v1/tasks/enqueue.
type EnqueueResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	TaskID  int64  `json:"task_id,omitempty"`
}

// TaskDTO is a claimed task.
type TaskDTO struct {
	ID          int64  `json:"id"`
	SubmitterID string `json:"submitter_id"`
	Target      string `json:"target"`
	Content     string `json:"content"`
}

// ClaimResponse is the reply of GET /api/v1/tasks/claim.
type ClaimResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Task    *TaskDTO `json:"task,omitempty"`
}

// CompleteRequest is the body of POST /api/v1/tasks/complete.
type CompleteRequest struct {
	TaskID int64 `json:"task_id"`
}

// CompleteResponse is the reply of POST /api/v1/tasks/complete.
type CompleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Legacy agent contract, kept field for field.

// AddPhoneTaskRequest is the body of POST /addPhoneTask.
type AddPhoneTaskRequest struct {
	UserID              string `json:"user_id"`
	PhoneNumber         string `json:"phone_number"`
	NotificationContent string `json:"notification_content"`
}

// AddPhoneTaskResponse is the reply of POST /addPhoneTask.
type AddPhoneTaskResponse struct {
	Success bool    `json:"success"`
	Msg     string  `json:"msg"`
	TaskID  *string `json:"task_id"`
}

// PhoneTask is a claimed task in the legacy shape.
type PhoneTask struct {
	ID                  int64  `json:"id"`
	UserID              string `json:"user_id"`
	PhoneNumber         string `json:"phone_number"`
	NotificationContent string `json:"notification_content"`
}

// GetPhoneTaskResponse is the reply of GET /getPhoneTask.
type GetPhoneTaskResponse struct {
	Success bool       `json:"success"`
	Msg     string     `json:"msg"`
	Task    *PhoneTask `json:"task"`
}

// FinishPhoneTaskRequest is the body of POST /finishPhoneTask.
type FinishPhoneTaskRequest struct {
	TaskID int64 `json:"task_id"`
}

// FinishPhoneTaskResponse is the reply of POST /finishPhoneTask.
type FinishPhoneTaskResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}
