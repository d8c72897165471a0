// Package task holds the notification task entity and its lifecycle rules.
package task

import "time"

// Status is the lifecycle state of a task. The numeric values are the ones
// stored in the notification_status column.
type Status int

const (
	StatusPending    Status = 0
	StatusInProgress Status = 1
	StatusDone       Status = 2
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in_progress"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusInProgress || s == StatusDone
}

// Task is a single notification work item.
// Column names follow the phone_tasks schema so existing databases keep working.
type Task struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SubmitterID string    `gorm:"column:user_id;not null;index:idx_phone_tasks_dedup,priority:1" json:"submitter_id"`
	Target      string    `gorm:"column:phone_number;not null;index:idx_phone_tasks_dedup,priority:2" json:"target"`
	Content     string    `gorm:"column:notification_content;not null" json:"content"`
	Status      Status    `gorm:"column:notification_status;not null;default:0;index:idx_phone_tasks_queue,priority:1" json:"status"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime:false;index:idx_phone_tasks_queue,priority:2" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
}

// TableName returns the table name for Task.
func (Task) TableName() string {
	return "phone_tasks"
}
