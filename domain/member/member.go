// Package member describes the allow-list of submitters who may enqueue tasks.
package member

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidID is returned when a member id is empty.
var ErrInvalidID = errors.New("member id is required")

// Member is an allow-listed submitter.
type Member struct {
	UserID    string    `gorm:"column:user_id;primaryKey" json:"user_id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName returns the table name for Member.
func (Member) TableName() string {
	return "whitelist_users"
}

// Repository stores allow-list membership.
type Repository interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Add(ctx context.Context, userID string) error
	Remove(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context) ([]Member, error)
}
