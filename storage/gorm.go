package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/callme-dispatch/domain/member"
	"github.com/example/callme-dispatch/domain/task"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// maxClaimAttempts bounds the compare-and-swap retries of a single claim.
const maxClaimAttempts = 5

// OpenSQLite opens the SQLite database at path and runs migrations.
func OpenSQLite(path string, debug bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite has a single writer. One connection serializes transactions
	// and keeps a ":memory:" database on one handle.
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the phone_tasks and whitelist_users tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&task.Task{}, &member.Member{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// TaskRepository is the GORM implementation of task.Store.
type TaskRepository struct {
	db  *gorm.DB
	now task.Clock
}

var _ task.Store = (*TaskRepository)(nil)

// NewTaskRepository creates a task repository. A nil clock uses the wall clock.
func NewTaskRepository(db *gorm.DB, clock task.Clock) *TaskRepository {
	return &TaskRepository{db: db, now: utcClock(clock)}
}

// Insert saves a new pending task.
func (r *TaskRepository) Insert(ctx context.Context, t *task.Task) (int64, error) {
	now := r.now()
	t.Status = task.StatusPending
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return 0, persistErr("insert task", err)
	}
	return t.ID, nil
}

// ClaimOldestPending selects the oldest pending task and flips it to
// in-progress inside one transaction. The update is conditional on the row
// still being pending, so two claimants can never both win the same task.
func (r *TaskRepository) ClaimOldestPending(ctx context.Context) (*task.Task, error) {
	var claimed task.Task

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for attempt := 0; attempt < maxClaimAttempts; attempt++ {
			var candidate task.Task
			err := tx.Where("notification_status = ?", task.StatusPending).
				Order("created_at ASC, id ASC").
				Take(&candidate).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return task.ErrNoPendingTask
			}
			if err != nil {
				return err
			}

			now := r.now()
			result := tx.Model(&task.Task{}).
				Where("id = ? AND notification_status = ?", candidate.ID, task.StatusPending).
				Updates(map[string]any{
					"notification_status": task.StatusInProgress,
					"updated_at":          now,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 1 {
				candidate.Status = task.StatusInProgress
				candidate.UpdatedAt = now
				claimed = candidate
				return nil
			}
		}
		return errors.New("claim contention: retries exhausted")
	})
	if errors.Is(err, task.ErrNoPendingTask) {
		return nil, err
	}
	if err != nil {
		return nil, persistErr("claim task", err)
	}
	return &claimed, nil
}

// SetStatus overwrites the status of a task and refreshes updated_at.
func (r *TaskRepository) SetStatus(ctx context.Context, id int64, status task.Status) error {
	result := r.db.WithContext(ctx).Model(&task.Task{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"notification_status": status,
			"updated_at":          r.now(),
		})
	if err := result.Error; err != nil {
		return persistErr("update task status", err)
	}
	if result.RowsAffected == 0 {
		return task.ErrNotFound
	}
	return nil
}

// TransitionStatus moves a task from one status to another if it is still in from.
func (r *TaskRepository) TransitionStatus(ctx context.Context, id int64, from, to task.Status) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&task.Task{}).
			Where("id = ? AND notification_status = ?", id, from).
			Updates(map[string]any{
				"notification_status": to,
				"updated_at":          r.now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 1 {
			return nil
		}

		var count int64
		if err := tx.Model(&task.Task{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return task.ErrNotFound
		}
		return task.ErrStatusConflict
	})
	if err == nil || errors.Is(err, task.ErrNotFound) || errors.Is(err, task.ErrStatusConflict) {
		return err
	}
	return persistErr("transition task status", err)
}

// FindExpiredLeases returns in-progress tasks whose updated_at is older than lease.
func (r *TaskRepository) FindExpiredLeases(ctx context.Context, lease time.Duration) ([]task.Task, error) {
	cutoff := r.now().Add(-lease)

	var tasks []task.Task
	err := r.db.WithContext(ctx).
		Where("notification_status = ? AND updated_at < ?", task.StatusInProgress, cutoff).
		Order("updated_at ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, persistErr("find expired leases", err)
	}
	return tasks, nil
}

// HasRecentDuplicate reports whether an identical pending task was created within window.
func (r *TaskRepository) HasRecentDuplicate(ctx context.Context, submitterID, target, content string, window time.Duration) (bool, error) {
	since := r.now().Add(-window)

	var count int64
	err := r.db.WithContext(ctx).Model(&task.Task{}).
		Where("user_id = ? AND phone_number = ? AND notification_content = ?", submitterID, target, content).
		Where("notification_status = ? AND created_at > ?", task.StatusPending, since).
		Count(&count).Error
	if err != nil {
		return false, persistErr("query recent duplicates", err)
	}
	return count > 0, nil
}

// CountByStatus returns the number of tasks per status. Every status is present.
func (r *TaskRepository) CountByStatus(ctx context.Context) (map[task.Status]int64, error) {
	var rows []struct {
		Status task.Status
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&task.Task{}).
		Select("notification_status AS status, COUNT(*) AS total").
		Group("notification_status").
		Scan(&rows).Error
	if err != nil {
		return nil, persistErr("count tasks", err)
	}

	counts := map[task.Status]int64{
		task.StatusPending:    0,
		task.StatusInProgress: 0,
		task.StatusDone:       0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// MemberRepository is the GORM implementation of member.Repository.
type MemberRepository struct {
	db  *gorm.DB
	now task.Clock
}

var _ member.Repository = (*MemberRepository)(nil)

// NewMemberRepository creates an allow-list repository.
func NewMemberRepository(db *gorm.DB, clock task.Clock) *MemberRepository {
	return &MemberRepository{db: db, now: utcClock(clock)}
}

// Exists reports whether userID is on the allow-list.
func (r *MemberRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&member.Member{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return false, persistErr("look up member", err)
	}
	return count > 0, nil
}

// Add inserts userID. Adding an existing member is a no-op.
func (r *MemberRepository) Add(ctx context.Context, userID string) error {
	if userID == "" {
		return member.ErrInvalidID
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member.Member{UserID: userID, CreatedAt: r.now()}).Error
	if err != nil {
		return persistErr("add member", err)
	}
	return nil
}

// Remove deletes userID and reports whether it was present.
func (r *MemberRepository) Remove(ctx context.Context, userID string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&member.Member{}, "user_id = ?", userID)
	if err := result.Error; err != nil {
		return false, persistErr("remove member", err)
	}
	return result.RowsAffected > 0, nil
}

// List returns all members ordered by id.
func (r *MemberRepository) List(ctx context.Context) ([]member.Member, error) {
	var members []member.Member
	if err := r.db.WithContext(ctx).Order("user_id ASC").Find(&members).Error; err != nil {
		return nil, persistErr("list members", err)
	}
	return members, nil
}
