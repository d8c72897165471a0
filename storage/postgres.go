package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/callme-dispatch/domain/member"
	"github.com/example/callme-dispatch/domain/task"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS phone_tasks (
	id                   BIGSERIAL PRIMARY KEY,
	user_id              TEXT        NOT NULL,
	phone_number         TEXT        NOT NULL,
	notification_content TEXT        NOT NULL,
	notification_status  SMALLINT    NOT NULL DEFAULT 0,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_phone_tasks_queue ON phone_tasks (notification_status, created_at);
CREATE INDEX IF NOT EXISTS idx_phone_tasks_dedup ON phone_tasks (user_id, phone_number);
CREATE TABLE IF NOT EXISTS whitelist_users (
	user_id    TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const taskColumns = "id, user_id, phone_number, notification_content, notification_status, created_at, updated_at"

// OpenPostgres connects a pgx pool and creates the schema if missing.
func OpenPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return pool, nil
}

// NewPostgresBackend wraps an open pgx pool.
func NewPostgresBackend(pool *pgxpool.Pool, clock task.Clock) *Backend {
	return &Backend{
		Tasks:   NewPostgresTaskRepository(pool, clock),
		Members: NewPostgresMemberRepository(pool, clock),
		driver:  DriverPostgres,
		ping:    pool.Ping,
		close: func() error {
			pool.Close()
			return nil
		},
	}
}

// PostgresTaskRepository is the pgx implementation of task.Store.
type PostgresTaskRepository struct {
	pool *pgxpool.Pool
	now  task.Clock
}

var _ task.Store = (*PostgresTaskRepository)(nil)

// NewPostgresTaskRepository creates a task repository on pool.
func NewPostgresTaskRepository(pool *pgxpool.Pool, clock task.Clock) *PostgresTaskRepository {
	return &PostgresTaskRepository{pool: pool, now: utcClock(clock)}
}

// Insert saves a new pending task.
func (r *PostgresTaskRepository) Insert(ctx context.Context, t *task.Task) (int64, error) {
	now := r.now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO phone_tasks (user_id, phone_number, notification_content, notification_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING id`,
		t.SubmitterID, t.Target, t.Content, int16(task.StatusPending), now,
	).Scan(&t.ID)
	if err != nil {
		return 0, persistErr("insert task", err)
	}
	t.Status = task.StatusPending
	t.CreatedAt = now
	t.UpdatedAt = now
	return t.ID, nil
}

// ClaimOldestPending locks the oldest pending row with SKIP LOCKED and flips
// it to in-progress in the same statement.
func (r *PostgresTaskRepository) ClaimOldestPending(ctx context.Context) (*task.Task, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin claim", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`UPDATE phone_tasks SET notification_status = $1, updated_at = $2
		 WHERE id = (
			SELECT id FROM phone_tasks
			WHERE notification_status = $3
			ORDER BY created_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+taskColumns,
		int16(task.StatusInProgress), r.now(), int16(task.StatusPending),
	)
	claimed, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, task.ErrNoPendingTask
	}
	if err != nil {
		return nil, persistErr("claim task", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit claim", err)
	}
	return &claimed, nil
}

// SetStatus overwrites the status of a task and refreshes updated_at.
func (r *PostgresTaskRepository) SetStatus(ctx context.Context, id int64, status task.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE phone_tasks SET notification_status = $1, updated_at = $2 WHERE id = $3`,
		int16(status), r.now(), id,
	)
	if err != nil {
		return persistErr("update task status", err)
	}
	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}
	return nil
}

// TransitionStatus moves a task from one status to another if it is still in from.
func (r *PostgresTaskRepository) TransitionStatus(ctx context.Context, id int64, from, to task.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE phone_tasks SET notification_status = $1, updated_at = $2
		 WHERE id = $3 AND notification_status = $4`,
		int16(to), r.now(), id, int16(from),
	)
	if err != nil {
		return persistErr("transition task status", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM phone_tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return persistErr("look up task", err)
	}
	if !exists {
		return task.ErrNotFound
	}
	return task.ErrStatusConflict
}

// FindExpiredLeases returns in-progress tasks whose updated_at is older than lease.
func (r *PostgresTaskRepository) FindExpiredLeases(ctx context.Context, lease time.Duration) ([]task.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM phone_tasks
		 WHERE notification_status = $1 AND updated_at < $2
		 ORDER BY updated_at ASC, id ASC`,
		int16(task.StatusInProgress), r.now().Add(-lease),
	)
	if err != nil {
		return nil, persistErr("find expired leases", err)
	}

	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (task.Task, error) {
		return scanTask(row)
	})
	if err != nil {
		return nil, persistErr("scan expired leases", err)
	}
	return tasks, nil
}

// HasRecentDuplicate reports whether an identical pending task was created within window.
func (r *PostgresTaskRepository) HasRecentDuplicate(ctx context.Context, submitterID, target, content string, window time.Duration) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM phone_tasks
			WHERE user_id = $1 AND phone_number = $2 AND notification_content = $3
			  AND notification_status = $4 AND created_at > $5
		 )`,
		submitterID, target, content, int16(task.StatusPending), r.now().Add(-window),
	).Scan(&exists)
	if err != nil {
		return false, persistErr("query recent duplicates", err)
	}
	return exists, nil
}

// CountByStatus returns the number of tasks per status. Every status is present.
func (r *PostgresTaskRepository) CountByStatus(ctx context.Context) (map[task.Status]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT notification_status, COUNT(*) FROM phone_tasks GROUP BY notification_status`)
	if err != nil {
		return nil, persistErr("count tasks", err)
	}
	defer rows.Close()

	counts := map[task.Status]int64{
		task.StatusPending:    0,
		task.StatusInProgress: 0,
		task.StatusDone:       0,
	}
	for rows.Next() {
		var status int16
		var total int64
		if err := rows.Scan(&status, &total); err != nil {
			return nil, persistErr("scan task counts", err)
		}
		counts[task.Status(status)] = total
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("count tasks", err)
	}
	return counts, nil
}

// scanTask reads one phone_tasks row selected with taskColumns.
func scanTask(row pgx.Row) (task.Task, error) {
	var t task.Task
	var status int16
	err := row.Scan(&t.ID, &t.SubmitterID, &t.Target, &t.Content, &status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return task.Task{}, err
	}
	t.Status = task.Status(status)
	return t, nil
}

// PostgresMemberRepository is the pgx implementation of member.Repository.
type PostgresMemberRepository struct {
	pool *pgxpool.Pool
	now  task.Clock
}

var _ member.Repository = (*PostgresMemberRepository)(nil)

// NewPostgresMemberRepository creates an allow-list repository on pool.
func NewPostgresMemberRepository(pool *pgxpool.Pool, clock task.Clock) *PostgresMemberRepository {
	return &PostgresMemberRepository{pool: pool, now: utcClock(clock)}
}

// Exists reports whether userID is on the allow-list.
func (r *PostgresMemberRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM whitelist_users WHERE user_id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, persistErr("look up member", err)
	}
	return exists, nil
}

// Add inserts userID. Adding an existing member is a no-op.
func (r *PostgresMemberRepository) Add(ctx context.Context, userID string) error {
	if userID == "" {
		return member.ErrInvalidID
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO whitelist_users (user_id, created_at) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`,
		userID, r.now(),
	)
	if err != nil {
		return persistErr("add member", err)
	}
	return nil
}

// Remove deletes userID and reports whether it was present.
func (r *PostgresMemberRepository) Remove(ctx context.Context, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM whitelist_users WHERE user_id = $1`, userID)
	if err != nil {
		return false, persistErr("remove member", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List returns all members ordered by id.
func (r *PostgresMemberRepository) List(ctx context.Context) ([]member.Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, created_at FROM whitelist_users ORDER BY user_id ASC`)
	if err != nil {
		return nil, persistErr("list members", err)
	}
	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (member.Member, error) {
		var m member.Member
		err := row.Scan(&m.UserID, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, persistErr("scan members", err)
	}
	return members, nil
}
