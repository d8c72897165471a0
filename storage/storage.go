// Package storage provides the transactional task table and the allow-list
// table on SQLite (through GORM) or PostgreSQL (through pgx).
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/example/callme-dispatch/domain/member"
	"github.com/example/callme-dispatch/domain/task"
	"gorm.io/gorm"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and configures the storage backend.
type Config struct {
	Driver string
	// Path is the SQLite database file.
	Path string
	// URL is the PostgreSQL connection string.
	URL string
	// Debug enables SQL logging for the GORM backend.
	Debug bool
	// Clock overrides the time source; nil means task.SystemClock.
	Clock task.Clock
}

// Backend bundles the stores that share one database handle.
type Backend struct {
	Tasks   task.Store
	Members member.Repository

	driver string
	ping   func(ctx context.Context) error
	close  func() error
}

// Open connects to the configured database and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		db, err := OpenSQLite(cfg.Path, cfg.Debug)
		if err != nil {
			return nil, err
		}
		return NewGormBackend(db, cfg.Clock), nil
	case DriverPostgres:
		pool, err := OpenPostgres(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return NewPostgresBackend(pool, cfg.Clock), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// NewGormBackend wraps an open GORM handle.
func NewGormBackend(db *gorm.DB, clock task.Clock) *Backend {
	return &Backend{
		Tasks:   NewTaskRepository(db, clock),
		Members: NewMemberRepository(db, clock),
		driver:  DriverSQLite,
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("failed to get sql.DB: %w", err)
			}
			return sqlDB.PingContext(ctx)
		},
		close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("failed to get sql.DB: %w", err)
			}
			return sqlDB.Close()
		},
	}
}

// Driver returns the backend driver name.
func (b *Backend) Driver() string {
	return b.driver
}

// Ping checks database connectivity.
func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

// Close releases the database handle.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// persistErr wraps a driver error so it matches task.ErrPersistence.
func persistErr(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, task.ErrPersistence, err)
}

// utcClock normalizes a clock to UTC so stored timestamps compare in order.
func utcClock(clock task.Clock) task.Clock {
	if clock == nil {
		clock = task.SystemClock
	}
	return func() time.Time { return clock().UTC() }
}
