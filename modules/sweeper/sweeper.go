package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "github.com/example/callme-dispatch/domain/task"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Defaults for the lease sweeper.
const (
	DefaultInterval     = 30 * time.Second
	DefaultLeaseTimeout = 5 * time.Minute
	DefaultConcurrency  = 4
)

// Config tunes the sweeper.
type Config struct {
	Interval     time.Duration
	LeaseTimeout time.Duration
	Concurrency  int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.LeaseTimeout <= 0 {
		c.LeaseTimeout = DefaultLeaseTimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	RunID    string    `json:"run_id"`
	Requeued []int64   `json:"requeued"`
	Skipped  []int64   `json:"skipped,omitempty"`
	Failed   []int64   `json:"failed,omitempty"`
	SweptAt  time.Time `json:"swept_at"`
}

// Sweeper returns tasks whose lease expired to the pending queue.
type Sweeper struct {
	store  domain.Store
	cfg    Config
	logger types.Logger
}

// New creates a Sweeper over store. Zero config fields take the defaults.
func New(store domain.Store, cfg Config, logger types.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// Config returns the effective configuration.
func (s *Sweeper) Config() Config {
	return s.cfg
}

// SweepOnce finds every expired lease and moves it back to pending.
//
// Requeues run in parallel up to the configured concurrency. Each one is a
// guarded in_progress -> pending transition, so a task completed after the
// scan is left alone and reported as skipped. Per-task failures are logged
// and collected; only a failed scan returns an error.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	result := SweepResult{
		RunID:   uuid.New().String(),
		SweptAt: time.Now().UTC(),
	}

	expired, err := s.store.FindExpiredLeases(ctx, s.cfg.LeaseTimeout)
	if err != nil {
		return result, fmt.Errorf("failed to scan expired leases: %w", err)
	}
	if len(expired) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, t := range expired {
		id := t.ID
		g.Go(func() error {
			err := s.store.TransitionStatus(gctx, id, domain.StatusInProgress, domain.StatusPending)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Requeued = append(result.Requeued, id)
			case errors.Is(err, domain.ErrStatusConflict), errors.Is(err, domain.ErrNotFound):
				result.Skipped = append(result.Skipped, id)
			default:
				s.logger.Error("Failed to requeue task", "run_id", result.RunID, "task_id", id, "error", err)
				result.Failed = append(result.Failed, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	sortIDs(result.Requeued)
	sortIDs(result.Skipped)
	sortIDs(result.Failed)
	return result, nil
}

// Run sweeps once immediately and then on every interval until ctx is done.
// report is called after each successful sweep; it may be nil.
func (s *Sweeper) Run(ctx context.Context, report func(SweepResult)) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		res, err := s.SweepOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("Lease sweep failed", "run_id", res.RunID, "error", err)
		} else if report != nil {
			report(res)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
