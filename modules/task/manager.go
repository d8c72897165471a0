package task

import (
	"context"
	"sync"
	"time"

	domain "github.com/example/callme-dispatch/domain/task"
	"github.com/go-monolith/mono/pkg/types"
)

// DefaultRateLimitWindow is how long an identical pending task blocks resubmission.
const DefaultRateLimitWindow = 10 * time.Minute

// MembershipOracle answers whether a submitter may enqueue.
type MembershipOracle interface {
	IsMember(ctx context.Context, submitterID string) (bool, error)
}

// Manager runs the task lifecycle: enqueue, claim and complete.
// It holds no task state; every call goes to the store.
type Manager struct {
	store      domain.Store
	membership MembershipOracle
	window     time.Duration
	logger     types.Logger

	// enqueueMu makes the duplicate check and the insert one step.
	enqueueMu sync.Mutex
}

// NewManager creates a lifecycle manager. A zero window uses DefaultRateLimitWindow.
func NewManager(store domain.Store, membership MembershipOracle, window time.Duration, logger types.Logger) *Manager {
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	return &Manager{
		store:      store,
		membership: membership,
		window:     window,
		logger:     logger,
	}
}

// Window returns the rate-limit window.
func (m *Manager) Window() time.Duration {
	return m.window
}

// Enqueue validates, authorizes and rate-limits a request, then stores it as pending.
func (m *Manager) Enqueue(ctx context.Context, submitterID, target, content string) (*domain.Task, error) {
	if err := domain.Validate(submitterID, target, content); err != nil {
		return nil, err
	}

	if !m.isMember(ctx, submitterID) {
		return nil, domain.ErrNotAuthorized
	}

	m.enqueueMu.Lock()
	defer m.enqueueMu.Unlock()

	dup, err := m.store.HasRecentDuplicate(ctx, submitterID, target, content, m.window)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, domain.ErrRateLimited
	}

	t := &domain.Task{
		SubmitterID: submitterID,
		Target:      target,
		Content:     content,
	}
	if _, err := m.store.Insert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// isMember fails closed: a missing oracle or a lookup error means not a member.
func (m *Manager) isMember(ctx context.Context, submitterID string) bool {
	if m.membership == nil {
		m.logger.Warn("Membership oracle not configured, rejecting enqueue", "submitter_id", submitterID)
		return false
	}
	ok, err := m.membership.IsMember(ctx, submitterID)
	if err != nil {
		m.logger.Warn("Membership check failed, rejecting enqueue",
			"submitter_id", submitterID, "error", err)
		return false
	}
	return ok
}

// Claim hands out the oldest pending task.
func (m *Manager) Claim(ctx context.Context) (*domain.Task, error) {
	return m.store.ClaimOldestPending(ctx)
}

// Complete marks a task done regardless of its current status.
func (m *Manager) Complete(ctx context.Context, taskID int64) error {
	return m.store.SetStatus(ctx, taskID, domain.StatusDone)
}

// Stats returns task counts per status.
func (m *Manager) Stats(ctx context.Context) (map[domain.Status]int64, error) {
	return m.store.CountByStatus(ctx)
}
