package sweeper

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	domain "github.com/example/callme-dispatch/domain/task"
	"github.com/example/callme-dispatch/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// SweeperModule runs the lease sweeper as a background worker.
type SweeperModule struct {
	sweeper  *Sweeper
	eventBus mono.EventBus
	logger   types.Logger

	cancel   context.CancelFunc
	doneChan chan struct{}
	stopOnce sync.Once

	mu        sync.RWMutex
	last      *SweepResult
	totalRuns int64
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*SweeperModule)(nil)
	_ mono.ServiceProviderModule = (*SweeperModule)(nil)
	_ mono.EventBusAwareModule   = (*SweeperModule)(nil)
	_ mono.EventEmitterModule    = (*SweeperModule)(nil)
	_ mono.HealthCheckableModule = (*SweeperModule)(nil)
)

// NewModule creates a SweeperModule over store.
func NewModule(store domain.Store, cfg Config, logger types.Logger) *SweeperModule {
	return &SweeperModule{
		sweeper: New(store, cfg, logger),
		logger:  logger,
	}
}

// Name returns the module name.
func (m *SweeperModule) Name() string {
	return "sweeper"
}

// SetEventBus receives the EventBus from the framework.
func (m *SweeperModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *SweeperModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TasksRequeuedV1.ToBase(),
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *SweeperModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceLastSweep, json.Unmarshal, json.Marshal, m.lastSweep,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceLastSweep, err)
	}
	return nil
}

// Start launches the sweep loop.
func (m *SweeperModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.doneChan = make(chan struct{})

	go func() {
		defer close(m.doneChan)
		m.sweeper.Run(ctx, m.record)
	}()

	cfg := m.sweeper.Config()
	m.logger.Info("Lease sweeper started",
		"interval", cfg.Interval.String(),
		"lease_timeout", cfg.LeaseTimeout.String(),
		"concurrency", cfg.Concurrency)
	return nil
}

// Stop cancels the sweep loop and waits for the current sweep to finish.
func (m *SweeperModule) Stop(ctx context.Context) error {
	if m.cancel == nil {
		return nil
	}

	m.logger.Info("Shutting down lease sweeper...")
	m.stopOnce.Do(m.cancel)

	select {
	case <-m.doneChan:
		m.logger.Info("Lease sweeper stopped gracefully")
	case <-ctx.Done():
		m.logger.Warn("Lease sweeper shutdown timeout exceeded")
		return ctx.Err()
	}
	return nil
}

// Health reports the latest sweep.
func (m *SweeperModule) Health(_ context.Context) mono.HealthStatus {
	resp := m.snapshot()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"total_runs":    resp.TotalRuns,
			"last_run_id":   resp.RunID,
			"last_requeued": resp.Requeued,
			"last_failed":   resp.Failed,
		},
	}
}

// SweepOnce runs one sweep synchronously and records it like a scheduled one.
func (m *SweeperModule) SweepOnce(ctx context.Context) (SweepResult, error) {
	res, err := m.sweeper.SweepOnce(ctx)
	if err != nil {
		return res, err
	}
	m.record(res)
	return res, nil
}

// record stores the result, logs the requeued ids and publishes TasksRequeued.
func (m *SweeperModule) record(res SweepResult) {
	m.mu.Lock()
	m.last = &res
	m.totalRuns++
	m.mu.Unlock()

	if len(res.Requeued) == 0 && len(res.Failed) == 0 {
		m.logger.Debug("Lease sweep found nothing to requeue", "run_id", res.RunID)
		return
	}

	m.logger.Info("Expired tasks reset to pending",
		"run_id", res.RunID,
		"swept_at", res.SweptAt.Format("2006-01-02 15:04:05.000 -07:00"),
		"requeued", res.Requeued,
		"failed", res.Failed)

	if m.eventBus != nil {
		event := events.TasksRequeuedEvent{
			RunID:     res.RunID,
			TaskIDs:   res.Requeued,
			FailedIDs: res.Failed,
			SweptAt:   res.SweptAt,
		}
		if err := events.TasksRequeuedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish TasksRequeued event", "run_id", res.RunID, "error", err)
		}
	}
}

// lastSweep handles the last-sweep service request.
func (m *SweeperModule) lastSweep(_ context.Context, _ LastSweepRequest, _ *mono.Msg) (LastSweepResponse, error) {
	return m.snapshot(), nil
}

func (m *SweeperModule) snapshot() LastSweepResponse {
	cfg := m.sweeper.Config()

	m.mu.RLock()
	defer m.mu.RUnlock()

	resp := LastSweepResponse{
		TotalRuns:    m.totalRuns,
		LeaseTimeout: cfg.LeaseTimeout.String(),
		Interval:     cfg.Interval.String(),
	}
	if m.last != nil {
		resp.Ran = true
		resp.RunID = m.last.RunID
		resp.SweptAt = m.last.SweptAt
		resp.Requeued = len(m.last.Requeued)
		resp.Skipped = len(m.last.Skipped)
		resp.Failed = len(m.last.Failed)
	}
	return resp
}
