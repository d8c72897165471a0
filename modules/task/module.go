package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domain "github.com/example/callme-dispatch/domain/task"
	"github.com/example/callme-dispatch/events"
	"github.com/example/callme-dispatch/modules/whitelist"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/singleflight"
)

// Pinger reports connectivity of the backing database.
type Pinger interface {
	Ping(ctx context.Context) error
	Driver() string
}

// TaskModule exposes the task lifecycle as request-reply services (core domain).
type TaskModule struct {
	store      domain.Store
	db         Pinger
	window     time.Duration
	manager    *Manager
	membership MembershipOracle
	eventBus   mono.EventBus
	logger     types.Logger
	statsGroup singleflight.Group
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*TaskModule)(nil)
	_ mono.ServiceProviderModule = (*TaskModule)(nil)
	_ mono.DependentModule       = (*TaskModule)(nil)
	_ mono.EventBusAwareModule   = (*TaskModule)(nil)
	_ mono.EventEmitterModule    = (*TaskModule)(nil)
	_ mono.HealthCheckableModule = (*TaskModule)(nil)
)

// NewModule creates a new TaskModule on store. window is the duplicate
// rate-limit window; zero uses DefaultRateLimitWindow.
func NewModule(store domain.Store, db Pinger, window time.Duration, logger types.Logger) *TaskModule {
	return &TaskModule{
		store:  store,
		db:     db,
		window: window,
		logger: logger,
	}
}

// Name returns the module name.
func (m *TaskModule) Name() string {
	return "task"
}

// Dependencies returns the list of module dependencies.
func (m *TaskModule) Dependencies() []string {
	return []string{"whitelist"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *TaskModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "whitelist" {
		m.membership = whitelist.NewMembershipAdapter(container)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskEnqueuedV1.ToBase(),
		events.TaskClaimedV1.ToBase(),
		events.TaskCompletedV1.ToBase(),
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceEnqueue, json.Unmarshal, json.Marshal, m.enqueue,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceEnqueue, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceClaim, json.Unmarshal, json.Marshal, m.claim,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceClaim, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceComplete, json.Unmarshal, json.Marshal, m.complete,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceComplete, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceStats, json.Unmarshal, json.Marshal, m.stats,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceStats, err)
	}

	m.logger.Info("Registered task services",
		"services", []string{ServiceEnqueue, ServiceClaim, ServiceComplete, ServiceStats})
	return nil
}

// Start builds the lifecycle manager once dependencies are wired.
func (m *TaskModule) Start(_ context.Context) error {
	if m.store == nil {
		return fmt.Errorf("task store not set")
	}
	if m.membership == nil {
		return fmt.Errorf("membership dependency not set")
	}
	if m.eventBus == nil {
		m.logger.Warn("EventBus not set, task events will not be published")
	}

	m.manager = NewManager(m.store, m.membership, m.window, m.logger)
	m.logger.Info("Task module started", "rate_limit_window", m.manager.Window().String())
	return nil
}

// Stop shuts down the module.
func (m *TaskModule) Stop(_ context.Context) error {
	m.logger.Info("Task module stopped")
	return nil
}

// Health performs a health check against the task store.
func (m *TaskModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}
	if err := m.db.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": m.db.Driver(),
		},
	}
}
