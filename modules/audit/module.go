package audit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/example/callme-dispatch/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// DefaultCapacity is how many entries the trail keeps before dropping the oldest.
const DefaultCapacity = 1000

// Entry is one audited task event.
type Entry struct {
	TaskID    string    `json:"task_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditModule records task lifecycle events in a bounded in-memory trail.
// It subscribes to domain events using the EventConsumerModule interface.
type AuditModule struct {
	capacity int
	logger   types.Logger

	mu      sync.RWMutex
	entries []Entry
}

var _ mono.Module = (*AuditModule)(nil)
var _ mono.EventConsumerModule = (*AuditModule)(nil)

// NewModule creates an AuditModule. A non-positive capacity uses DefaultCapacity.
func NewModule(capacity int, logger types.Logger) *AuditModule {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &AuditModule{
		capacity: capacity,
		logger:   logger,
		entries:  make([]Entry, 0),
	}
}

func (m *AuditModule) Name() string {
	return "audit"
}

func (m *AuditModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskEnqueuedV1, m.handleTaskEnqueued, m); err != nil {
		return fmt.Errorf("failed to register TaskEnqueued consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskClaimedV1, m.handleTaskClaimed, m); err != nil {
		return fmt.Errorf("failed to register TaskClaimed consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCompletedV1, m.handleTaskCompleted, m); err != nil {
		return fmt.Errorf("failed to register TaskCompleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TasksRequeuedV1, m.handleTasksRequeued, m); err != nil {
		return fmt.Errorf("failed to register TasksRequeued consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", []string{"TaskEnqueued", "TaskClaimed", "TaskCompleted", "TasksRequeued"})
	return nil
}

func (m *AuditModule) handleTaskEnqueued(_ context.Context, event events.TaskEnqueuedEvent, _ *mono.Msg) error {
	m.logger.Info("Task enqueued", "task_id", event.TaskID, "submitter_id", event.SubmitterID)
	m.record(formatID(event.TaskID), "task_enqueued",
		fmt.Sprintf("Task %d enqueued by %s for %s", event.TaskID, event.SubmitterID, event.Target))
	return nil
}

func (m *AuditModule) handleTaskClaimed(_ context.Context, event events.TaskClaimedEvent, _ *mono.Msg) error {
	m.logger.Info("Task claimed", "task_id", event.TaskID)
	m.record(formatID(event.TaskID), "task_claimed", fmt.Sprintf("Task %d claimed", event.TaskID))
	return nil
}

func (m *AuditModule) handleTaskCompleted(_ context.Context, event events.TaskCompletedEvent, _ *mono.Msg) error {
	m.logger.Info("Task completed", "task_id", event.TaskID)
	m.record(formatID(event.TaskID), "task_completed", fmt.Sprintf("Task %d completed", event.TaskID))
	return nil
}

func (m *AuditModule) handleTasksRequeued(_ context.Context, event events.TasksRequeuedEvent, _ *mono.Msg) error {
	m.logger.Info("Tasks requeued", "run_id", event.RunID, "count", len(event.TaskIDs))
	for _, id := range event.TaskIDs {
		m.record(formatID(id), "task_requeued",
			fmt.Sprintf("Task %d lease expired, reset to pending (run %s)", id, event.RunID))
	}
	return nil
}

// record appends an entry, dropping the oldest once the trail is full.
func (m *AuditModule) record(id, entryType, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) >= m.capacity {
		drop := len(m.entries) - m.capacity + 1
		m.entries = append(m.entries[:0], m.entries[drop:]...)
	}
	m.entries = append(m.entries, Entry{
		TaskID:    id,
		Type:      entryType,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

// Entries returns a copy of the trail, oldest first.
func (m *AuditModule) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Entry, len(m.entries))
	copy(result, m.entries)
	return result
}

func (m *AuditModule) Start(_ context.Context) error {
	m.logger.Info("Audit module started - listening for task events", "capacity", m.capacity)
	return nil
}

func (m *AuditModule) Stop(_ context.Context) error {
	m.logger.Info("Audit module stopped", "entries", len(m.Entries()))
	return nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
