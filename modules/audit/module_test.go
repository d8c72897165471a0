package audit

import (
	"context"
	"testing"
	"time"

	"github.com/example/callme-dispatch/events"
	"github.com/go-monolith/mono/pkg/types"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

func TestAuditModule_Name(t *testing.T) {
	m := NewModule(0, &mockLogger{})
	if name := m.Name(); name != "audit" {
		t.Errorf("Name() = %q, want 'audit'", name)
	}
	if m.capacity != DefaultCapacity {
		t.Errorf("capacity = %d, want %d", m.capacity, DefaultCapacity)
	}
}

func TestAuditModule_Handlers(t *testing.T) {
	ctx := context.Background()
	m := NewModule(10, &mockLogger{})
	now := time.Now()

	if err := m.handleTaskEnqueued(ctx, events.TaskEnqueuedEvent{TaskID: 1, SubmitterID: "alice", Target: "13800138000", CreatedAt: now}, nil); err != nil {
		t.Fatalf("handleTaskEnqueued() error = %v", err)
	}
	if err := m.handleTaskClaimed(ctx, events.TaskClaimedEvent{TaskID: 1, ClaimedAt: now}, nil); err != nil {
		t.Fatalf("handleTaskClaimed() error = %v", err)
	}
	if err := m.handleTasksRequeued(ctx, events.TasksRequeuedEvent{RunID: "run-1", TaskIDs: []int64{1, 2}, SweptAt: now}, nil); err != nil {
		t.Fatalf("handleTasksRequeued() error = %v", err)
	}
	if err := m.handleTaskCompleted(ctx, events.TaskCompletedEvent{TaskID: 1, CompletedAt: now}, nil); err != nil {
		t.Fatalf("handleTaskCompleted() error = %v", err)
	}

	entries := m.Entries()
	wantTypes := []string{"task_enqueued", "task_claimed", "task_requeued", "task_requeued", "task_completed"}
	if len(entries) != len(wantTypes) {
		t.Fatalf("len(Entries()) = %d, want %d", len(entries), len(wantTypes))
	}
	for i, want := range wantTypes {
		if entries[i].Type != want {
			t.Errorf("entries[%d].Type = %q, want %q", i, entries[i].Type, want)
		}
	}
	if entries[3].TaskID != "2" {
		t.Errorf("entries[3].TaskID = %q, want '2'", entries[3].TaskID)
	}
}

func TestAuditModule_Bounded(t *testing.T) {
	ctx := context.Background()
	m := NewModule(3, &mockLogger{})

	for id := int64(1); id <= 5; id++ {
		_ = m.handleTaskCompleted(ctx, events.TaskCompletedEvent{TaskID: id}, nil)
	}

	entries := m.Entries()
	if len(entries) != 3 {
		t.Fatalf("len(Entries()) = %d, want 3", len(entries))
	}
	if entries[0].TaskID != "3" || entries[2].TaskID != "5" {
		t.Errorf("trail = %v, want tasks 3..5", entries)
	}
}

func TestAuditModule_EntriesIsCopy(t *testing.T) {
	m := NewModule(5, &mockLogger{})
	_ = m.handleTaskClaimed(context.Background(), events.TaskClaimedEvent{TaskID: 7}, nil)

	entries := m.Entries()
	entries[0].Type = "tampered"

	if got := m.Entries()[0].Type; got != "task_claimed" {
		t.Errorf("Entries() leaked internal state, got %q", got)
	}
}
