package whitelist

import (
	"context"
	"errors"
	"testing"

	"github.com/example/callme-dispatch/domain/member"
	"github.com/example/callme-dispatch/storage"
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

// failingRepo is a member.Repository whose every call fails.
type failingRepo struct{}

var errDown = errors.New("database is down")

func (failingRepo) Exists(context.Context, string) (bool, error) { return false, errDown }
func (failingRepo) Add(context.Context, string) error { return errDown }
func (failingRepo) Remove(context.Context, string) (bool, error) { return false, errDown }
func (failingRepo) List(context.Context) ([]member.Member, error) { return nil, errDown }

func newTestRepo(t *testing.T) member.Repository {
	t.Helper()
	db, err := storage.OpenSQLite(":memory:", false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return storage.NewMemberRepository(db, nil)
}

func TestWhitelistModule_Name(t *testing.T) {
	m := NewModule(nil, nil, &mockLogger{})
	if name := m.Name(); name != "whitelist" {
		t.Errorf("Name() = %q, want 'whitelist'", name)
	}
}

func TestWhitelistModule_StartSeedsMembers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	m := NewModule(repo, []string{"alice", " bob ", "", "alice"}, &mockLogger{})

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for _, id := range []string{"alice", "bob"} {
		resp, err := m.isMember(ctx, IsMemberRequest{UserID: id}, nil)
		if err != nil {
			t.Fatalf("isMember(%s) error = %v", id, err)
		}
		if !resp.Member {
			t.Errorf("expected %s to be seeded", id)
		}
	}

	list, err := m.listMembers(ctx, ListMembersRequest{}, nil)
	if err != nil {
		t.Fatalf("listMembers() error = %v", err)
	}
	if list.Total != 2 {
		t.Errorf("Total = %d, want 2", list.Total)
	}
}

func TestWhitelistModule_IsMember(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown submitter", func(t *testing.T) {
		m := NewModule(newTestRepo(t), nil, &mockLogger{})
		resp, err := m.isMember(ctx, IsMemberRequest{UserID: "mallory"}, nil)
		if err != nil {
			t.Fatalf("isMember() error = %v", err)
		}
		if resp.Member {
			t.Error("expected mallory not to be a member")
		}
	})

	t.Run("empty id", func(t *testing.T) {
		m := NewModule(newTestRepo(t), nil, &mockLogger{})
		resp, _ := m.isMember(ctx, IsMemberRequest{}, nil)
		if resp.Member {
			t.Error("empty id must never be a member")
		}
	})

	t.Run("lookup failure fails closed", func(t *testing.T) {
		m := NewModule(failingRepo{}, nil, &mockLogger{})
		resp, err := m.isMember(ctx, IsMemberRequest{UserID: "alice"}, nil)
		if err != nil {
			t.Fatalf("isMember() error = %v, want nil", err)
		}
		if resp.Member {
			t.Error("lookup failure must answer not-a-member")
		}
	})
}

func TestWhitelistModule_AddRemove(t *testing.T) {
	ctx := context.Background()
	m := NewModule(newTestRepo(t), nil, &mockLogger{})

	added, err := m.addMember(ctx, MemberRequest{UserID: "carol"}, nil)
	if err != nil {
		t.Fatalf("addMember() error = %v", err)
	}
	if !added.Changed {
		t.Error("first add should report a change")
	}

	again, err := m.addMember(ctx, MemberRequest{UserID: "carol"}, nil)
	if err != nil {
		t.Fatalf("addMember() again error = %v", err)
	}
	if again.Changed {
		t.Error("second add should not report a change")
	}

	if _, err := m.addMember(ctx, MemberRequest{UserID: "  "}, nil); !errors.Is(err, member.ErrInvalidID) {
		t.Errorf("addMember(blank) error = %v, want ErrInvalidID", err)
	}

	removed, err := m.removeMember(ctx, MemberRequest{UserID: "carol"}, nil)
	if err != nil {
		t.Fatalf("removeMember() error = %v", err)
	}
	if !removed.Changed {
		t.Error("remove should report a change")
	}
}

func TestWhitelistModule_Health(t *testing.T) {
	ctx := context.Background()

	healthy := NewModule(newTestRepo(t), nil, &mockLogger{}).Health(ctx)
	if !healthy.Healthy {
		t.Errorf("expected healthy, got %q", healthy.Message)
	}

	unhealthy := NewModule(failingRepo{}, nil, &mockLogger{}).Health(ctx)
	if unhealthy.Healthy {
		t.Error("expected unhealthy when the repository fails")
	}
}
