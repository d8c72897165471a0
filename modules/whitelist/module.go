package whitelist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/callme-dispatch/domain/member"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// WhitelistModule owns the allow-list of submitters and answers membership checks.
type WhitelistModule struct {
	repo   member.Repository
	seed   []string
	logger types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*WhitelistModule)(nil)
	_ mono.ServiceProviderModule = (*WhitelistModule)(nil)
	_ mono.HealthCheckableModule = (*WhitelistModule)(nil)
)

// NewModule creates a new WhitelistModule. seed ids are added on Start.
func NewModule(repo member.Repository, seed []string, logger types.Logger) *WhitelistModule {
	return &WhitelistModule{
		repo:   repo,
		seed:   seed,
		logger: logger,
	}
}

// Name returns the module name.
func (m *WhitelistModule) Name() string {
	return "whitelist"
}

// RegisterServices registers request-reply services in the service container.
func (m *WhitelistModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceIsMember, json.Unmarshal, json.Marshal, m.isMember,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceIsMember, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceAddMember, json.Unmarshal, json.Marshal, m.addMember,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceAddMember, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRemoveMember, json.Unmarshal, json.Marshal, m.removeMember,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRemoveMember, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListMembers, json.Unmarshal, json.Marshal, m.listMembers,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListMembers, err)
	}

	m.logger.Info("Registered whitelist services",
		"services", []string{ServiceIsMember, ServiceAddMember, ServiceRemoveMember, ServiceListMembers})
	return nil
}

// isMember handles the is-member service request.
// Lookup failures answer false rather than an error so callers fail closed.
func (m *WhitelistModule) isMember(ctx context.Context, req IsMemberRequest, _ *mono.Msg) (IsMemberResponse, error) {
	if req.UserID == "" {
		return IsMemberResponse{Member: false}, nil
	}
	ok, err := m.repo.Exists(ctx, req.UserID)
	if err != nil {
		m.logger.Warn("Membership lookup failed", "user_id", req.UserID, "error", err)
		return IsMemberResponse{Member: false}, nil
	}
	return IsMemberResponse{Member: ok}, nil
}

// addMember handles the add-member service request.
func (m *WhitelistModule) addMember(ctx context.Context, req MemberRequest, _ *mono.Msg) (MemberResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	existed, err := m.repo.Exists(ctx, userID)
	if err != nil {
		return MemberResponse{}, err
	}
	if err := m.repo.Add(ctx, userID); err != nil {
		return MemberResponse{}, err
	}
	if !existed {
		m.logger.Info("Member added", "user_id", userID)
	}
	return MemberResponse{UserID: userID, Changed: !existed}, nil
}

// removeMember handles the remove-member service request.
func (m *WhitelistModule) removeMember(ctx context.Context, req MemberRequest, _ *mono.Msg) (MemberResponse, error) {
	removed, err := m.repo.Remove(ctx, req.UserID)
	if err != nil {
		return MemberResponse{}, err
	}
	if removed {
		m.logger.Info("Member removed", "user_id", req.UserID)
	}
	return MemberResponse{UserID: req.UserID, Changed: removed}, nil
}

// listMembers handles the list-members service request.
func (m *WhitelistModule) listMembers(ctx context.Context, _ ListMembersRequest, _ *mono.Msg) (ListMembersResponse, error) {
	members, err := m.repo.List(ctx)
	if err != nil {
		return ListMembersResponse{}, err
	}

	resp := ListMembersResponse{
		Members: make([]MemberInfo, 0, len(members)),
		Total:   len(members),
	}
	for _, mem := range members {
		resp.Members = append(resp.Members, MemberInfo{UserID: mem.UserID, CreatedAt: mem.CreatedAt})
	}
	return resp, nil
}

// Start seeds the configured members.
func (m *WhitelistModule) Start(ctx context.Context) error {
	seeded := 0
	for _, id := range m.seed {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if err := m.repo.Add(ctx, id); err != nil {
			return fmt.Errorf("failed to seed member %s: %w", id, err)
		}
		seeded++
	}
	m.logger.Info("Whitelist module started", "seeded", seeded)
	return nil
}

// Stop shuts down the module.
func (m *WhitelistModule) Stop(_ context.Context) error {
	m.logger.Info("Whitelist module stopped")
	return nil
}

// Health reports whether the allow-list table is reachable.
func (m *WhitelistModule) Health(ctx context.Context) mono.HealthStatus {
	members, err := m.repo.List(ctx)
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("allow-list unavailable: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"members": len(members),
		},
	}
}
