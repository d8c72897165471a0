package whitelist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// whitelistAdapter wraps ServiceContainer for type-safe cross-module communication.
type whitelistAdapter struct {
	container mono.ServiceContainer
}

// NewMembershipAdapter creates a MembershipPort backed by the whitelist module's services.
// container is the ServiceContainer received via SetDependencyServiceContainer.
func NewMembershipAdapter(container mono.ServiceContainer) MembershipPort {
	if container == nil {
		panic("whitelist adapter requires non-nil ServiceContainer")
	}
	return &whitelistAdapter{container: container}
}

// IsMember checks membership via the is-member service.
func (a *whitelistAdapter) IsMember(ctx context.Context, userID string) (bool, error) {
	req := IsMemberRequest{UserID: userID}
	var resp IsMemberResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceIsMember,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return false, fmt.Errorf("%s service call failed: %w", ServiceIsMember, err)
	}

	return resp.Member, nil
}
