package whitelist

import (
	"context"
	"time"
)

// Service names exposed by the whitelist module.
const (
	ServiceIsMember     = "is-member"
	ServiceAddMember    = "add-member"
	ServiceRemoveMember = "remove-member"
	ServiceListMembers  = "list-members"
)

// MembershipPort answers allow-list questions for other modules.
type MembershipPort interface {
	IsMember(ctx context.Context, userID string) (bool, error)
}

// IsMemberRequest is the request for checking membership.
type IsMemberRequest struct {
	UserID string `json:"user_id"`
}

// IsMemberResponse is the response for checking membership.
type IsMemberResponse struct {
	Member bool `json:"member"`
}

// MemberRequest is the request for adding or removing a member.
type MemberRequest struct {
	UserID string `json:"user_id"`
}

// MemberResponse reports the outcome of an add or remove.
type MemberResponse struct {
	UserID  string `json:"user_id"`
	Changed bool   `json:"changed"`
}

// ListMembersRequest is the request for listing members.
type ListMembersRequest struct{}

// MemberInfo is one allow-listed submitter.
type MemberInfo struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ListMembersResponse is the response for listing members.
type ListMembersResponse struct {
	Members []MemberInfo `json:"members"`
	Total   int          `json:"total"`
}
