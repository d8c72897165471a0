package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// taskAdapter wraps ServiceContainer for type-safe cross-module communication.
// This is the adapter that implements the TaskPort interface.
type taskAdapter struct {
	container mono.ServiceContainer
}

// NewTaskAdapter creates a new adapter for task services.
// container is the ServiceContainer from the task module received via SetDependencyServiceContainer.
func NewTaskAdapter(container mono.ServiceContainer) TaskPort {
	if container == nil {
		panic("task adapter requires non-nil ServiceContainer")
	}
	return &taskAdapter{container: container}
}

// Enqueue submits a task via the enqueue service.
func (a *taskAdapter) Enqueue(ctx context.Context, req *EnqueueRequest) (*EnqueueResponse, error) {
	var resp EnqueueResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceEnqueue,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceEnqueue, err)
	}
	return &resp, nil
}

// Claim takes the next task via the claim service.
func (a *taskAdapter) Claim(ctx context.Context) (*ClaimResponse, error) {
	req := ClaimRequest{}
	var resp ClaimResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceClaim,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceClaim, err)
	}
	return &resp, nil
}

// Complete marks a task done via the complete service.
func (a *taskAdapter) Complete(ctx context.Context, taskID int64) (*CompleteResponse, error) {
	req := CompleteRequest{TaskID: taskID}
	var resp CompleteResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceComplete,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceComplete, err)
	}
	return &resp, nil
}

// Stats reads queue statistics via the stats service.
func (a *taskAdapter) Stats(ctx context.Context) (*StatsResponse, error) {
	req := StatsRequest{}
	var resp StatsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceStats,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceStats, err)
	}
	return &resp, nil
}
