package task

import (
	"context"
	"errors"
	"time"

	domain "github.com/example/callme-dispatch/domain/task"
	"github.com/example/callme-dispatch/events"
	"github.com/go-monolith/mono"
)

// Human-readable outcome messages returned to callers.
const (
	msgEnqueued      = "notification task created"
	msgClaimed       = "task claimed"
	msgCompleted     = "task status updated"
	msgNotAuthorized = "you are not on the allow-list, please contact the administrator"
	msgRateLimited   = "you are sending notifications too often, please retry in a few minutes"
	msgNoPending     = "no pending task"
	msgNotFound      = "task not found"
	msgEnqueueFailed = "failed to create notification task"
	msgCompleteFail  = "failed to update task status, please retry"
	msgClaimFailed   = "failed to claim task"
)

// enqueue handles the enqueue service request.
// Domain failures are reported in the response, not as a transport error.
func (m *TaskModule) enqueue(ctx context.Context, req EnqueueRequest, _ *mono.Msg) (EnqueueResponse, error) {
	t, err := m.manager.Enqueue(ctx, req.SubmitterID, req.Target, req.Content)
	if err != nil {
		return EnqueueResponse{
			Success: false,
			Message: enqueueMessage(err),
			Code:    domain.Code(err),
		}, nil
	}

	if m.eventBus != nil {
		event := events.TaskEnqueuedEvent{
			TaskID:      t.ID,
			SubmitterID: t.SubmitterID,
			Target:      t.Target,
			CreatedAt:   t.CreatedAt,
		}
		if err := events.TaskEnqueuedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish TaskEnqueued event", "task_id", t.ID, "error", err)
		}
	}

	return EnqueueResponse{
		Success: true,
		Message: msgEnqueued,
		TaskID:  t.ID,
	}, nil
}

// claim handles the claim service request.
func (m *TaskModule) claim(ctx context.Context, _ ClaimRequest, _ *mono.Msg) (ClaimResponse, error) {
	t, err := m.manager.Claim(ctx)
	if err != nil {
		msg := msgClaimFailed
		if errors.Is(err, domain.ErrNoPendingTask) {
			msg = msgNoPending
		} else {
			m.logger.Error("Claim failed", "error", err)
		}
		return ClaimResponse{
			Success: false,
			Message: msg,
			Code:    domain.Code(err),
		}, nil
	}

	if m.eventBus != nil {
		event := events.TaskClaimedEvent{
			TaskID:    t.ID,
			Target:    t.Target,
			ClaimedAt: t.UpdatedAt,
		}
		if err := events.TaskClaimedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish TaskClaimed event", "task_id", t.ID, "error", err)
		}
	}

	return ClaimResponse{
		Success: true,
		Message: msgClaimed,
		Task:    toTaskPayload(t),
	}, nil
}

// complete handles the complete service request.
func (m *TaskModule) complete(ctx context.Context, req CompleteRequest, _ *mono.Msg) (CompleteResponse, error) {
	if err := m.manager.Complete(ctx, req.TaskID); err != nil {
		msg := msgCompleteFail
		if errors.Is(err, domain.ErrNotFound) {
			msg = msgNotFound
		} else {
			m.logger.Error("Complete failed", "task_id", req.TaskID, "error", err)
		}
		return CompleteResponse{
			Success: false,
			Message: msg,
			Code:    domain.Code(err),
		}, nil
	}

	if m.eventBus != nil {
		event := events.TaskCompletedEvent{
			TaskID:      req.TaskID,
			CompletedAt: time.Now().UTC(),
		}
		if err := events.TaskCompletedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish TaskCompleted event", "task_id", req.TaskID, "error", err)
		}
	}

	return CompleteResponse{
		Success: true,
		Message: msgCompleted,
	}, nil
}

// stats handles the stats service request. Concurrent callers share one
// store round trip.
func (m *TaskModule) stats(ctx context.Context, _ StatsRequest, _ *mono.Msg) (StatsResponse, error) {
	v, err, _ := m.statsGroup.Do("stats", func() (any, error) {
		resp := StatsResponse{Healthy: true}
		if m.db != nil {
			resp.Driver = m.db.Driver()
			if err := m.db.Ping(ctx); err != nil {
				resp.Healthy = false
				resp.Error = err.Error()
				return resp, nil
			}
		}

		counts, err := m.manager.Stats(ctx)
		if err != nil {
			resp.Healthy = false
			resp.Error = err.Error()
			return resp, nil
		}
		resp.Pending = counts[domain.StatusPending]
		resp.InProgress = counts[domain.StatusInProgress]
		resp.Done = counts[domain.StatusDone]
		return resp, nil
	})
	if err != nil {
		return StatsResponse{}, err
	}
	return v.(StatsResponse), nil
}

// enqueueMessage turns an enqueue failure into the caller-facing message.
func enqueueMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, domain.ErrNotAuthorized):
		return msgNotAuthorized
	case errors.Is(err, domain.ErrRateLimited):
		return msgRateLimited
	default:
		return msgEnqueueFailed
	}
}

// toTaskPayload converts a domain Task to its wire shape.
func toTaskPayload(t *domain.Task) *TaskPayload {
	return &TaskPayload{
		ID:          t.ID,
		SubmitterID: t.SubmitterID,
		Target:      t.Target,
		Content:     t.Content,
	}
}
