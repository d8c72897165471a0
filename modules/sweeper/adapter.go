package sweeper

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

type sweepStatusAdapter struct {
	container mono.ServiceContainer
}

// NewSweepStatusAdapter creates a SweepStatusPort backed by the sweeper
// module's service container.
func NewSweepStatusAdapter(container mono.ServiceContainer) SweepStatusPort {
	if container == nil {
		panic("sweep status adapter requires non-nil ServiceContainer")
	}
	return &sweepStatusAdapter{container: container}
}

// LastSweep fetches the latest sweep summary.
func (a *sweepStatusAdapter) LastSweep(ctx context.Context) (*LastSweepResponse, error) {
	req := LastSweepRequest{}
	var resp LastSweepResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceLastSweep,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceLastSweep, err)
	}
	return &resp, nil
}
