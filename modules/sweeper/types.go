package sweeper

import (
	"context"
	"time"
)

// ServiceLastSweep is the request-reply service reporting the latest sweep.
const ServiceLastSweep = "last-sweep"

// LastSweepRequest is the request for the latest sweep summary.
type LastSweepRequest struct{}

// LastSweepResponse reports the latest sweep. Ran is false before the first sweep.
type LastSweepResponse struct {
	Ran          bool      `json:"ran"`
	RunID        string    `json:"run_id,omitempty"`
	SweptAt      time.Time `json:"swept_at,omitempty"`
	Requeued     int       `json:"requeued"`
	Skipped      int       `json:"skipped"`
	Failed       int       `json:"failed"`
	TotalRuns    int64     `json:"total_runs"`
	LeaseTimeout string    `json:"lease_timeout"`
	Interval     string    `json:"interval"`
}

// SweepStatusPort reads the sweeper's state from other modules.
type SweepStatusPort interface {
	LastSweep(ctx context.Context) (*LastSweepResponse, error)
}
