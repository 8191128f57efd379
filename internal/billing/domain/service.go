package domain

import (
	"context"
	"time"

	"github.com/cablebill/cablebill/internal/errs"
)

type RunRequest struct {
	// Period is any instant inside the target month.
	Period  time.Time
	Trigger string
}

// Engine generates the bills of one billing period.
type Engine interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
	ListRuns(ctx context.Context, period string, limit int) ([]RunResult, error)
}

var ErrRunInProgress = errs.New(errs.ErrInvalidState, "billing_run_in_progress")
