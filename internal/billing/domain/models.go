package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TriggerManual    = "manual"
	TriggerScheduler = "scheduler"
	TriggerCLI       = "cli"
)

const (
	RunStatusCompleted = "completed"
	RunStatusPartial   = "completed_with_failures"
	RunStatusAborted   = "aborted"
)

// Skip reasons, also used as metric labels.
const (
	SkipCustomerMissing  = "customer_missing"
	SkipCustomerInactive = "customer_inactive"
	SkipPlanMissing      = "plan_missing"
	SkipAlreadyBilled    = "already_billed"
)

// ItemFailure identifies a subscription that could not be billed so it can be
// retried on its own.
type ItemFailure struct {
	CustomerID     string `json:"customer_id"`
	SubscriptionID string `json:"subscription_id"`
	Reason         string `json:"reason"`
}

type RunResult struct {
	RunID      string        `json:"run_id"`
	Period     string        `json:"period"`
	Trigger    string        `json:"trigger"`
	Status     string        `json:"status"`
	Eligible   int           `json:"eligible"`
	Generated  int           `json:"generated"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Failures   []ItemFailure `json:"failures"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Run is the persisted summary of a RunResult.
type Run struct {
	ID            string                           `gorm:"primaryKey"`
	Period        string                           `gorm:"not null"`
	TriggerSource string                           `gorm:"column:trigger_source;not null"`
	Status        string                           `gorm:"not null"`
	Eligible      int                              `gorm:"not null"`
	Generated     int                              `gorm:"not null"`
	Skipped       int                              `gorm:"not null"`
	Failed        int                              `gorm:"not null"`
	Failures      datatypes.JSONSlice[ItemFailure] `gorm:"type:jsonb"`
	StartedAt     time.Time                        `gorm:"column:started_at;not null"`
	FinishedAt    time.Time                        `gorm:"column:finished_at;not null"`
}

func (Run) TableName() string { return "billing_runs" }

func RunFromResult(r *RunResult) *Run {
	return &Run{
		ID:            r.RunID,
		Period:        r.Period,
		TriggerSource: r.Trigger,
		Status:        r.Status,
		Eligible:      r.Eligible,
		Generated:     r.Generated,
		Skipped:       r.Skipped,
		Failed:        r.Failed,
		Failures:      datatypes.JSONSlice[ItemFailure](r.Failures),
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
	}
}

func (r *Run) Result() RunResult {
	failures := []ItemFailure(r.Failures)
	if failures == nil {
		failures = []ItemFailure{}
	}
	return RunResult{
		RunID:      r.ID,
		Period:     r.Period,
		Trigger:    r.TriggerSource,
		Status:     r.Status,
		Eligible:   r.Eligible,
		Generated:  r.Generated,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
		Failures:   failures,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
