package domain

import (
	"context"

	"github.com/cablebill/cablebill/internal/errs"
)

type CreatePlanRequest struct {
	Name         string
	Description  string
	Price        int64
	DurationDays int
	Active       *bool
}

// UpdatePlanRequest carries optional fields; nil leaves the value unchanged.
type UpdatePlanRequest struct {
	ID           string
	Name         *string
	Description  *string
	Price        *int64
	DurationDays *int
	Active       *bool
}

type ListPlanRequest struct {
	ActiveOnly bool
}

type ListPlanFilter struct {
	ActiveOnly bool
}

type Service interface {
	Create(ctx context.Context, req CreatePlanRequest) (*Plan, error)
	Get(ctx context.Context, id string) (*Plan, error)
	List(ctx context.Context, req ListPlanRequest) ([]*Plan, error)
	Update(ctx context.Context, req UpdatePlanRequest) (*Plan, error)
	SetActive(ctx context.Context, id string, active bool) (*Plan, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidID              = errs.New(errs.ErrInvalidInput, "invalid_id")
	ErrInvalidName            = errs.New(errs.ErrInvalidInput, "invalid_name")
	ErrInvalidPrice           = errs.New(errs.ErrInvalidInput, "invalid_price")
	ErrInvalidDuration        = errs.New(errs.ErrInvalidInput, "invalid_duration_days")
	ErrNotFound               = errs.New(errs.ErrNotFound, "plan_not_found")
	ErrInactive               = errs.New(errs.ErrInvalidState, "plan_inactive")
	ErrNameTaken              = errs.New(errs.ErrConflict, "plan_name_taken")
	ErrHasActiveSubscriptions = errs.New(errs.ErrInvalidState, "plan_has_active_subscriptions")
	ErrHasSubscriptions       = errs.New(errs.ErrInvalidState, "plan_has_subscriptions")
)
