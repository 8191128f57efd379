package domain

import (
	"context"
	"time"

	"github.com/cablebill/cablebill/internal/errs"
	"github.com/cablebill/cablebill/pkg/db/pagination"
)

type AssignRequest struct {
	CustomerID string
	PlanID     string
	StartDate  *time.Time
}

type ChangePlanRequest struct {
	SubscriptionID string
	PlanID         string
}

type ListSubscriptionRequest struct {
	PageToken  string
	PageSize   int
	CustomerID string
	Active     *bool
}

type ListSubscriptionFilter struct {
	CustomerID int64
	Active     *bool
}

type ListSubscriptionResponse struct {
	pagination.PageInfo
	Subscriptions []Subscription `json:"subscriptions"`
}

type Service interface {
	Assign(ctx context.Context, req AssignRequest) (*Subscription, error)
	ChangePlan(ctx context.Context, req ChangePlanRequest) (*Subscription, error)
	Deactivate(ctx context.Context, id string) (*Subscription, error)
	Get(ctx context.Context, id string) (*Subscription, error)
	List(ctx context.Context, req ListSubscriptionRequest) (ListSubscriptionResponse, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Subscription, error)
}

var (
	ErrInvalidID         = errs.New(errs.ErrInvalidInput, "invalid_id")
	ErrInvalidCustomerID = errs.New(errs.ErrInvalidInput, "invalid_customer_id")
	ErrInvalidPlanID     = errs.New(errs.ErrInvalidInput, "invalid_plan_id")
	ErrNotFound          = errs.New(errs.ErrNotFound, "subscription_not_found")
	ErrConcurrentAssign  = errs.New(errs.ErrConflict, "subscription_assign_conflict")
)
