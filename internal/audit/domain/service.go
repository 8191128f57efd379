package domain

import (
	"context"
	"time"

	"github.com/cablebill/cablebill/internal/errs"
	"github.com/cablebill/cablebill/pkg/db/pagination"
)

// Actions recorded by the API.
const (
	ActionPaymentRecord          = "payment.record"
	ActionBillingRunStart        = "billing_run.start"
	ActionBillSend               = "bill.send"
	ActionCustomerDelete         = "customer.delete"
	ActionCustomerSetActive      = "customer.set_active"
	ActionDocumentVerify         = "customer.document_verify"
	ActionPlanDelete             = "plan.delete"
	ActionSubscriptionDeactivate = "subscription.deactivate"
	ActionUserRegister           = "user.register"
	ActionUserUpdate             = "user.update"
	ActionUserSetActive          = "user.set_active"
	ActionUserDelete             = "user.delete"
)

type ListAuditLogRequest struct {
	PageToken  string
	PageSize   int
	Action     string
	TargetType string
	TargetID   string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	// Record stores an entry attributed to the actor carried by ctx, or to
	// the system when there is none.
	Record(ctx context.Context, action, targetType, targetID string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidAction    = errs.New(errs.ErrInvalidInput, "invalid_action")
	ErrInvalidTimeRange = errs.New(errs.ErrInvalidInput, "invalid_time_range")
)
