package domain

import (
	"context"
	"time"

	"github.com/cablebill/cablebill/internal/errs"
	"github.com/cablebill/cablebill/pkg/db/pagination"
)

type ListBillRequest struct {
	PageToken  string
	PageSize   int
	CustomerID string
	Status     string
	Period     string
}

// ListBillFilter selects bills. Status is matched against the status
// derived at Now, not the cached column.
type ListBillFilter struct {
	CustomerID int64
	Status     Status
	BillMonth  *time.Time
	Now        time.Time
}

type ListBillResponse struct {
	pagination.PageInfo
	Bills []Bill `json:"bills"`
}

type SendInvoiceRequest struct {
	BillID string
	Method string
}

type Document struct {
	FileName    string
	ContentType string
	Body        []byte
}

type Service interface {
	Get(ctx context.Context, id string) (*Bill, error)
	List(ctx context.Context, req ListBillRequest) (ListBillResponse, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Bill, error)
	Snapshot(ctx context.Context, id string) (*Snapshot, error)
	RenderPDF(ctx context.Context, id string) (*Document, error)
	SendInvoice(ctx context.Context, req SendInvoiceRequest) error
	RefreshOverdue(ctx context.Context) (int64, error)
}

var (
	ErrInvalidID              = errs.New(errs.ErrInvalidInput, "invalid_id")
	ErrInvalidCustomerID      = errs.New(errs.ErrInvalidInput, "invalid_customer_id")
	ErrInvalidStatus          = errs.New(errs.ErrInvalidInput, "invalid_status")
	ErrInvalidPeriod          = errs.New(errs.ErrInvalidInput, "invalid_period")
	ErrNotFound               = errs.New(errs.ErrNotFound, "bill_not_found")
	ErrSnapshotIncomplete     = errs.New(errs.ErrNotFound, "bill_details_missing")
	ErrDuplicatePeriod        = errs.New(errs.ErrConflict, "bill_period_exists")
	ErrDuplicateInvoiceNumber = errs.New(errs.ErrConflict, "invoice_number_taken")
)
