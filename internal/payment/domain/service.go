package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/cablebill/cablebill/internal/bill/domain"
	"github.com/cablebill/cablebill/internal/errs"
	"github.com/cablebill/cablebill/pkg/db/pagination"
)

type RecordPaymentRequest struct {
	BillID        string
	AmountPaid    int64
	Method        string
	TransactionID string
	Notes         string
	// ReceivedBy is the user recording the payment.
	ReceivedBy snowflake.ID
}

// Receipt is a recorded payment together with the bill it settled against.
type Receipt struct {
	Payment Payment         `json:"payment"`
	Bill    billdomain.Bill `json:"bill"`
}

func (r *Receipt) RemainingDue() int64 {
	return r.Bill.Remaining()
}

type ListPaymentRequest struct {
	PageToken  string
	PageSize   int
	CustomerID string
	BillID     string
	Method     string
	From       string
	To         string
}

type ListPaymentFilter struct {
	CustomerID int64
	BillID     int64
	Method     Method
	From       *time.Time
	To         *time.Time
}

type ListPaymentResponse struct {
	pagination.PageInfo
	Payments []Payment `json:"payments"`
}

type Service interface {
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*Receipt, error)
	Get(ctx context.Context, id string) (*Payment, error)
	List(ctx context.Context, req ListPaymentRequest) (ListPaymentResponse, error)
}

var (
	ErrInvalidID            = errs.New(errs.ErrInvalidInput, "invalid_id")
	ErrInvalidBillID        = errs.New(errs.ErrInvalidInput, "invalid_bill_id")
	ErrInvalidCustomerID    = errs.New(errs.ErrInvalidInput, "invalid_customer_id")
	ErrInvalidAmount        = errs.New(errs.ErrInvalidInput, "invalid_amount")
	ErrInvalidMethod        = errs.New(errs.ErrInvalidInput, "invalid_payment_method")
	ErrInvalidDateRange     = errs.New(errs.ErrInvalidInput, "invalid_date_range")
	ErrNotFound             = errs.New(errs.ErrNotFound, "payment_not_found")
	ErrAlreadySettled       = errs.New(errs.ErrInvalidState, "bill_already_settled")
	ErrDuplicateTransaction = errs.New(errs.ErrConflict, "duplicate_transaction_id")
	ErrConcurrentPayment    = errs.New(errs.ErrConflict, "payment_contention")
)
