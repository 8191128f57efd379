package domain

import (
	"context"
	"io"

	"github.com/cablebill/cablebill/internal/errs"
	"github.com/cablebill/cablebill/pkg/db/pagination"
)

type ListCustomerRequest struct {
	PageToken string
	PageSize  int
	Area      string
	Search    string
	Active    *bool
}

type ListCustomerFilter struct {
	Area   string
	Search string
	Active *bool
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type CreateCustomerRequest struct {
	Name      string
	Address   string
	Area      string
	Phone     string
	Email     string
	STBNumber string
	Metadata  map[string]any
}

// UpdateCustomerRequest carries optional fields; nil leaves the value unchanged.
type UpdateCustomerRequest struct {
	ID        string
	Name      *string
	Address   *string
	Area      *string
	Phone     *string
	Email     *string
	STBNumber *string
	Metadata  map[string]any
}

type UploadDocumentRequest struct {
	CustomerID  string
	Kind        DocumentKind
	FileName    string
	ContentType string
	Body        io.Reader
}

type Service interface {
	Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error)
	Get(ctx context.Context, id string) (*Customer, error)
	List(ctx context.Context, req ListCustomerRequest) (ListCustomerResponse, error)
	Update(ctx context.Context, req UpdateCustomerRequest) (*Customer, error)
	SetActive(ctx context.Context, id string, active bool) (*Customer, error)
	Delete(ctx context.Context, id string) error
	UploadDocument(ctx context.Context, req UploadDocumentRequest) (*Customer, error)
	VerifyDocument(ctx context.Context, id string, kind DocumentKind, verified bool) (*Customer, error)
}

var (
	ErrInvalidID          = errs.New(errs.ErrInvalidInput, "invalid_id")
	ErrInvalidName        = errs.New(errs.ErrInvalidInput, "invalid_name")
	ErrInvalidPhone       = errs.New(errs.ErrInvalidInput, "invalid_phone")
	ErrInvalidEmail       = errs.New(errs.ErrInvalidInput, "invalid_email")
	ErrInvalidDocument    = errs.New(errs.ErrInvalidInput, "invalid_document")
	ErrNotFound           = errs.New(errs.ErrNotFound, "customer_not_found")
	ErrDocumentNotFound   = errs.New(errs.ErrNotFound, "document_not_found")
	ErrInactive           = errs.New(errs.ErrInvalidState, "customer_inactive")
	ErrHasBillingHistory  = errs.New(errs.ErrInvalidState, "customer_has_billing_history")
	ErrDuplicateContact   = errs.New(errs.ErrConflict, "customer_contact_taken")
	ErrDuplicateSTBNumber = errs.New(errs.ErrConflict, "stb_number_taken")
)
