package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertIfAbsent writes the bill unless one already exists for its
	// (customer, subscription, bill month). It reports whether a row was written.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, bill *Bill) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Bill, error)
	FindByPeriod(ctx context.Context, db *gorm.DB, customerID, subscriptionID snowflake.ID, billMonth time.Time) (*Bill, error)
	// FindLatestUnsettledBefore returns the most recent unsettled bill of the
	// pair whose bill month is strictly before billMonth.
	FindLatestUnsettledBefore(ctx context.Context, db *gorm.DB, customerID, subscriptionID snowflake.ID, billMonth time.Time) (*Bill, error)
	List(ctx context.Context, db *gorm.DB, filter ListBillFilter, page pagination.Pagination) ([]*Bill, error)
	// ApplyPayment moves paid_amount from expectedPaid to newPaid. It returns
	// false when another writer changed paid_amount first.
	ApplyPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, expectedPaid, newPaid int64, status Status, now time.Time) (bool, error)
	// MarkOverdue flags unpaid bills whose due date is before now.
	MarkOverdue(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
	NextInvoiceSequence(ctx context.Context, db *gorm.DB, period string) (int64, error)
}
