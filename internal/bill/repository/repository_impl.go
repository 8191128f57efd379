package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/internal/bill/domain"
	"github.com/cablebill/cablebill/pkg/db/option"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, bill *domain.Bill) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO bills (id, customer_id, subscription_id, bill_month, due_date, total_amount,
		 previous_balance, current_balance, paid_amount, status, invoice_number, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (customer_id, subscription_id, bill_month) DO NOTHING`,
		bill.ID,
		bill.CustomerID,
		bill.SubscriptionID,
		bill.BillMonth,
		bill.DueDate,
		bill.TotalAmount,
		bill.PreviousBalance,
		bill.CurrentBalance,
		bill.PaidAmount,
		bill.Status,
		bill.InvoiceNumber,
		bill.CreatedAt,
		bill.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Bill, error) {
	return first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByPeriod(ctx context.Context, db *gorm.DB, customerID, subscriptionID snowflake.ID, billMonth time.Time) (*domain.Bill, error) {
	return first(db.WithContext(ctx).
		Where("customer_id = ? AND subscription_id = ? AND bill_month = ?", customerID, subscriptionID, billMonth.UTC()))
}

func (r *repo) FindLatestUnsettledBefore(ctx context.Context, db *gorm.DB, customerID, subscriptionID snowflake.ID, billMonth time.Time) (*domain.Bill, error) {
	return first(db.WithContext(ctx).
		Where("customer_id = ? AND subscription_id = ? AND bill_month < ? AND status IN ?",
			customerID, subscriptionID, billMonth.UTC(), domain.UnsettledStatuses).
		Order("bill_month desc"))
}

func first(stmt *gorm.DB) (*domain.Bill, error) {
	var bills []domain.Bill
	if err := stmt.Model(&domain.Bill{}).Limit(1).Find(&bills).Error; err != nil {
		return nil, err
	}
	if len(bills) == 0 {
		return nil, nil
	}
	return &bills[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListBillFilter, page pagination.Pagination) ([]*domain.Bill, error) {
	var bills []*domain.Bill
	stmt := db.WithContext(ctx).Model(&domain.Bill{})
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		stmt = whereDerivedStatus(stmt, filter.Status, filter.Now.UTC())
	}
	if filter.BillMonth != nil {
		stmt = stmt.Where("bill_month = ?", filter.BillMonth.UTC())
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("created_at desc, id desc").Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

// whereDerivedStatus mirrors domain.DeriveStatus in SQL so overdue bills
// match before refresh_overdue rewrites the cached column.
func whereDerivedStatus(stmt *gorm.DB, status domain.Status, now time.Time) *gorm.DB {
	switch status {
	case domain.StatusPaid:
		return stmt.Where("paid_amount >= current_balance")
	case domain.StatusPartiallyPaid:
		return stmt.Where("paid_amount > 0 AND paid_amount < current_balance")
	case domain.StatusOverdue:
		return stmt.Where("paid_amount = 0 AND current_balance > 0 AND due_date < ?", now)
	case domain.StatusGenerated:
		return stmt.Where("paid_amount = 0 AND current_balance > 0 AND due_date >= ?", now)
	}
	return stmt.Where("status = ?", status)
}

func (r *repo) ApplyPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, expectedPaid, newPaid int64, status domain.Status, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE bills SET paid_amount = ?, status = ?, updated_at = ?
		 WHERE id = ? AND paid_amount = ?`,
		newPaid,
		status,
		now,
		id,
		expectedPaid,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) MarkOverdue(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE bills SET status = ?, updated_at = ?
		 WHERE status = ? AND paid_amount = 0 AND current_balance > 0 AND due_date < ?`,
		domain.StatusOverdue,
		now,
		domain.StatusGenerated,
		now,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) NextInvoiceSequence(ctx context.Context, db *gorm.DB, period string) (int64, error) {
	var value int64
	err := db.WithContext(ctx).Raw(
		`INSERT INTO invoice_sequences (period, last_value) VALUES (?, 1)
		 ON CONFLICT (period) DO UPDATE SET last_value = invoice_sequences.last_value + 1
		 RETURNING last_value`,
		period,
	).Scan(&value).Error
	return value, err
}
