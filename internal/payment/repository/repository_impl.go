package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/internal/payment/domain"
	"github.com/cablebill/cablebill/pkg/db/option"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, customer_id, bill_id, amount_paid, payment_method, transaction_id,
		 received_by, payment_date, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.CustomerID,
		payment.BillID,
		payment.AmountPaid,
		payment.PaymentMethod,
		payment.TransactionID,
		payment.ReceivedBy,
		payment.PaymentDate,
		payment.Notes,
		payment.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payments []domain.Payment
	if err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ?", id).
		Limit(1).
		Find(&payments).Error; err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, nil
	}
	return &payments[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListPaymentFilter, page pagination.Pagination) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	stmt := db.WithContext(ctx).Model(&domain.Payment{})
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.BillID != 0 {
		stmt = stmt.Where("bill_id = ?", filter.BillID)
	}
	if filter.Method != "" {
		stmt = stmt.Where("payment_method = ?", filter.Method)
	}
	if filter.From != nil {
		stmt = stmt.Where("payment_date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		stmt = stmt.Where("payment_date < ?", filter.To.UTC())
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("created_at desc, id desc").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
