package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/internal/subscription/domain"
	"github.com/cablebill/cablebill/pkg/db/option"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (id, customer_id, plan_id, start_date, end_date, price_at_subscription, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		subscription.ID,
		subscription.CustomerID,
		subscription.PlanID,
		subscription.StartDate,
		subscription.EndDate,
		subscription.PriceAtSubscription,
		subscription.Active,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET plan_id = ?, start_date = ?, end_date = ?, price_at_subscription = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		subscription.PlanID,
		subscription.StartDate,
		subscription.EndDate,
		subscription.PriceAtSubscription,
		subscription.Active,
		subscription.UpdatedAt,
		subscription.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Subscription, error) {
	return r.first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Subscription, error) {
	return r.first(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *repo) first(stmt *gorm.DB) (*domain.Subscription, error) {
	var subscriptions []domain.Subscription
	if err := stmt.Model(&domain.Subscription{}).Limit(1).Find(&subscriptions).Error; err != nil {
		return nil, err
	}
	if len(subscriptions) == 0 {
		return nil, nil
	}
	return &subscriptions[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListSubscriptionFilter, page pagination.Pagination) ([]*domain.Subscription, error) {
	var subscriptions []*domain.Subscription
	stmt := db.WithContext(ctx).Model(&domain.Subscription{})
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("created_at desc, id desc").Find(&subscriptions).Error; err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*domain.Subscription, error) {
	var subscriptions []*domain.Subscription
	err := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("customer_id = ?", customerID).
		Order("created_at desc, id desc").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]*domain.Subscription, error) {
	var subscriptions []*domain.Subscription
	err := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("active = ?", true).
		Order("id asc").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repo) DeactivateActiveByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID, now time.Time) (int64, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ? AND active = ?", customerID, true).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	res := db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET active = ?, updated_at = ? WHERE id IN ?`,
		false,
		now,
		ids,
	)
	return res.RowsAffected, res.Error
}
