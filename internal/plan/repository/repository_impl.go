package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO plans (id, name, description, price, duration_days, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID,
		plan.Name,
		plan.Description,
		plan.Price,
		plan.DurationDays,
		plan.Active,
		plan.CreatedAt,
		plan.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return db.WithContext(ctx).Exec(
		`UPDATE plans
		 SET name = ?, description = ?, price = ?, duration_days = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		plan.Name,
		plan.Description,
		plan.Price,
		plan.DurationDays,
		plan.Active,
		plan.UpdatedAt,
		plan.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM plans WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Plan, error) {
	var plan domain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, price, duration_days, active, created_at, updated_at
		 FROM plans WHERE id = ?`,
		id,
	).Scan(&plan).Error
	if err != nil {
		return nil, err
	}
	if plan.ID == 0 {
		return nil, nil
	}
	return &plan, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListPlanFilter) ([]*domain.Plan, error) {
	var plans []*domain.Plan
	stmt := db.WithContext(ctx).Model(&domain.Plan{})
	if filter.ActiveOnly {
		stmt = stmt.Where("active = ?", true)
	}
	if err := stmt.Order("price asc, name asc").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repo) CountActiveSubscriptions(ctx context.Context, db *gorm.DB, planID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM subscriptions WHERE plan_id = ? AND active = ?`,
		planID,
		true,
	).Scan(&count).Error
	return count, err
}
