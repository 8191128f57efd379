package repository

import (
	"context"

	"github.com/cablebill/cablebill/internal/billing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertRun(ctx context.Context, db *gorm.DB, run *domain.Run) error {
	return db.WithContext(ctx).Create(run).Error
}

func (r *repo) ListRuns(ctx context.Context, db *gorm.DB, period string, limit int) ([]*domain.Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	stmt := db.WithContext(ctx).Model(&domain.Run{})
	if period != "" {
		stmt = stmt.Where("period = ?", period)
	}

	var runs []*domain.Run
	if err := stmt.Order("started_at desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
