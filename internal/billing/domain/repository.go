package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	InsertRun(ctx context.Context, db *gorm.DB, run *Run) error
	ListRuns(ctx context.Context, db *gorm.DB, period string, limit int) ([]*Run, error)
}
