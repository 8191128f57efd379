package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, filter ListCustomerFilter, page pagination.Pagination) ([]*Customer, error)
	CountBills(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	DeleteSubscriptions(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
