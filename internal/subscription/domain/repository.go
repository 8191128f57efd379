package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	Update(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	List(ctx context.Context, db *gorm.DB, filter ListSubscriptionFilter, page pagination.Pagination) ([]*Subscription, error)
	ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*Subscription, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]*Subscription, error)
	// DeactivateActiveByCustomer locks and deactivates every active subscription
	// of the customer, returning how many were changed.
	DeactivateActiveByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID, now time.Time) (int64, error)
}
