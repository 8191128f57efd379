package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Subscription binds a customer to a plan. PriceAtSubscription and EndDate are
// frozen from the plan when it is assigned or changed.
type Subscription struct {
	ID                  snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID          snowflake.ID `gorm:"column:customer_id;not null" json:"customer_id"`
	PlanID              snowflake.ID `gorm:"column:plan_id;not null" json:"plan_id"`
	StartDate           time.Time    `gorm:"column:start_date;not null" json:"start_date"`
	EndDate             time.Time    `gorm:"column:end_date;not null" json:"end_date"`
	PriceAtSubscription int64        `gorm:"column:price_at_subscription;not null" json:"price_at_subscription"`
	Active              bool         `gorm:"not null" json:"active"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// EndDate returns the end of a validity window of durationDays starting at start.
func EndDate(start time.Time, durationDays int) time.Time {
	return start.Add(time.Duration(durationDays) * 24 * time.Hour)
}
