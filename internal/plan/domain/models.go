package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Plan is a service package sold to customers. Price is in minor units.
type Plan struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"not null" json:"name"`
	Description  string       `json:"description"`
	Price        int64        `gorm:"not null" json:"price"`
	DurationDays int          `gorm:"column:duration_days;not null" json:"duration_days"`
	Active       bool         `gorm:"not null" json:"active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (Plan) TableName() string { return "plans" }
