package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SeedPlan inserts a plan row directly, bypassing service validation.
func SeedPlan(t *testing.T, db *gorm.DB, id snowflake.ID, price int64, durationDays int, active bool) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, db.Exec(
		`INSERT INTO plans (id, name, description, price, duration_days, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, fmt.Sprintf("plan-%d", id), "", price, durationDays, active, now, now,
	).Error)
}

// SeedCustomer inserts a customer row with a phone number derived from id.
func SeedCustomer(t *testing.T, db *gorm.DB, id snowflake.ID, active bool) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, db.Exec(
		`INSERT INTO customers (id, name, phone, area, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, fmt.Sprintf("customer-%d", id), fmt.Sprintf("9%09d", int64(id)%1_000_000_000), "Central", active, now, now,
	).Error)
}

// SeedSubscription inserts a subscription row.
func SeedSubscription(t *testing.T, db *gorm.DB, id, customerID, planID snowflake.ID, price int64, start time.Time, active bool) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, db.Exec(
		`INSERT INTO subscriptions (id, customer_id, plan_id, start_date, end_date, price_at_subscription, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, customerID, planID, start, start.AddDate(0, 0, 30), price, active, now, now,
	).Error)
}
