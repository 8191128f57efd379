package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cablebill/cablebill/internal/clock"
	"github.com/cablebill/cablebill/internal/errs"
	plandomain "github.com/cablebill/cablebill/internal/plan/domain"
	"github.com/cablebill/cablebill/internal/plan/repository"
	"github.com/cablebill/cablebill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupPlanService(t *testing.T) (plandomain.Service, *gorm.DB) {
	t.Helper()
	conn := testutil.NewDB(t)
	svc := New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Clock: clock.NewFakeClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return svc, conn
}

func TestCreatePlanValidation(t *testing.T) {
	svc, _ := setupPlanService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  plandomain.CreatePlanRequest
		want error
	}{
		{"empty name", plandomain.CreatePlanRequest{Name: "  ", Price: 100, DurationDays: 30}, plandomain.ErrInvalidName},
		{"negative price", plandomain.CreatePlanRequest{Name: "Basic", Price: -1, DurationDays: 30}, plandomain.ErrInvalidPrice},
		{"zero duration", plandomain.CreatePlanRequest{Name: "Basic", Price: 100, DurationDays: 0}, plandomain.ErrInvalidDuration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			require.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, errs.ErrInvalidInput)
		})
	}
}

func TestCreatePlanDefaultsActiveAndRejectsDuplicateName(t *testing.T) {
	svc, _ := setupPlanService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, plandomain.CreatePlanRequest{Name: "Basic", Price: 30000, DurationDays: 30})
	require.NoError(t, err)
	assert.True(t, created.Active)
	assert.Equal(t, int64(30000), created.Price)

	got, err := svc.Get(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Basic", got.Name)
	assert.Equal(t, 30, got.DurationDays)

	_, err = svc.Create(ctx, plandomain.CreatePlanRequest{Name: "Basic", Price: 100, DurationDays: 10})
	require.ErrorIs(t, err, plandomain.ErrNameTaken)
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestGetPlanErrors(t *testing.T) {
	svc, _ := setupPlanService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "abc")
	require.ErrorIs(t, err, plandomain.ErrInvalidID)

	_, err = svc.Get(ctx, "12345")
	require.ErrorIs(t, err, plandomain.ErrNotFound)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateAndListActiveOnly(t *testing.T) {
	svc, _ := setupPlanService(t)
	ctx := context.Background()

	basic, err := svc.Create(ctx, plandomain.CreatePlanRequest{Name: "Basic", Price: 20000, DurationDays: 30})
	require.NoError(t, err)
	premium, err := svc.Create(ctx, plandomain.CreatePlanRequest{Name: "Premium", Price: 50000, DurationDays: 30})
	require.NoError(t, err)

	price := int64(25000)
	updated, err := svc.Update(ctx, plandomain.UpdatePlanRequest{ID: basic.ID.String(), Price: &price})
	require.NoError(t, err)
	assert.Equal(t, price, updated.Price)
	assert.Equal(t, "Basic", updated.Name)

	_, err = svc.SetActive(ctx, premium.ID.String(), false)
	require.NoError(t, err)

	all, err := svc.List(ctx, plandomain.ListPlanRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.List(ctx, plandomain.ListPlanRequest{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, basic.ID, active[0].ID)

	bad := 0
	_, err = svc.Update(ctx, plandomain.UpdatePlanRequest{ID: basic.ID.String(), DurationDays: &bad})
	require.ErrorIs(t, err, plandomain.ErrInvalidDuration)
}

func TestDeleteRejectsPlanWithActiveSubscriptions(t *testing.T) {
	svc, conn := setupPlanService(t)
	ctx := context.Background()

	plan, err := svc.Create(ctx, plandomain.CreatePlanRequest{Name: "Sports", Price: 10000, DurationDays: 30})
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, conn.Exec(
		`INSERT INTO customers (id, name, phone, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		1, "Asha", "9876543210", true, now, now,
	).Error)
	require.NoError(t, conn.Exec(
		`INSERT INTO subscriptions (id, customer_id, plan_id, start_date, end_date, price_at_subscription, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		2, 1, plan.ID, now, now.AddDate(0, 0, 30), plan.Price, true, now, now,
	).Error)

	err = svc.Delete(ctx, plan.ID.String())
	require.ErrorIs(t, err, plandomain.ErrHasActiveSubscriptions)
	assert.True(t, errors.Is(err, errs.ErrInvalidState))

	require.NoError(t, conn.Exec(`UPDATE subscriptions SET active = ? WHERE id = ?`, false, 2).Error)
	require.NoError(t, conn.Exec(`DELETE FROM subscriptions WHERE id = ?`, 2).Error)
	require.NoError(t, svc.Delete(ctx, plan.ID.String()))

	_, err = svc.Get(ctx, plan.ID.String())
	require.ErrorIs(t, err, plandomain.ErrNotFound)
}
