package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/cablebill/cablebill/internal/clock"
	"github.com/cablebill/cablebill/internal/customer/domain"
	"github.com/cablebill/cablebill/internal/customer/repository"
	"github.com/cablebill/cablebill/internal/errs"
	"github.com/cablebill/cablebill/internal/providers/storage"
	"github.com/cablebill/cablebill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc     domain.Service
	db      *gorm.DB
	clock   *clock.FakeClock
	storage *storage.MemoryProvider
}

func setupCustomerService(t *testing.T) fixture {
	t.Helper()
	conn := testutil.NewDB(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	store := storage.NewMemoryProvider()
	svc := New(Params{
		DB:      conn,
		Log:     zap.NewNop(),
		GenID:   testutil.NewNode(t),
		Clock:   clk,
		Repo:    repository.Provide(),
		Storage: store,
	})
	return fixture{svc: svc, db: conn, clock: clk, storage: store}
}

func TestCreateCustomerValidation(t *testing.T) {
	f := setupCustomerService(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateCustomerRequest{Name: "", Phone: "9876543210"})
	require.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ravi", Phone: "98765"})
	require.ErrorIs(t, err, domain.ErrInvalidPhone)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = f.svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ravi", Phone: "9876543210", Email: "ravi"})
	require.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestCreateCustomerUniqueness(t *testing.T) {
	f := setupCustomerService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, domain.CreateCustomerRequest{
		Name:      "Ravi Kumar",
		Phone:     "9876543210",
		Area:      "North",
		STBNumber: "STB-001",
		Metadata:  map[string]any{"connection": "hd"},
	})
	require.NoError(t, err)
	assert.True(t, created.Active)

	got, err := f.svc.Get(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "North", got.Area)
	assert.Equal(t, "hd", got.Metadata["connection"])

	_, err = f.svc.Create(ctx, domain.CreateCustomerRequest{Name: "Other", Phone: "9876543210"})
	require.ErrorIs(t, err, domain.ErrDuplicateContact)
	assert.ErrorIs(t, err, errs.ErrConflict)

	_, err = f.svc.Create(ctx, domain.CreateCustomerRequest{Name: "Other", Phone: "9000000000", STBNumber: "STB-001"})
	require.ErrorIs(t, err, domain.ErrDuplicateSTBNumber)

	// empty email and stb are not unique
	_, err = f.svc.Create(ctx, domain.CreateCustomerRequest{Name: "A", Phone: "9000000001"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, domain.CreateCustomerRequest{Name: "B", Phone: "9000000002"})
	require.NoError(t, err)
}

func TestListCustomersFiltersAndPages(t *testing.T) {
	f := setupCustomerService(t)
	ctx := context.Background()

	for i, area := range []string{"North", "North", "South"} {
		_, err := f.svc.Create(ctx, domain.CreateCustomerRequest{
			Name:  "Customer",
			Phone: "900000000" + string(rune('0'+i)),
			Area:  area,
		})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	north, err := f.svc.List(ctx, domain.ListCustomerRequest{Area: "North"})
	require.NoError(t, err)
	assert.Len(t, north.Customers, 2)
	assert.False(t, north.HasMore)

	first, err := f.svc.List(ctx, domain.ListCustomerRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Customers, 2)
	require.True(t, first.HasMore)
	assert.Equal(t, "South", first.Customers[0].Area)

	second, err := f.svc.List(ctx, domain.ListCustomerRequest{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Customers, 1)
	assert.False(t, second.HasMore)
}

func TestSetActiveAndDelete(t *testing.T) {
	f := setupCustomerService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, domain.CreateCustomerRequest{Name: "Meena", Phone: "9123456780"})
	require.NoError(t, err)

	off, err := f.svc.SetActive(ctx, created.ID.String(), false)
	require.NoError(t, err)
	assert.False(t, off.Active)

	inactive := false
	list, err := f.svc.List(ctx, domain.ListCustomerRequest{Active: &inactive})
	require.NoError(t, err)
	assert.Len(t, list.Customers, 1)

	_, err = f.svc.UploadDocument(ctx, domain.UploadDocumentRequest{
		CustomerID:  created.ID.String(),
		Kind:        domain.DocumentIDProof,
		FileName:    "Aadhaar Card.pdf",
		ContentType: "application/pdf",
		Body:        bytes.NewReader([]byte("%PDF")),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, created.ID.String()))
	_, err = f.svc.Get(ctx, created.ID.String())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteRejectsCustomerWithBills(t *testing.T) {
	f := setupCustomerService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, domain.CreateCustomerRequest{Name: "Meena", Phone: "9123456780"})
	require.NoError(t, err)

	now := f.clock.Now()
	require.NoError(t, f.db.Exec(
		`INSERT INTO plans (id, name, price, duration_days, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		10, "Basic", 30000, 30, true, now, now,
	).Error)
	require.NoError(t, f.db.Exec(
		`INSERT INTO subscriptions (id, customer_id, plan_id, start_date, end_date, price_at_subscription, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		11, created.ID, 10, now, now.AddDate(0, 0, 30), 30000, true, now, now,
	).Error)
	require.NoError(t, f.db.Exec(
		`INSERT INTO bills (id, customer_id, subscription_id, bill_month, due_date, total_amount, previous_balance, current_balance, paid_amount, status, invoice_number, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		12, created.ID, 11, now, now.AddDate(0, 0, 9), 30000, 0, 30000, 0, "generated", "INV-202403-000001", now, now,
	).Error)

	err = f.svc.Delete(ctx, created.ID.String())
	require.ErrorIs(t, err, domain.ErrHasBillingHistory)
	assert.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestUploadAndVerifyDocument(t *testing.T) {
	f := setupCustomerService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, domain.CreateCustomerRequest{Name: "Meena", Phone: "9123456780"})
	require.NoError(t, err)

	_, err = f.svc.VerifyDocument(ctx, created.ID.String(), domain.DocumentAddressProof, true)
	require.ErrorIs(t, err, domain.ErrDocumentNotFound)

	uploaded, err := f.svc.UploadDocument(ctx, domain.UploadDocumentRequest{
		CustomerID:  created.ID.String(),
		Kind:        domain.DocumentAddressProof,
		FileName:    "Electricity Bill.JPG",
		ContentType: "image/jpeg",
		Body:        bytes.NewReader([]byte("jpeg")),
	})
	require.NoError(t, err)
	assert.Contains(t, uploaded.AddressProofKey, "address_proof")
	assert.Contains(t, uploaded.AddressProofKey, "electricity-bill.jpg")
	assert.True(t, f.storage.Has(uploaded.AddressProofKey))
	assert.False(t, uploaded.AddressProofVerified)

	verified, err := f.svc.VerifyDocument(ctx, created.ID.String(), domain.DocumentAddressProof, true)
	require.NoError(t, err)
	assert.True(t, verified.AddressProofVerified)

	// a new upload needs to be verified again
	f.clock.Advance(time.Hour)
	replaced, err := f.svc.UploadDocument(ctx, domain.UploadDocumentRequest{
		CustomerID:  created.ID.String(),
		Kind:        domain.DocumentAddressProof,
		FileName:    "bill.png",
		ContentType: "image/png",
		Body:        bytes.NewReader([]byte("png")),
	})
	require.NoError(t, err)
	assert.False(t, replaced.AddressProofVerified)
	assert.False(t, f.storage.Has(uploaded.AddressProofKey))
}
