package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/internal/bill/domain"
	"github.com/cablebill/cablebill/internal/bill/repository"
	"github.com/cablebill/cablebill/internal/clock"
	"github.com/cablebill/cablebill/internal/config"
	customerrepo "github.com/cablebill/cablebill/internal/customer/repository"
	"github.com/cablebill/cablebill/internal/errs"
	"github.com/cablebill/cablebill/internal/notification"
	planrepo "github.com/cablebill/cablebill/internal/plan/repository"
	"github.com/cablebill/cablebill/internal/providers/pdf"
	subscriptionrepo "github.com/cablebill/cablebill/internal/subscription/repository"
	"github.com/cablebill/cablebill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var jan = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []notification.Message
	err  error
}

func (d *recordingDispatcher) Send(ctx context.Context, msg notification.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, msg)
	return nil
}

type stubRenderer struct {
	last pdf.InvoiceData
}

func (r *stubRenderer) RenderInvoice(ctx context.Context, data pdf.InvoiceData) ([]byte, error) {
	r.last = data
	return []byte("%PDF-stub"), nil
}

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	clock    *clock.FakeClock
	notifier *recordingDispatcher
	renderer *stubRenderer
}

func setup(t *testing.T) fixture {
	t.Helper()
	conn := testutil.NewDB(t)
	clk := clock.NewFakeClock(jan.AddDate(0, 0, 2))
	notifier := &recordingDispatcher{}
	renderer := &stubRenderer{}

	cfg := config.Config{Company: config.CompanyConfig{Name: "City Cable"}}
	svc := New(Params{
		DB:               conn,
		Log:              zap.NewNop(),
		Clock:            clk,
		Config:           cfg,
		Repo:             repository.Provide(),
		CustomerRepo:     customerrepo.Provide(),
		SubscriptionRepo: subscriptionrepo.Provide(),
		PlanRepo:         planrepo.Provide(),
		Renderer:         renderer,
		Notifier:         notifier,
	})

	testutil.SeedCustomer(t, conn, 1, true)
	testutil.SeedPlan(t, conn, 2, 30000, 30, true)
	testutil.SeedSubscription(t, conn, 3, 1, 2, 30000, jan, true)

	return fixture{svc: svc, db: conn, clock: clk, notifier: notifier, renderer: renderer}
}

func seedBill(t *testing.T, db *gorm.DB, id snowflake.ID, month time.Time, current, paid int64) {
	t.Helper()
	bill := &domain.Bill{
		ID:             id,
		CustomerID:     1,
		SubscriptionID: 3,
		BillMonth:      month,
		DueDate:        domain.DueDate(month, 10),
		TotalAmount:    current,
		CurrentBalance: current,
		PaidAmount:     paid,
		Status:         domain.DeriveStatus(paid, current, domain.DueDate(month, 10), month),
		InvoiceNumber:  "INV-" + month.Format("200601") + "-" + id.String(),
		CreatedAt:      month,
		UpdatedAt:      month,
	}
	inserted, err := repository.Provide().InsertIfAbsent(context.Background(), db, bill)
	require.NoError(t, err)
	require.True(t, inserted)
}

func TestGetDerivesStatusAtReadTime(t *testing.T) {
	f := setup(t)
	seedBill(t, f.db, 10, jan, 30000, 0)

	got, err := f.svc.Get(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusGenerated, got.Status)

	f.clock.Set(time.Date(2024, 1, 11, 0, 0, 1, 0, time.UTC))
	got, err = f.svc.Get(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverdue, got.Status)
}

func TestGetErrors(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Get(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = f.svc.Get(context.Background(), "999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestListFilters(t *testing.T) {
	f := setup(t)
	seedBill(t, f.db, 10, jan, 30000, 30000)
	seedBill(t, f.db, 11, jan.AddDate(0, 1, 0), 30000, 0)

	resp, err := f.svc.List(context.Background(), domain.ListBillRequest{Status: "paid"})
	require.NoError(t, err)
	require.Len(t, resp.Bills, 1)
	assert.Equal(t, snowflake.ID(10), resp.Bills[0].ID)

	resp, err = f.svc.List(context.Background(), domain.ListBillRequest{Period: "2024-02"})
	require.NoError(t, err)
	require.Len(t, resp.Bills, 1)
	assert.Equal(t, snowflake.ID(11), resp.Bills[0].ID)

	resp, err = f.svc.List(context.Background(), domain.ListBillRequest{CustomerID: "1", PageSize: 1})
	require.NoError(t, err)
	assert.Len(t, resp.Bills, 1)
	assert.True(t, resp.HasMore)

	_, err = f.svc.List(context.Background(), domain.ListBillRequest{Status: "void"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = f.svc.List(context.Background(), domain.ListBillRequest{Period: "2024-13"})
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestListMatchesStatusDerivedAtNow(t *testing.T) {
	f := setup(t)
	seedBill(t, f.db, 10, jan, 30000, 0)
	seedBill(t, f.db, 11, jan.AddDate(0, 1, 0), 30000, 10000)
	f.clock.Set(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	resp, err := f.svc.List(context.Background(), domain.ListBillRequest{Status: "overdue"})
	require.NoError(t, err)
	require.Len(t, resp.Bills, 1)
	assert.Equal(t, snowflake.ID(10), resp.Bills[0].ID)
	assert.Equal(t, domain.StatusOverdue, resp.Bills[0].Status)

	resp, err = f.svc.List(context.Background(), domain.ListBillRequest{Status: "generated"})
	require.NoError(t, err)
	assert.Empty(t, resp.Bills)

	resp, err = f.svc.List(context.Background(), domain.ListBillRequest{Status: "partially_paid"})
	require.NoError(t, err)
	require.Len(t, resp.Bills, 1)
	assert.Equal(t, snowflake.ID(11), resp.Bills[0].ID)
}

func TestListByCustomerUnknownCustomer(t *testing.T) {
	f := setup(t)
	_, err := f.svc.ListByCustomer(context.Background(), "404")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestSnapshotAndRender(t *testing.T) {
	f := setup(t)
	seedBill(t, f.db, 10, jan, 30000, 10000)

	snap, err := f.svc.Snapshot(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, "customer-1", snap.Customer.Name)
	assert.Equal(t, "plan-2", snap.Plan.Name)
	assert.Equal(t, domain.StatusPartiallyPaid, snap.Bill.Status)

	doc, err := f.svc.RenderPDF(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, "invoice-inv-202401-10.pdf", doc.FileName)
	assert.Equal(t, "City Cable", f.renderer.last.CompanyName)
	assert.Equal(t, int64(20000), f.renderer.last.Remaining)
	assert.Equal(t, "January 2024", f.renderer.last.BillMonth)
}

func TestSendInvoice(t *testing.T) {
	f := setup(t)
	seedBill(t, f.db, 10, jan, 30000, 0)

	err := f.svc.SendInvoice(context.Background(), domain.SendInvoiceRequest{BillID: "10", Method: "sms"})
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 1)
	msg := f.notifier.sent[0]
	assert.Equal(t, notification.ChannelSMS, msg.Channel)
	assert.Equal(t, "9000000001", msg.To)
	assert.Contains(t, msg.Body, "Rs. 300.00")
	assert.Contains(t, msg.Body, "Due Date: 10 Jan 2024")

	err = f.svc.SendInvoice(context.Background(), domain.SendInvoiceRequest{BillID: "10", Method: "pigeon"})
	assert.ErrorIs(t, err, notification.ErrUnsupportedChannel)
}

func TestSendInvoiceQuotesOutstandingAmount(t *testing.T) {
	f := setup(t)
	seedBill(t, f.db, 10, jan, 60000, 30000)

	err := f.svc.SendInvoice(context.Background(), domain.SendInvoiceRequest{BillID: "10", Method: "sms"})
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0].Body, "Rs. 300.00")
	assert.NotContains(t, f.notifier.sent[0].Body, "Rs. 600.00")
}

func TestSendInvoiceFailureLeavesBillUntouched(t *testing.T) {
	f := setup(t)
	seedBill(t, f.db, 10, jan, 30000, 0)
	f.notifier.err = notification.ErrUnavailable

	err := f.svc.SendInvoice(context.Background(), domain.SendInvoiceRequest{BillID: "10", Method: "whatsapp"})
	assert.True(t, errors.Is(err, errs.ErrUnavailable))

	got, err := f.svc.Get(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.PaidAmount)
	assert.Equal(t, domain.StatusGenerated, got.Status)
}

func TestRefreshOverduePersists(t *testing.T) {
	f := setup(t)
	seedBill(t, f.db, 10, jan, 30000, 0)
	seedBill(t, f.db, 11, jan.AddDate(0, 1, 0), 30000, 0)

	f.clock.Set(time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	n, err := f.svc.RefreshOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var status string
	require.NoError(t, f.db.Raw(`SELECT status FROM bills WHERE id = ?`, 10).Scan(&status).Error)
	assert.Equal(t, string(domain.StatusOverdue), status)
}
