package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	billdomain "github.com/cablebill/cablebill/internal/bill/domain"
	billrepo "github.com/cablebill/cablebill/internal/bill/repository"
	"github.com/cablebill/cablebill/internal/billing/domain"
	"github.com/cablebill/cablebill/internal/billing/repository"
	"github.com/cablebill/cablebill/internal/clock"
	"github.com/cablebill/cablebill/internal/config"
	customerrepo "github.com/cablebill/cablebill/internal/customer/repository"
	"github.com/cablebill/cablebill/internal/lock"
	"github.com/cablebill/cablebill/internal/notification"
	planrepo "github.com/cablebill/cablebill/internal/plan/repository"
	subscriptionrepo "github.com/cablebill/cablebill/internal/subscription/repository"
	"github.com/cablebill/cablebill/internal/testutil"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	jan = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

type captureDispatcher struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (d *captureDispatcher) Send(ctx context.Context, msg notification.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, msg)
	return nil
}

type engineFixture struct {
	engine domain.Engine
	db     *gorm.DB
	clock  *clock.FakeClock
}

type engineOption func(*Params)

func withLocker(l *lock.Locker) engineOption {
	return func(p *Params) { p.Locker = l }
}

func withNotifier(d notification.Dispatcher) engineOption {
	return func(p *Params) { p.Notifier = d }
}

func newEngine(t *testing.T, cfg config.BillingConfig, opts ...engineOption) engineFixture {
	t.Helper()
	conn := testutil.NewDB(t)
	clk := clock.NewFakeClock(jan.Add(2 * time.Hour))

	p := Params{
		DB:               conn,
		Log:              zap.NewNop(),
		GenID:            testutil.NewNode(t),
		Clock:            clk,
		Config:           config.NewStaticBillingConfig(cfg),
		Repo:             repository.Provide(),
		BillRepo:         billrepo.Provide(),
		CustomerRepo:     customerrepo.Provide(),
		SubscriptionRepo: subscriptionrepo.Provide(),
		PlanRepo:         planrepo.Provide(),
	}
	for _, opt := range opts {
		opt(&p)
	}
	return engineFixture{engine: New(p), db: conn, clock: clk}
}

func defaultEngine(t *testing.T, opts ...engineOption) engineFixture {
	return newEngine(t, config.DefaultBillingConfig(), opts...)
}

func billFor(t *testing.T, db *gorm.DB, subscriptionID snowflake.ID, month time.Time) *billdomain.Bill {
	t.Helper()
	var bills []billdomain.Bill
	require.NoError(t, db.Where("subscription_id = ? AND bill_month = ?", subscriptionID, month).Find(&bills).Error)
	require.Len(t, bills, 1, "expected exactly one bill for subscription %d in %s", subscriptionID, month.Format("2006-01"))
	return &bills[0]
}

func countBills(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&billdomain.Bill{}).Count(&n).Error)
	return n
}

func pay(t *testing.T, db *gorm.DB, billID snowflake.ID, amount int64) {
	t.Helper()
	require.NoError(t, db.Exec(
		`UPDATE bills SET paid_amount = paid_amount + ?,
		 status = CASE WHEN current_balance - (paid_amount + ?) <= 0 THEN 'paid' ELSE 'partially_paid' END
		 WHERE id = ?`, amount, amount, billID).Error)
}

func seedActive(t *testing.T, db *gorm.DB, customerID, planID, subscriptionID snowflake.ID, price int64) {
	t.Helper()
	testutil.SeedCustomer(t, db, customerID, true)
	testutil.SeedPlan(t, db, planID, price, 30, true)
	testutil.SeedSubscription(t, db, subscriptionID, customerID, planID, price, jan, true)
}

func TestRunIsIdempotent(t *testing.T) {
	f := defaultEngine(t)
	ctx := context.Background()
	seedActive(t, f.db, 1, 2, 3, 30000)
	seedActive(t, f.db, 4, 5, 6, 45000)

	first, err := f.engine.Run(ctx, domain.RunRequest{Period: jan})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Eligible)
	assert.Equal(t, 2, first.Generated)
	assert.Equal(t, domain.RunStatusCompleted, first.Status)

	second, err := f.engine.Run(ctx, domain.RunRequest{Period: jan.AddDate(0, 0, 14)})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Generated)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, int64(2), countBills(t, f.db))
}

func TestRunCreatesBillFromPlanPrice(t *testing.T) {
	f := defaultEngine(t)
	seedActive(t, f.db, 1, 2, 3, 30000)

	_, err := f.engine.Run(context.Background(), domain.RunRequest{Period: jan})
	require.NoError(t, err)

	bill := billFor(t, f.db, 3, jan)
	assert.Equal(t, int64(30000), bill.TotalAmount)
	assert.Equal(t, int64(0), bill.PreviousBalance)
	assert.Equal(t, int64(30000), bill.CurrentBalance)
	assert.Equal(t, int64(0), bill.PaidAmount)
	assert.Equal(t, billdomain.StatusGenerated, bill.Status)
	assert.True(t, bill.DueDate.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "INV-202401-000001", bill.InvoiceNumber)
}

func TestRunCarriesForwardLatestUnpaidBill(t *testing.T) {
	f := defaultEngine(t)
	ctx := context.Background()
	seedActive(t, f.db, 1, 2, 3, 50000)

	_, err := f.engine.Run(ctx, domain.RunRequest{Period: jan})
	require.NoError(t, err)
	janBill := billFor(t, f.db, 3, jan)
	pay(t, f.db, janBill.ID, 20000)

	require.NoError(t, f.db.Exec(`UPDATE plans SET price = ? WHERE id = ?`, 30000, 2).Error)
	_, err = f.engine.Run(ctx, domain.RunRequest{Period: feb})
	require.NoError(t, err)

	febBill := billFor(t, f.db, 3, feb)
	assert.Equal(t, int64(30000), febBill.TotalAmount)
	assert.Equal(t, int64(30000), febBill.PreviousBalance)
	assert.Equal(t, int64(60000), febBill.CurrentBalance)
}

func TestRunChainsBalancesWithoutDoubleCounting(t *testing.T) {
	f := defaultEngine(t)
	ctx := context.Background()
	seedActive(t, f.db, 1, 2, 3, 30000)

	for _, month := range []time.Time{jan, feb, mar} {
		_, err := f.engine.Run(ctx, domain.RunRequest{Period: month})
		require.NoError(t, err)
	}

	assert.Equal(t, int64(0), billFor(t, f.db, 3, jan).PreviousBalance)
	assert.Equal(t, int64(30000), billFor(t, f.db, 3, feb).PreviousBalance)
	marBill := billFor(t, f.db, 3, mar)
	assert.Equal(t, int64(60000), marBill.PreviousBalance)
	assert.Equal(t, int64(90000), marBill.CurrentBalance)
}

func TestRunZeroCarryForwardWhenSettled(t *testing.T) {
	f := defaultEngine(t)
	ctx := context.Background()
	seedActive(t, f.db, 1, 2, 3, 30000)

	_, err := f.engine.Run(ctx, domain.RunRequest{Period: jan})
	require.NoError(t, err)
	pay(t, f.db, billFor(t, f.db, 3, jan).ID, 30000)

	_, err = f.engine.Run(ctx, domain.RunRequest{Period: feb})
	require.NoError(t, err)
	febBill := billFor(t, f.db, 3, feb)
	assert.Equal(t, int64(0), febBill.PreviousBalance)
	assert.Equal(t, int64(30000), febBill.CurrentBalance)
}

func TestRunSkipsIneligibleSubscriptions(t *testing.T) {
	f := defaultEngine(t)
	seedActive(t, f.db, 1, 2, 3, 30000)

	testutil.SeedCustomer(t, f.db, 10, false)
	testutil.SeedSubscription(t, f.db, 11, 10, 2, 30000, jan, true)

	testutil.SeedCustomer(t, f.db, 20, true)
	testutil.SeedSubscription(t, f.db, 21, 20, 999, 30000, jan, true)

	testutil.SeedSubscription(t, f.db, 31, 777, 2, 30000, jan, true)

	result, err := f.engine.Run(context.Background(), domain.RunRequest{Period: jan})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Eligible)
	assert.Equal(t, 1, result.Generated)
	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, int64(1), countBills(t, f.db))
}

func TestRunRetriesInvoiceNumberCollision(t *testing.T) {
	f := defaultEngine(t)
	ctx := context.Background()
	seedActive(t, f.db, 1, 2, 3, 30000)
	seedActive(t, f.db, 4, 5, 6, 30000)

	// an imported bill already holds the first number of the month
	require.NoError(t, f.db.Exec(
		`INSERT INTO bills (id, customer_id, subscription_id, bill_month, due_date, total_amount,
		 previous_balance, current_balance, paid_amount, status, invoice_number, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		500, 4, 6, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 12, 10, 0, 0, 0, 0, time.UTC),
		30000, 0, 30000, 30000, "paid", "INV-202401-000001", jan, jan,
	).Error)

	result, err := f.engine.Run(ctx, domain.RunRequest{Period: jan})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Generated)
	assert.Equal(t, 0, result.Failed)

	assert.Equal(t, "INV-202401-000002", billFor(t, f.db, 3, jan).InvoiceNumber)
	assert.Equal(t, "INV-202401-000003", billFor(t, f.db, 6, jan).InvoiceNumber)
}

func TestRunPersistsSummary(t *testing.T) {
	f := defaultEngine(t)
	ctx := context.Background()
	seedActive(t, f.db, 1, 2, 3, 30000)

	result, err := f.engine.Run(ctx, domain.RunRequest{Period: jan, Trigger: domain.TriggerCLI})
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)

	runs, err := f.engine.ListRuns(ctx, "2024-01", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].RunID)
	assert.Equal(t, domain.TriggerCLI, runs[0].Trigger)
	assert.Equal(t, 1, runs[0].Generated)
	assert.Empty(t, runs[0].Failures)

	_, err = f.engine.ListRuns(ctx, "January", 10)
	assert.ErrorIs(t, err, billdomain.ErrInvalidPeriod)
}

func TestRunRejectsOverlappingInvocation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := lock.NewLocker(client)

	f := defaultEngine(t, withLocker(locker))
	seedActive(t, f.db, 1, 2, 3, 30000)

	token, ok, err := locker.TryLock(context.Background(), "billing:run:2024-01", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.engine.Run(context.Background(), domain.RunRequest{Period: jan})
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	assert.Equal(t, int64(0), countBills(t, f.db))

	require.NoError(t, locker.Release(context.Background(), "billing:run:2024-01", token))
	result, err := f.engine.Run(context.Background(), domain.RunRequest{Period: jan})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Generated)
	assert.False(t, mr.Exists("billing:run:2024-01"))
}

func TestRunNotifiesWhenConfigured(t *testing.T) {
	cfg := config.DefaultBillingConfig()
	cfg.NotifyOnGenerate = true
	dispatcher := &captureDispatcher{}
	f := newEngine(t, cfg, withNotifier(dispatcher))
	seedActive(t, f.db, 1, 2, 3, 30000)

	_, err := f.engine.Run(context.Background(), domain.RunRequest{Period: jan})
	require.NoError(t, err)

	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, notification.ChannelSMS, dispatcher.sent[0].Channel)
	assert.Contains(t, dispatcher.sent[0].Body, "INV-202401-000001")
}

func TestScenarioAssignBillPayBill(t *testing.T) {
	f := defaultEngine(t)
	ctx := context.Background()
	seedActive(t, f.db, 1, 2, 3, 300)

	_, err := f.engine.Run(ctx, domain.RunRequest{Period: jan})
	require.NoError(t, err)
	janBill := billFor(t, f.db, 3, jan)
	assert.Equal(t, int64(300), janBill.TotalAmount)
	assert.Equal(t, int64(0), janBill.PreviousBalance)
	assert.Equal(t, int64(300), janBill.CurrentBalance)
	assert.Equal(t, billdomain.StatusGenerated, janBill.Status)

	pay(t, f.db, janBill.ID, 300)
	assert.Equal(t, billdomain.StatusPaid, billFor(t, f.db, 3, jan).Status)

	_, err = f.engine.Run(ctx, domain.RunRequest{Period: feb})
	require.NoError(t, err)
	febBill := billFor(t, f.db, 3, feb)
	assert.Equal(t, int64(0), febBill.PreviousBalance)
	assert.Equal(t, int64(300), febBill.CurrentBalance)
}
