package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/cablebill/cablebill/internal/bill/domain"
	"github.com/cablebill/cablebill/internal/bill/format"
	billservice "github.com/cablebill/cablebill/internal/bill/service"
	"github.com/cablebill/cablebill/internal/billing/domain"
	"github.com/cablebill/cablebill/internal/clock"
	"github.com/cablebill/cablebill/internal/config"
	customerdomain "github.com/cablebill/cablebill/internal/customer/domain"
	"github.com/cablebill/cablebill/internal/errs"
	"github.com/cablebill/cablebill/internal/lock"
	"github.com/cablebill/cablebill/internal/notification"
	"github.com/cablebill/cablebill/internal/observability/metrics"
	plandomain "github.com/cablebill/cablebill/internal/plan/domain"
	subscriptiondomain "github.com/cablebill/cablebill/internal/subscription/domain"
	"github.com/cablebill/cablebill/pkg/db"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	planCacheSize    = 512
	notifyTimeout    = 15 * time.Second
	lockReleaseGrace = 5 * time.Second
)

// errAlreadyBilled aborts the item transaction when a concurrent run wrote
// the period's bill first.
var errAlreadyBilled = errors.New("bill already exists for period")

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Clock            clock.Clock
	Config           *config.BillingConfigHolder
	Repo             domain.Repository
	BillRepo         billdomain.Repository
	CustomerRepo     customerdomain.Repository
	SubscriptionRepo subscriptiondomain.Repository
	PlanRepo         plandomain.Repository
	Locker           *lock.Locker            `optional:"true"`
	Notifier         notification.Dispatcher `optional:"true"`
	Metrics          *metrics.BillingMetrics `optional:"true"`
}

type Engine struct {
	db               *gorm.DB
	log              *zap.Logger
	genID            *snowflake.Node
	clock            clock.Clock
	cfg              *config.BillingConfigHolder
	repo             domain.Repository
	billRepo         billdomain.Repository
	customerRepo     customerdomain.Repository
	subscriptionRepo subscriptiondomain.Repository
	planRepo         plandomain.Repository
	locker           *lock.Locker
	notifier         notification.Dispatcher
	metrics          *metrics.BillingMetrics
}

func New(p Params) domain.Engine {
	return &Engine{
		db:               p.DB,
		log:              p.Log.Named("billing.engine"),
		genID:            p.GenID,
		clock:            p.Clock,
		cfg:              p.Config,
		repo:             p.Repo,
		billRepo:         p.BillRepo,
		customerRepo:     p.CustomerRepo,
		subscriptionRepo: p.SubscriptionRepo,
		planRepo:         p.PlanRepo,
		locker:           p.Locker,
		notifier:         p.Notifier,
		metrics:          p.Metrics,
	}
}

// run carries the state of one invocation.
type run struct {
	result    *domain.RunResult
	cfg       config.BillingConfig
	billMonth time.Time
	dueDate   time.Time
	template  string
	plans     *lru.Cache[snowflake.ID, *plandomain.Plan]
	log       *zap.Logger
}

type itemOutcome struct {
	bill       *billdomain.Bill
	customer   *customerdomain.Customer
	plan       *plandomain.Plan
	skipReason string
}

// Run bills every active subscription for the month containing req.Period.
// Re-running a period is a no-op for subscriptions that already have a bill.
// Only whole-run failures are returned as errors; per-subscription failures
// are reported in the result.
func (e *Engine) Run(ctx context.Context, req domain.RunRequest) (*domain.RunResult, error) {
	cfg := e.cfg.Get()
	billMonth := billdomain.MonthStart(req.Period)
	period := billdomain.PeriodOf(billMonth)
	trigger := strings.TrimSpace(req.Trigger)
	if trigger == "" {
		trigger = domain.TriggerManual
	}

	result := &domain.RunResult{
		RunID:     ulid.Make().String(),
		Period:    period,
		Trigger:   trigger,
		Failures:  []domain.ItemFailure{},
		StartedAt: e.clock.Now(),
	}
	log := e.log.With(
		zap.String("run_id", result.RunID),
		zap.String("period", period),
		zap.String("trigger", trigger),
	)

	release, err := e.acquire(ctx, period, cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	plans, err := lru.New[snowflake.ID, *plandomain.Plan](planCacheSize)
	if err != nil {
		return nil, err
	}
	r := &run{
		result:    result,
		cfg:       cfg,
		billMonth: billMonth,
		dueDate:   billdomain.DueDate(billMonth, cfg.DueDay),
		template:  format.InvoiceNumberTemplate(cfg.InvoicePrefix),
		plans:     plans,
		log:       log,
	}

	log.Info("billing run started", zap.Time("due_date", r.dueDate))

	subs, err := e.subscriptionRepo.ListActive(ctx, e.db)
	if err != nil {
		return nil, errs.Unavailable(err)
	}
	result.Eligible = len(subs)

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			e.finish(r, domain.RunStatusAborted)
			return result, err
		}
		e.processItem(ctx, r, sub)
	}

	status := domain.RunStatusCompleted
	if result.Failed > 0 {
		status = domain.RunStatusPartial
	}
	e.finish(r, status)
	return result, nil
}

func (e *Engine) ListRuns(ctx context.Context, period string, limit int) ([]domain.RunResult, error) {
	period = strings.TrimSpace(period)
	if period != "" {
		month, err := billdomain.ParsePeriod(period)
		if err != nil {
			return nil, err
		}
		period = billdomain.PeriodOf(month)
	}

	runs, err := e.repo.ListRuns(ctx, e.db, period, limit)
	if err != nil {
		return nil, err
	}
	results := make([]domain.RunResult, 0, len(runs))
	for _, run := range runs {
		results = append(results, run.Result())
	}
	return results, nil
}

// acquire takes the cross-process run lock for period when redis is
// configured. Without it the unique period index still prevents duplicates.
func (e *Engine) acquire(ctx context.Context, period string, ttl time.Duration) (func(), error) {
	if !e.locker.Enabled() {
		return func() {}, nil
	}

	key := "billing:run:" + period
	token, ok, err := e.locker.TryLock(ctx, key, ttl)
	if err != nil {
		return nil, errs.Unavailable(err)
	}
	if !ok {
		return nil, domain.ErrRunInProgress
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), lockReleaseGrace)
		defer cancel()
		if err := e.locker.Release(releaseCtx, key, token); err != nil {
			e.log.Warn("failed to release billing run lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (e *Engine) processItem(ctx context.Context, r *run, sub *subscriptiondomain.Subscription) {
	log := r.log.With(
		zap.String("customer_id", sub.CustomerID.String()),
		zap.String("subscription_id", sub.ID.String()),
	)

	outcome, err := e.billSubscription(ctx, r, sub)
	if err != nil {
		r.result.Failed++
		r.result.Failures = append(r.result.Failures, domain.ItemFailure{
			CustomerID:     sub.CustomerID.String(),
			SubscriptionID: sub.ID.String(),
			Reason:         failureReason(err),
		})
		e.metrics.IncFailed()
		log.Error("failed to bill subscription", zap.Error(err))
		return
	}

	if outcome.skipReason != "" {
		r.result.Skipped++
		e.metrics.IncSkipped(outcome.skipReason)
		log.Info("subscription skipped", zap.String("reason", outcome.skipReason))
		return
	}

	r.result.Generated++
	e.metrics.IncGenerated()
	log.Info("bill generated",
		zap.String("bill_id", outcome.bill.ID.String()),
		zap.String("invoice_number", outcome.bill.InvoiceNumber),
		zap.Int64("previous_balance", outcome.bill.PreviousBalance),
		zap.Int64("current_balance", outcome.bill.CurrentBalance),
	)

	if r.cfg.NotifyOnGenerate {
		e.notifyGenerated(ctx, log, outcome, sub)
	}
}

func (e *Engine) billSubscription(ctx context.Context, r *run, sub *subscriptiondomain.Subscription) (itemOutcome, error) {
	customer, err := e.customerRepo.FindByID(ctx, e.db, sub.CustomerID)
	if err != nil {
		return itemOutcome{}, err
	}
	if customer == nil {
		return itemOutcome{skipReason: domain.SkipCustomerMissing}, nil
	}
	if !customer.Active {
		return itemOutcome{skipReason: domain.SkipCustomerInactive}, nil
	}

	plan, err := e.loadPlan(ctx, r, sub.PlanID)
	if err != nil {
		return itemOutcome{}, err
	}
	if plan == nil {
		return itemOutcome{skipReason: domain.SkipPlanMissing}, nil
	}

	existing, err := e.billRepo.FindByPeriod(ctx, e.db, sub.CustomerID, sub.ID, r.billMonth)
	if err != nil {
		return itemOutcome{}, err
	}
	if existing != nil {
		return itemOutcome{skipReason: domain.SkipAlreadyBilled}, nil
	}

	// A second attempt draws a fresh sequence number; anything beyond that is
	// reported rather than retried.
	var bill *billdomain.Bill
	for attempt := 0; attempt < 2; attempt++ {
		bill, err = e.createBill(ctx, r, sub, plan)
		if err == nil {
			break
		}
		if errors.Is(err, errAlreadyBilled) {
			return itemOutcome{skipReason: domain.SkipAlreadyBilled}, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return itemOutcome{}, err
		}

		// The period insert ignores its own conflict, so a duplicate here is
		// the invoice number unless the driver says otherwise.
		constraint := db.DuplicateKeyConstraint(err)
		if constraint != "" && !strings.Contains(constraint, "invoice_number") {
			return itemOutcome{}, billdomain.ErrDuplicatePeriod
		}
		r.log.Warn("invoice number collision",
			zap.String("subscription_id", sub.ID.String()),
			zap.Int("attempt", attempt+1),
		)
		err = billdomain.ErrDuplicateInvoiceNumber
	}
	if err != nil {
		return itemOutcome{}, err
	}

	return itemOutcome{bill: bill, customer: customer, plan: plan}, nil
}

// createBill draws the invoice number outside the item transaction so a
// rolled-back attempt never hands its number to the retry; gaps are allowed.
func (e *Engine) createBill(ctx context.Context, r *run, sub *subscriptiondomain.Subscription, plan *plandomain.Plan) (*billdomain.Bill, error) {
	seq, err := e.billRepo.NextInvoiceSequence(ctx, e.db, r.result.Period)
	if err != nil {
		return nil, err
	}
	invoiceNumber, err := format.InvoiceNumber(r.template, r.billMonth, seq)
	if err != nil {
		return nil, err
	}

	var bill *billdomain.Bill
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var previousBalance int64
		prior, err := e.billRepo.FindLatestUnsettledBefore(ctx, tx, sub.CustomerID, sub.ID, r.billMonth)
		if err != nil {
			return err
		}
		if prior != nil {
			previousBalance = prior.Outstanding()
		}

		now := e.clock.Now()
		current := plan.Price + previousBalance
		status := billdomain.StatusGenerated
		if current <= 0 {
			status = billdomain.StatusPaid
		}
		bill = &billdomain.Bill{
			ID:              e.genID.Generate(),
			CustomerID:      sub.CustomerID,
			SubscriptionID:  sub.ID,
			BillMonth:       r.billMonth,
			DueDate:         r.dueDate,
			TotalAmount:     plan.Price,
			PreviousBalance: previousBalance,
			CurrentBalance:  current,
			PaidAmount:      0,
			Status:          status,
			InvoiceNumber:   invoiceNumber,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		inserted, err := e.billRepo.InsertIfAbsent(ctx, tx, bill)
		if err != nil {
			return err
		}
		if !inserted {
			return errAlreadyBilled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

func (e *Engine) loadPlan(ctx context.Context, r *run, id snowflake.ID) (*plandomain.Plan, error) {
	if plan, ok := r.plans.Get(id); ok {
		return plan, nil
	}
	plan, err := e.planRepo.FindByID(ctx, e.db, id)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		r.plans.Add(id, plan)
	}
	return plan, nil
}

// notifyGenerated announces a new bill by SMS. Delivery failures are logged
// and never affect the run.
func (e *Engine) notifyGenerated(ctx context.Context, log *zap.Logger, outcome itemOutcome, sub *subscriptiondomain.Subscription) {
	if e.notifier == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	msg := billservice.InvoiceMessage(notification.ChannelSMS, &billdomain.Snapshot{
		Bill:         *outcome.bill,
		Customer:     *outcome.customer,
		Subscription: *sub,
		Plan:         *outcome.plan,
	})
	if err := e.notifier.Send(sendCtx, msg); err != nil {
		log.Warn("bill notification failed", zap.Error(err))
	}
}

func (e *Engine) finish(r *run, status string) {
	result := r.result
	result.Status = status
	result.FinishedAt = e.clock.Now()
	e.metrics.ObserveRun(result.FinishedAt.Sub(result.StartedAt))

	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.repo.InsertRun(persistCtx, e.db, domain.RunFromResult(result)); err != nil {
		r.log.Warn("failed to persist billing run summary", zap.Error(err))
	}

	r.log.Info("billing run finished",
		zap.String("status", status),
		zap.Int("eligible", result.Eligible),
		zap.Int("generated", result.Generated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
}

func failureReason(err error) string {
	if code := errs.Code(err); code != "" {
		return code
	}
	return err.Error()
}
