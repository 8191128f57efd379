package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/cablebill/cablebill/internal/bill/domain"
	billingdomain "github.com/cablebill/cablebill/internal/billing/domain"
	"github.com/cablebill/cablebill/internal/clock"
	"github.com/cablebill/cablebill/internal/config"
	"github.com/cablebill/cablebill/internal/observability/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobGenerateBills  = "generate_bills"
	JobRefreshOverdue = "refresh_overdue"
)

var ErrInvalidConfig = errors.New("invalid scheduler config")

type Params struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Billing *config.BillingConfigHolder
	Engine  billingdomain.Engine
	Bills   billdomain.Service
	Metrics *metrics.BillingMetrics `optional:"true"`
	Config  Config                  `optional:"true"`
}

// Scheduler triggers the monthly billing run and the daily overdue refresh.
// Schedules follow billing.yml and are rebuilt when it changes.
type Scheduler struct {
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	cfg     Config
	billing *config.BillingConfigHolder
	engine  billingdomain.Engine
	bills   billdomain.Service
	metrics *metrics.BillingMetrics

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Billing == nil || p.Engine == nil || p.Bills == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		genID:   p.GenID,
		clock:   p.Clock,
		cfg:     p.Config.withDefaults(),
		billing: p.Billing,
		engine:  p.Engine,
		bills:   p.Bills,
		metrics: p.Metrics,
	}

	c, err := s.build(p.Billing.Get())
	if err != nil {
		return nil, err
	}
	s.cron = c
	return s, nil
}

func (s *Scheduler) build(cfg config.BillingConfig) (*cron.Cron, error) {
	logger := cronLogger{log: s.log.Sugar()}
	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(cfg.CronSpec(), func() {
		_ = s.GenerateBills(context.Background())
	}); err != nil {
		return nil, err
	}
	if spec := strings.TrimSpace(cfg.OverdueSchedule); spec != "" {
		if _, err := c.AddFunc(spec, func() {
			_ = s.RefreshOverdue(context.Background())
		}); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true

	cfg := s.billing.Get()
	s.log.Info("scheduler started",
		zap.String("generate_schedule", cfg.CronSpec()),
		zap.String("overdue_schedule", cfg.OverdueSchedule),
		zap.String("timezone", cfg.Location().String()),
	)
}

// Stop halts scheduling and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	done := s.cron.Stop()
	s.running = false
	s.mu.Unlock()

	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stopped before running jobs finished")
	}
}

// Reload swaps in schedules built from cfg. Jobs already running finish on
// the old schedule.
func (s *Scheduler) Reload(cfg config.BillingConfig) error {
	next, err := s.build(cfg)
	if err != nil {
		s.log.Error("billing schedule reload rejected", zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cron
	s.cron = next
	if s.running {
		prev.Stop()
		next.Start()
	}
	s.log.Info("billing schedule reloaded",
		zap.String("generate_schedule", cfg.CronSpec()),
		zap.String("overdue_schedule", cfg.OverdueSchedule),
		zap.String("timezone", cfg.Location().String()),
	)
	return nil
}

// Entries returns the currently scheduled jobs.
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron.Entries()
}

// RunOnce runs bill generation for the current month immediately.
func (s *Scheduler) RunOnce(ctx context.Context) (*billingdomain.RunResult, error) {
	var result *billingdomain.RunResult
	err := s.runJob(ctx, JobGenerateBills, s.cfg.GenerateTimeout, func(ctx context.Context) error {
		var err error
		result, err = s.generate(ctx)
		return err
	})
	return result, err
}

func (s *Scheduler) GenerateBills(ctx context.Context) error {
	return s.runJob(ctx, JobGenerateBills, s.cfg.GenerateTimeout, func(ctx context.Context) error {
		_, err := s.generate(ctx)
		return err
	})
}

func (s *Scheduler) RefreshOverdue(ctx context.Context) error {
	return s.runJob(ctx, JobRefreshOverdue, s.cfg.RefreshTimeout, func(ctx context.Context) error {
		n, err := s.bills.RefreshOverdue(ctx)
		jobRunFromContext(ctx).AddProcessed(int(n))
		return err
	})
}

// CurrentPeriod is the month that is current in the billing timezone.
func (s *Scheduler) CurrentPeriod() time.Time {
	return billdomain.MonthStart(s.clock.Now().In(s.billing.Get().Location()))
}

func (s *Scheduler) generate(ctx context.Context) (*billingdomain.RunResult, error) {
	result, err := s.engine.Run(ctx, billingdomain.RunRequest{
		Period:  s.CurrentPeriod(),
		Trigger: billingdomain.TriggerScheduler,
	})
	if result != nil {
		run := jobRunFromContext(ctx)
		run.AddProcessed(result.Generated)
		run.AddErrors(result.Failed)
	}
	return result, err
}

// runJob bounds fn with timeout and records logs and metrics. A job that
// runs out of time is not an error: every job is safe to re-run.
func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, name)
	s.logJobStart(ctx, run)

	err := fn(ctx)
	s.metrics.ObserveJob(name, s.clock.Now().Sub(run.startedAt), err)
	s.logJobFinish(ctx, run, err)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.String("run_id", run.runID),
			zap.Duration("timeout", timeout),
		)
		return nil
	}
	return err
}
