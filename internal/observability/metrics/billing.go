package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/cablebill/cablebill/internal/errs"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	JobReasonDeadlineExceeded     = "deadline_exceeded"
	JobReasonDBLockTimeout        = "db_lock_timeout"
	JobReasonSerializationFailure = "serialization_failure"
	JobReasonUnavailable          = "unavailable"
	JobReasonBusinessRule         = "business_rule"
	JobReasonUnknown              = "unknown"
)

// BillingMetrics captures billing engine and scheduler health.
type BillingMetrics struct {
	billsGenerated prometheus.Counter
	itemsSkipped   *prometheus.CounterVec
	itemsFailed    prometheus.Counter
	runDuration    prometheus.Histogram
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobErrors      *prometheus.CounterVec
	overdueMarked  prometheus.Counter
}

func NewBillingMetrics(registerer prometheus.Registerer) (*BillingMetrics, error) {
	m := &BillingMetrics{
		billsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cablebill_billing_bills_generated_total",
			Help: "Bills created by the billing engine.",
		}),
		itemsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cablebill_billing_items_skipped_total",
			Help: "Subscriptions skipped during a billing run by reason.",
		}, []string{"reason"}),
		itemsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cablebill_billing_items_failed_total",
			Help: "Subscriptions that failed during a billing run.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cablebill_billing_run_duration_seconds",
			Help:    "Billing run latency.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cablebill_scheduler_job_runs_total",
			Help: "Scheduler job runs by name.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cablebill_scheduler_job_duration_seconds",
			Help:    "Scheduler job latency.",
			Buckets: []float64{0.05, 0.25, 1, 5, 30, 120, 600, 1800},
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cablebill_scheduler_job_errors_total",
			Help: "Scheduler job errors by low-cardinality reason.",
		}, []string{"job", "reason"}),
		overdueMarked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cablebill_bills_marked_overdue_total",
			Help: "Bills moved to overdue by the refresh job.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.billsGenerated, m.itemsSkipped, m.itemsFailed, m.runDuration,
		m.jobRuns, m.jobDuration, m.jobErrors, m.overdueMarked,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *BillingMetrics) IncGenerated() {
	if m == nil {
		return
	}
	m.billsGenerated.Inc()
}

func (m *BillingMetrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.itemsSkipped.WithLabelValues(reason).Inc()
}

func (m *BillingMetrics) IncFailed() {
	if m == nil {
		return
	}
	m.itemsFailed.Inc()
}

func (m *BillingMetrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}

func (m *BillingMetrics) AddOverdue(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.overdueMarked.Add(float64(n))
}

func (m *BillingMetrics) ObserveJob(job string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
	if err != nil {
		m.jobErrors.WithLabelValues(job, ClassifyJobReason(err)).Inc()
	}
}

// ClassifyJobReason maps an error to a low-cardinality label.
func ClassifyJobReason(err error) string {
	if err == nil {
		return JobReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return JobReasonDeadlineExceeded
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return JobReasonDBLockTimeout
		case "40001":
			return JobReasonSerializationFailure
		}
	}
	switch errs.KindOf(err) {
	case errs.ErrUnavailable:
		return JobReasonUnavailable
	case errs.ErrInvalidState, errs.ErrInvalidInput, errs.ErrConflict, errs.ErrNotFound:
		return JobReasonBusinessRule
	}
	return JobReasonUnknown
}
