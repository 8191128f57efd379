package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cablebill/cablebill/internal/errs"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, JobReasonDeadlineExceeded},
		{"lock_timeout", &pgconn.PgError{Code: "55P03"}, JobReasonDBLockTimeout},
		{"serialization", &pgconn.PgError{Code: "40001"}, JobReasonSerializationFailure},
		{"unavailable", errs.Unavailable(errors.New("down")), JobReasonUnavailable},
		{"business_rule", errs.New(errs.ErrInvalidState, "run_in_progress"), JobReasonBusinessRule},
		{"unknown", errors.New("boom"), JobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyJobReason(tc.err))
		})
	}
}

func TestBillingMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewBillingMetrics(reg)
	require.NoError(t, err)

	m.IncGenerated()
	m.IncGenerated()
	m.IncSkipped("already_billed")
	m.IncFailed()
	m.AddOverdue(3)
	m.ObserveJob("generate_bills", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.billsGenerated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.itemsSkipped.WithLabelValues("already_billed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.itemsFailed))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.overdueMarked))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobErrors.WithLabelValues("generate_bills", JobReasonUnknown)))
}

func TestNilBillingMetricsIsSafe(t *testing.T) {
	var m *BillingMetrics
	m.IncGenerated()
	m.IncSkipped("x")
	m.ObserveJob("x", time.Second, nil)
}
