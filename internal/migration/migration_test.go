package migration

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:migration_%d?mode=memory&cache=shared", dbSeq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return conn
}

func TestUpStatementsSplitsScripts(t *testing.T) {
	statements, err := UpStatements()
	require.NoError(t, err)
	assert.NotEmpty(t, statements)
	for _, stmt := range statements {
		assert.NotContains(t, stmt, ";")
	}
}

func TestApplySQLiteIsIdempotent(t *testing.T) {
	conn := openSQLite(t)

	require.NoError(t, Apply(conn))
	require.NoError(t, Apply(conn))

	for _, table := range []string{"users", "plans", "customers", "subscriptions", "bills", "invoice_sequences", "payments", "billing_runs", "audit_logs"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestBillPeriodUniqueness(t *testing.T) {
	conn := openSQLite(t)
	require.NoError(t, Apply(conn))

	insert := `INSERT INTO bills (id, customer_id, subscription_id, bill_month, due_date, total_amount, current_balance, status, invoice_number, created_at, updated_at)
		VALUES (?, 1, 1, '2026-01-01 00:00:00+00:00', '2026-01-10 00:00:00+00:00', 100, 100, 'generated', ?, '2026-01-01 00:00:00+00:00', '2026-01-01 00:00:00+00:00')`
	require.NoError(t, conn.Exec(insert, 1, "INV-1").Error)
	err := conn.Exec(insert, 2, "INV-2").Error
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")
}
