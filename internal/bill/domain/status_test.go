package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	before := due.Add(-time.Hour)
	after := due.Add(time.Hour)

	cases := []struct {
		name    string
		paid    int64
		current int64
		now     time.Time
		want    Status
	}{
		{"fully paid", 600, 600, before, StatusPaid},
		{"fully paid after due", 600, 600, after, StatusPaid},
		{"overpaid", 700, 600, before, StatusPaid},
		{"zero balance bill", 0, 0, after, StatusPaid},
		{"partial before due", 300, 600, before, StatusPartiallyPaid},
		{"partial after due stays partial", 300, 600, after, StatusPartiallyPaid},
		{"unpaid after due", 0, 600, after, StatusOverdue},
		{"unpaid before due", 0, 600, before, StatusGenerated},
		{"unpaid exactly at due", 0, 600, due, StatusGenerated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(tc.paid, tc.current, due, tc.now))
		})
	}
}

// Every input maps to exactly one status from the state machine.
func TestDeriveStatusTotal(t *testing.T) {
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	valid := map[Status]bool{StatusGenerated: true, StatusPartiallyPaid: true, StatusPaid: true, StatusOverdue: true}
	for paid := int64(0); paid <= 1000; paid += 50 {
		for current := int64(0); current <= 1000; current += 50 {
			for _, now := range []time.Time{due.AddDate(0, 0, -1), due, due.AddDate(0, 0, 1)} {
				status := DeriveStatus(paid, current, due, now)
				assert.True(t, valid[status])
				if current-paid <= 0 {
					assert.Equal(t, StatusPaid, status)
				}
			}
		}
	}
}

func TestOutstanding(t *testing.T) {
	b := Bill{CurrentBalance: 500, PaidAmount: 200}
	assert.Equal(t, int64(300), b.Outstanding())
	assert.False(t, b.Settled())

	b.PaidAmount = 650
	assert.Equal(t, int64(0), b.Outstanding())
	assert.True(t, b.Settled())
}
