package domain

import (
	"strings"
	"time"
)

const periodLayout = "2006-01"

// ParsePeriod parses "YYYY-MM" into the first instant of that month in UTC.
func ParsePeriod(value string) (time.Time, error) {
	t, err := time.Parse(periodLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, ErrInvalidPeriod
	}
	return MonthStart(t), nil
}

// MonthStart returns the bill month containing t.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodOf names the bill month as "YYYY-MM".
func PeriodOf(billMonth time.Time) string {
	return billMonth.Format(periodLayout)
}

// DueDate places dueDay inside the bill month, clamped to the month's last day.
func DueDate(billMonth time.Time, dueDay int) time.Time {
	if dueDay < 1 {
		dueDay = 1
	}
	last := billMonth.AddDate(0, 1, -1).Day()
	if dueDay > last {
		dueDay = last
	}
	return time.Date(billMonth.Year(), billMonth.Month(), dueDay, 0, 0, 0, 0, time.UTC)
}
