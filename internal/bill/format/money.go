package format

import (
	"fmt"
	"time"
)

// Amount renders minor units as a decimal with two places: 30050 -> "300.50".
func Amount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

func Rupees(minor int64) string {
	return "Rs. " + Amount(minor)
}

func Date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02 Jan 2006")
}

// Month renders a billing month as "January 2024".
func Month(t time.Time) string {
	return t.Format("January 2006")
}
