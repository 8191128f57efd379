package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePeriodDefaultsToCurrentMonthInLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	now := time.Date(2024, 3, 31, 19, 0, 0, 0, time.UTC)
	got, err := resolvePeriod("", now, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = resolvePeriod("", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestResolvePeriodParsesExplicitValue(t *testing.T) {
	got, err := resolvePeriod("2023-11", time.Now(), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = resolvePeriod("11/2023", time.Now(), time.UTC)
	assert.Error(t, err)
}
