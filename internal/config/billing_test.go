package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBillingConfigDefaultsWithoutFile(t *testing.T) {
	holder, err := LoadBillingConfig(t.TempDir())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 10, cfg.DueDay)
	assert.Equal(t, "0 2 1 * *", cfg.CronSpec())
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
	assert.Equal(t, "INV", cfg.InvoicePrefix)
	assert.Equal(t, 30*time.Minute, cfg.LockTTL)
}

func TestLoadBillingConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`billing:
  dueDay: 15
  generationDay: 3
  timezone: UTC
  invoicePrefix: CTV
  notifyOnGenerate: true
  lockTTL: 5m
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "billing.yml"), content, 0o600))

	holder, err := LoadBillingConfig(dir)
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 15, cfg.DueDay)
	assert.Equal(t, "0 2 3 * *", cfg.CronSpec())
	assert.Equal(t, "CTV", cfg.InvoicePrefix)
	assert.True(t, cfg.NotifyOnGenerate)
	assert.Equal(t, 5*time.Minute, cfg.LockTTL)
}

func TestLoadBillingConfigRejectsInvalidDueDay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "billing.yml"), []byte("billing:\n  dueDay: 31\n"), 0o600))

	_, err := LoadBillingConfig(dir)
	require.Error(t, err)
}

func TestValidateBillingConfigRejectsBadSchedule(t *testing.T) {
	cfg := DefaultBillingConfig()
	cfg.Schedule = "every tuesday"
	require.Error(t, ValidateBillingConfig(cfg))
}

func TestHolderNotifiesListeners(t *testing.T) {
	holder := NewStaticBillingConfig(DefaultBillingConfig())

	var got BillingConfig
	holder.OnChange(func(cfg BillingConfig) { got = cfg })

	updated := DefaultBillingConfig()
	updated.DueDay = 20
	holder.set(updated)

	assert.Equal(t, 20, got.DueDay)
	assert.Equal(t, 20, holder.Get().DueDay)
}
