package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// BillingConfig holds the operator-tunable billing settings from billing.yml.
type BillingConfig struct {
	DueDay           int           `mapstructure:"dueDay"`
	GenerationDay    int           `mapstructure:"generationDay"`
	Schedule         string        `mapstructure:"schedule"`
	OverdueSchedule  string        `mapstructure:"overdueSchedule"`
	Timezone         string        `mapstructure:"timezone"`
	InvoicePrefix    string        `mapstructure:"invoicePrefix"`
	NotifyOnGenerate bool          `mapstructure:"notifyOnGenerate"`
	LockTTL          time.Duration `mapstructure:"lockTTL"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		DueDay:          10,
		GenerationDay:   1,
		OverdueSchedule: "0 3 * * *",
		Timezone:        "Asia/Kolkata",
		InvoicePrefix:   "INV",
		LockTTL:         30 * time.Minute,
	}
}

// CronSpec returns the generation schedule, derived from GenerationDay when
// no explicit schedule is configured.
func (c BillingConfig) CronSpec() string {
	if s := strings.TrimSpace(c.Schedule); s != "" {
		return s
	}
	return fmt.Sprintf("0 2 %d * *", c.GenerationDay)
}

func (c BillingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig

	mu        sync.Mutex
	listeners []func(BillingConfig)
}

// NewBillingConfigHolder reads billing.yml from the standard locations and
// watches it for changes.
func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	return LoadBillingConfig("/etc/cablebill", ".")
}

func LoadBillingConfig(paths ...string) (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("CABLEBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.dueDay", defaults.DueDay)
	v.SetDefault("billing.generationDay", defaults.GenerationDay)
	v.SetDefault("billing.overdueSchedule", defaults.OverdueSchedule)
	v.SetDefault("billing.timezone", defaults.Timezone)
	v.SetDefault("billing.invoicePrefix", defaults.InvoicePrefix)
	v.SetDefault("billing.notifyOnGenerate", defaults.NotifyOnGenerate)
	v.SetDefault("billing.lockTTL", defaults.LockTTL)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeBillingConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfig(cfg)
	if !fileFound {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeBillingConfig(v)
		if err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.set(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})
	v.WatchConfig()

	return holder, nil
}

// NewStaticBillingConfig returns a holder that never reloads.
func NewStaticBillingConfig(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

// OnChange registers fn to run after every successful reload.
func (h *BillingConfigHolder) OnChange(fn func(BillingConfig)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

func (h *BillingConfigHolder) set(cfg BillingConfig) {
	h.current.Store(cfg)

	h.mu.Lock()
	listeners := append([]func(BillingConfig){}, h.listeners...)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
}

func decodeBillingConfig(v *viper.Viper) (BillingConfig, error) {
	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return BillingConfig{}, err
	}
	if err := ValidateBillingConfig(cfg); err != nil {
		return BillingConfig{}, err
	}
	return cfg, nil
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func ValidateBillingConfig(cfg BillingConfig) error {
	if cfg.DueDay < 1 || cfg.DueDay > 28 {
		return errors.New("billing.dueDay must be between 1 and 28")
	}
	if cfg.GenerationDay < 1 || cfg.GenerationDay > 28 {
		return errors.New("billing.generationDay must be between 1 and 28")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("billing.timezone: %w", err)
	}
	if _, err := cronParser.Parse(cfg.CronSpec()); err != nil {
		return fmt.Errorf("billing.schedule: %w", err)
	}
	if strings.TrimSpace(cfg.OverdueSchedule) != "" {
		if _, err := cronParser.Parse(cfg.OverdueSchedule); err != nil {
			return fmt.Errorf("billing.overdueSchedule: %w", err)
		}
	}
	if strings.TrimSpace(cfg.InvoicePrefix) == "" {
		return errors.New("billing.invoicePrefix cannot be empty")
	}
	if cfg.LockTTL <= 0 {
		return errors.New("billing.lockTTL must be positive")
	}
	return nil
}
