package scheduler

import (
	"time"
)

// Config bounds how long each job may run.
type Config struct {
	GenerateTimeout time.Duration
	RefreshTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		GenerateTimeout: 30 * time.Minute,
		RefreshTimeout:  5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = defaults.GenerateTimeout
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = defaults.RefreshTimeout
	}
	return c
}
