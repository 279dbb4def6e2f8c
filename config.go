package twopc

import (
	"time"

	apperrors "github.com/goliatone/go-errors"
)

// DefaultAutoClearTimeout is the retention window Validate fills into an
// unset AutoClearTimeout: three months, matching base spec §3's stated
// default ("retained after terminalization for autoClearTimeout, default
// three months, for inspection, then garbage collected").
const DefaultAutoClearTimeout = 90 * 24 * time.Hour

// Config bundles the tunables for a Manager (package tm) and its
// actuator. Dual json/yaml tags and a Validate method follow
// flow/config.go's FlowDefinition convention; zero values are filled by
// Validate via DefaultConfig's defaults.
type Config struct {
	// ActuatorConfig tunes the retrying task dispatcher collaborator.
	Actuator ActuatorConfig `json:"actuator" yaml:"actuator"`

	// AutoClearTimeout is how long after its creation time (Order.Time)
	// an order is kept before the retention sweep may delete it from the
	// Order Store (base spec §4.5). Validate fills zero with
	// DefaultAutoClearTimeout; store.clear additionally treats a
	// non-positive value as "retention window not configured" and skips
	// expiry-based deletion, so a Config mutated directly (bypassing
	// Validate, e.g. via Manager.SetCacheExpiration) can't turn every
	// terminal order into an immediate-deletion candidate.
	AutoClearTimeout time.Duration `json:"auto_clear_timeout" yaml:"auto_clear_timeout"`

	// GCInterval is how often the retention sweep runs when wired to
	// package schedule. Ignored if the host drives GC manually.
	GCInterval time.Duration `json:"gc_interval" yaml:"gc_interval"`
}

// ActuatorConfig tunes the retrying task dispatcher (base spec §6). The
// actuator's own retry/backoff policy is out of scope for the TM core;
// these are only the defaults a Manager fills into Tasks that don't set
// them explicitly.
type ActuatorConfig struct {
	// DefaultAttemptsMax is used for any Task with AttemptsMax <= 0.
	DefaultAttemptsMax int `json:"default_attempts_max" yaml:"default_attempts_max"`

	// DefaultRecallInterval is used for any Task with RecallInterval <= 0.
	DefaultRecallInterval time.Duration `json:"default_recall_interval" yaml:"default_recall_interval"`

	// DefaultCyclesBudget is used for any Task with CyclesBudget <= 0.
	// Zero remains unbounded; only a negative value is rejected by
	// Validate.
	DefaultCyclesBudget int `json:"default_cycles_budget" yaml:"default_cycles_budget"`

	// QueueBuffer is validated and defaulted by Validate; the actuator
	// keeps pending tasks in a slice and does not read this value.
	QueueBuffer int `json:"queue_buffer" yaml:"queue_buffer"`
}

// DefaultConfig returns a Config with the package defaults: three
// attempts, one-second recall, no cycle budget, a queue buffer of 64,
// three-month retention and a one-minute GC interval.
func DefaultConfig() Config {
	return Config{
		Actuator: ActuatorConfig{
			DefaultAttemptsMax:    3,
			DefaultRecallInterval: time.Second,
			DefaultCyclesBudget:   0,
			QueueBuffer:           64,
		},
		AutoClearTimeout: DefaultAutoClearTimeout,
		GCInterval:       time.Minute,
	}
}

// Validate checks field invariants and fills unset fields from
// DefaultConfig, following flow/config.go's Validate-mutates-in-place
// convention.
func (c *Config) Validate() error {
	def := DefaultConfig()

	if c.Actuator.DefaultAttemptsMax < 0 {
		return apperrors.New("actuator.default_attempts_max must not be negative", apperrors.CategoryValidation)
	}
	if c.Actuator.DefaultAttemptsMax == 0 {
		c.Actuator.DefaultAttemptsMax = def.Actuator.DefaultAttemptsMax
	}

	if c.Actuator.DefaultRecallInterval < 0 {
		return apperrors.New("actuator.default_recall_interval must not be negative", apperrors.CategoryValidation)
	}
	if c.Actuator.DefaultRecallInterval == 0 {
		c.Actuator.DefaultRecallInterval = def.Actuator.DefaultRecallInterval
	}

	if c.Actuator.DefaultCyclesBudget < 0 {
		return apperrors.New("actuator.default_cycles_budget must not be negative", apperrors.CategoryValidation)
	}

	if c.Actuator.QueueBuffer < 0 {
		return apperrors.New("actuator.queue_buffer must not be negative", apperrors.CategoryValidation)
	}
	if c.Actuator.QueueBuffer == 0 {
		c.Actuator.QueueBuffer = def.Actuator.QueueBuffer
	}

	if c.AutoClearTimeout < 0 {
		return apperrors.New("auto_clear_timeout must not be negative", apperrors.CategoryValidation)
	}
	if c.AutoClearTimeout == 0 {
		c.AutoClearTimeout = def.AutoClearTimeout
	}

	if c.GCInterval < 0 {
		return apperrors.New("gc_interval must not be negative", apperrors.CategoryValidation)
	}
	if c.GCInterval == 0 {
		c.GCInterval = def.GCInterval
	}

	return nil
}

// ApplyDefaults copies any unset tunable from c into t, the per-task
// equivalent of Validate's zero-filling, applied when a Manager pushes a
// participant (base spec §4.2 create/push).
func (c Config) ApplyDefaults(t Task) Task {
	if t.AttemptsMax <= 0 {
		t.AttemptsMax = c.Actuator.DefaultAttemptsMax
	}
	if t.RecallInterval <= 0 {
		t.RecallInterval = c.Actuator.DefaultRecallInterval
	}
	if t.CyclesBudget <= 0 {
		t.CyclesBudget = c.Actuator.DefaultCyclesBudget
	}
	return t
}
