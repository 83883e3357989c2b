package config

import (
	"fmt"

	"github.com/kilianp07/vaxcal/core/planlog"
	"github.com/kilianp07/vaxcal/infra/logger"
)

// LoggingConfig selects the application logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level"`
	// Backend is "zerolog" or "logrus".
	Backend string `json:"backend"`
	// Format is "json" or "console". Empty follows APP_ENV.
	Format string `json:"format"`
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Backend == "" {
		c.Backend = logger.BackendZerolog
	}
}

func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %s", c.Level)
	}
	if c.Backend != logger.BackendZerolog && c.Backend != logger.BackendLogrus {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Format != "" && c.Format != logger.FormatJSON && c.Format != logger.FormatConsole {
		return fmt.Errorf("unknown format %s", c.Format)
	}
	return nil
}

// Options converts the section for logger.Configure.
func (c LoggingConfig) Options() logger.Options {
	return logger.Options{Level: c.Level, Backend: c.Backend, Format: c.Format}
}

// PlanLogConfig defines settings for calendar history storage and rotation.
type PlanLogConfig struct {
	// Backend selects the store type: "memory", "jsonl" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *PlanLogConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = planlog.BackendMemory
	}
	if c.Path == "" && c.Backend != planlog.BackendMemory {
		c.Path = "vaxcal-plans.log"
	}
}

// Validate checks mandatory fields.
func (c PlanLogConfig) Validate() error {
	switch c.Backend {
	case planlog.BackendMemory:
		return nil
	case planlog.BackendJSONL, planlog.BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// Options converts the section for planlog.Open.
func (c PlanLogConfig) Options() planlog.Options {
	return planlog.Options{
		Backend:    c.Backend,
		Path:       c.Path,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}
