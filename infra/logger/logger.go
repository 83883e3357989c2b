package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	corelogger "github.com/kilianp07/vaxcal/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// Backends.
const (
	BackendZerolog = "zerolog"
	BackendLogrus  = "logrus"
)

// Formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Options select the logging backend and output shared by every component
// logger created afterwards.
type Options struct {
	Level   string
	Backend string
	Format  string
	Output  io.Writer
}

var (
	mu      sync.RWMutex
	current = Options{}
)

// Configure replaces the process-wide logging options.
func Configure(o Options) {
	mu.Lock()
	current = o
	mu.Unlock()
}

func options() Options {
	mu.RLock()
	o := current
	mu.RUnlock()
	if o.Output == nil {
		o.Output = os.Stdout
	}
	if o.Level == "" {
		o.Level = "info"
	}
	if o.Format == "" {
		// APP_ENV=dev keeps the human readable output.
		if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
			o.Format = FormatConsole
		} else {
			o.Format = FormatJSON
		}
	}
	return o
}

// New returns a Logger for the given component using the configured backend.
func New(component string) Logger {
	o := options()
	if o.Backend == BackendLogrus {
		return newLogrusLogger(component, o)
	}
	return newZerologLogger(component, o)
}
