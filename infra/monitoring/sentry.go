package monitoring

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/vaxcal/config"
	coremon "github.com/kilianp07/vaxcal/core/monitoring"
	"github.com/kilianp07/vaxcal/infra/logger"
)

// Tag keys copied into the "planner" context of an event.
var plannerKeys = []string{"session_id", "scheme"}

// SentryMonitor reports to Sentry through its own hub. Every event carries
// the configured base tags; a "module" tag also groups events per module.
type SentryMonitor struct {
	hub  *sentry.Hub
	tags map[string]string
}

// NewSentryMonitor returns a Sentry backed monitor, or a log monitor when no
// DSN is configured.
func NewSentryMonitor(cfg config.SentryConfig) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return NewLogMonitor(logger.New("monitor")), nil
	}
	return newSentryMonitor(cfg, nil)
}

func newSentryMonitor(cfg config.SentryConfig, beforeSend func(*sentry.Event, *sentry.EventHint) *sentry.Event) (*SentryMonitor, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
		BeforeSend:       beforeSend,
	})
	if err != nil {
		return nil, err
	}
	return &SentryMonitor{hub: sentry.NewHub(client, sentry.NewScope()), tags: cfg.Tags}, nil
}

func (s *SentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		s.apply(scope, tags)
		s.hub.CaptureException(err)
	})
}

func (s *SentryMonitor) apply(scope *sentry.Scope, tags map[string]string) {
	for k, v := range s.tags {
		scope.SetTag(k, v)
	}
	for k, v := range tags {
		scope.SetTag(k, v)
	}
	planner := sentry.Context{}
	for _, k := range plannerKeys {
		if v, ok := tags[k]; ok {
			planner[k] = v
		}
	}
	if len(planner) > 0 {
		scope.SetContext("planner", planner)
	}
	if m, ok := tags["module"]; ok {
		scope.SetFingerprint([]string{"{{ default }}", m})
	}
}

func (s *SentryMonitor) CapturePanic(v any) {
	s.hub.WithScope(func(scope *sentry.Scope) {
		s.apply(scope, nil)
		s.hub.Recover(v)
	})
}

func (s *SentryMonitor) Flush(timeout time.Duration) { s.hub.Flush(timeout) }
