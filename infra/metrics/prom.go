package metrics

import (
	"errors"

	coremetrics "github.com/kilianp07/vaxcal/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records planner activity in Prometheus metrics.
type PromSink struct {
	built      *prometheus.CounterVec
	doses      *prometheus.HistogramVec
	buildTime  *prometheus.HistogramVec
	edits      *prometheus.CounterVec
	rejections *prometheus.CounterVec
	exports    *prometheus.CounterVec
}

// NewPromSink registers planner metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	var err error
	s := &PromSink{}
	if s.built, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vaxcal_schedules_built_total",
		Help: "Total number of schedules built from submitted forms",
	}, []string{"scheme"})); err != nil {
		return nil, err
	}
	if s.doses, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vaxcal_schedule_doses",
		Help:    "Number of doses in a built schedule",
		Buckets: []float64{1, 5, 10, 20, 40, 80},
	}, []string{"scheme"})); err != nil {
		return nil, err
	}
	if s.buildTime, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vaxcal_schedule_build_seconds",
		Help:    "Time spent validating the form and building the schedule",
		Buckets: prometheus.DefBuckets,
	}, []string{"scheme"})); err != nil {
		return nil, err
	}
	if s.edits, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vaxcal_calendar_edits_total",
		Help: "Total number of confirmed calendar edits",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if s.rejections, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vaxcal_validation_failures_total",
		Help: "Total number of rejected submissions and edits",
	}, []string{"reason"})); err != nil {
		return nil, err
	}
	if s.exports, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vaxcal_exports_total",
		Help: "Total number of calendar exports",
	}, []string{"format"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordScheduleBuilt counts the schedule and observes its size.
func (s *PromSink) RecordScheduleBuilt(ev coremetrics.ScheduleBuilt) error {
	s.built.WithLabelValues(ev.Scheme).Inc()
	s.doses.WithLabelValues(ev.Scheme).Observe(float64(ev.Doses))
	s.buildTime.WithLabelValues(ev.Scheme).Observe(ev.Duration.Seconds())
	return nil
}

func (s *PromSink) RecordCalendarEdit(ev coremetrics.CalendarEdit) error {
	s.edits.WithLabelValues(ev.Kind).Inc()
	return nil
}

func (s *PromSink) RecordValidationFailure(ev coremetrics.ValidationFailure) error {
	s.rejections.WithLabelValues(ev.Reason).Inc()
	return nil
}

func (s *PromSink) RecordExport(ev coremetrics.ExportEvent) error {
	s.exports.WithLabelValues(ev.Format).Inc()
	return nil
}
