package metrics

import "time"

// ScheduleBuilt describes a calendar produced by a form submission.
type ScheduleBuilt struct {
	SessionID string
	Scheme    string
	Visits    int
	Doses     int
	SpanDays  int
	Duration  time.Duration
	Time      time.Time
}

// CalendarEdit describes one confirmed calendar mutation.
type CalendarEdit struct {
	SessionID string
	Scheme    string
	Kind      string
	Time      time.Time
}

// ValidationFailure describes a rejected submission or edit.
type ValidationFailure struct {
	SessionID string
	Reason    string
	Time      time.Time
}

// ExportEvent describes a calendar export.
type ExportEvent struct {
	Format  string
	Entries int
	Time    time.Time
}

// PlannerSink records planner activity.
type PlannerSink interface {
	RecordScheduleBuilt(ev ScheduleBuilt) error
	RecordCalendarEdit(ev CalendarEdit) error
}

// ValidationRecorder records rejected input.
type ValidationRecorder interface {
	RecordValidationFailure(ev ValidationFailure) error
}

// ExportRecorder records calendar exports.
type ExportRecorder interface {
	RecordExport(ev ExportEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordScheduleBuilt(ScheduleBuilt) error         { return nil }
func (NopSink) RecordCalendarEdit(CalendarEdit) error           { return nil }
func (NopSink) RecordValidationFailure(ValidationFailure) error { return nil }
func (NopSink) RecordExport(ExportEvent) error                  { return nil }

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []PlannerSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...PlannerSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordScheduleBuilt forwards the record to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordScheduleBuilt(ev ScheduleBuilt) error {
	for _, s := range m.Sinks {
		if err := s.RecordScheduleBuilt(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordCalendarEdit forwards edit events.
func (m *MultiSink) RecordCalendarEdit(ev CalendarEdit) error {
	for _, s := range m.Sinks {
		if err := s.RecordCalendarEdit(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordValidationFailure forwards to the sinks that support it.
func (m *MultiSink) RecordValidationFailure(ev ValidationFailure) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ValidationRecorder); ok {
			if err := rec.RecordValidationFailure(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordExport forwards to the sinks that support it.
func (m *MultiSink) RecordExport(ev ExportEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ExportRecorder); ok {
			if err := rec.RecordExport(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

type closer interface{ Close() }

// Close releases sinks holding connections, descending into MultiSinks.
func Close(s PlannerSink) {
	switch v := s.(type) {
	case *MultiSink:
		for _, inner := range v.Sinks {
			Close(inner)
		}
	case closer:
		v.Close()
	}
}
