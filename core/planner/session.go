package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/vaxcal/core/bounds"
	"github.com/kilianp07/vaxcal/core/calendar"
	"github.com/kilianp07/vaxcal/core/catalog"
	"github.com/kilianp07/vaxcal/core/logger"
	"github.com/kilianp07/vaxcal/core/metrics"
	"github.com/kilianp07/vaxcal/core/model"
	"github.com/kilianp07/vaxcal/core/monitoring"
	"github.com/kilianp07/vaxcal/core/planlog"
	"github.com/kilianp07/vaxcal/core/schedule"
	"github.com/kilianp07/vaxcal/core/scheduler"
	"github.com/kilianp07/vaxcal/internal/eventbus"
)

var (
	// ErrNotSubmitted is returned by calendar operations before a successful
	// submission.
	ErrNotSubmitted = errors.New("form not submitted")
	// ErrUnknownVaccine is returned for ids missing from the active scheme.
	ErrUnknownVaccine = errors.New("unknown vaccine")
	// ErrEntryNotFound is returned when no calendar entry sits on a date.
	ErrEntryNotFound = errors.New("no entry on date")
	// ErrDoseNotFound is returned when an entry holds no dose of a vaccine.
	ErrDoseNotFound = errors.New("no dose of vaccine on date")
)

// Session is one user's planning workflow. It is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	id       string
	provider *catalog.Provider
	form     bounds.Form
	checker  *bounds.Checker
	cal      *schedule.Calendar
	sub      bounds.Submission

	bus   *eventbus.TypedBus[Event]
	sink  metrics.PlannerSink
	store planlog.Store
	log   logger.Logger
	now   func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithID overrides the generated session id.
func WithID(id string) Option { return func(s *Session) { s.id = id } }

// WithBus publishes session events on bus.
func WithBus(bus *eventbus.TypedBus[Event]) Option { return func(s *Session) { s.bus = bus } }

// WithSink records metrics on sink.
func WithSink(sink metrics.PlannerSink) Option { return func(s *Session) { s.sink = sink } }

// WithStore appends calendar changes to store.
func WithStore(store planlog.Store) Option { return func(s *Session) { s.store = store } }

func WithLogger(l logger.Logger) Option { return func(s *Session) { s.log = l } }

// WithLimits replaces the default date floor and ceiling.
func WithLimits(floor, ceiling calendar.Date) Option {
	return func(s *Session) {
		s.checker.Floor = floor
		s.checker.Ceiling = ceiling
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// New starts a session over provider.
func New(provider *catalog.Provider, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		provider: provider,
		checker:  bounds.NewChecker(),
		sink:     metrics.NopSink{},
		log:      nopLogger{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Scheme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider.Scheme()
}

// Vaccines returns the live definitions of the active scheme.
func (s *Session) Vaccines() []*model.Vaccine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider.Vaccines()
}

// Form returns a copy of the current form.
func (s *Session) Form() bounds.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// SetForm replaces the form. An empty first vaccination date defaults to
// the date of birth.
func (s *Session) SetForm(f bounds.Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.FirstVaccination == "" {
		f.FirstVaccination = f.DateOfBirth
	}
	s.form = f
}

// InBounds reports whether s is an acceptable staged date.
func (s *Session) InBounds(date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checker.InBounds(date)
}

// ChangeScheme switches to another scheme. Selections and any built
// calendar are discarded.
func (s *Session) ChangeScheme(ctx context.Context, scheme string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.provider.ChangeScheme(scheme); err != nil {
		return err
	}
	s.cal = nil
	s.emit(ctx, Event{Kind: EventSchemeChanged})
	return nil
}

// Toggle selects or deselects a vaccine and runs its dependency hooks.
func (s *Session) Toggle(ctx context.Context, vaccineID int, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.provider.Vaccine(vaccineID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVaccine, vaccineID)
	}
	if err := v.SetSelected(selected); err != nil {
		s.log.Warnf("toggle %s: %v", v.Name(), err)
		return err
	}
	s.emit(ctx, Event{Kind: EventSelectionChanged, VaccineID: vaccineID})
	return nil
}

// Select sets the selection to exactly ids, toggling only the definitions
// whose state changes.
func (s *Session) Select(ctx context.Context, ids ...int) error {
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for id := range want {
		if _, ok := s.vaccine(id); !ok {
			return fmt.Errorf("%w: %d", ErrUnknownVaccine, id)
		}
	}
	for _, v := range s.Vaccines() {
		if v.Selected() != want[v.ID()] {
			if err := s.Toggle(ctx, v.ID(), want[v.ID()]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Session) vaccine(id int) (*model.Vaccine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider.Vaccine(id)
}

// Submit validates the form, runs every form hook once and builds the
// calendar anchored on the first vaccination date.
func (s *Session) Submit(ctx context.Context) (*schedule.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.now()
	sub, err := s.checker.Validate(&s.form)
	if err != nil {
		s.reject(ctx, err)
		return nil, err
	}
	vaccines := s.provider.Vaccines()
	for _, v := range vaccines {
		v.ApplyFormSubmitted(&s.form)
	}
	s.sub = sub
	s.cal = scheduler.Builder{Bounds: s.checker}.Build(sub.FirstVaccination, vaccines)

	sum := schedule.Summarize(s.cal)
	if err := s.sink.RecordScheduleBuilt(metrics.ScheduleBuilt{
		SessionID: s.id,
		Scheme:    s.provider.Scheme(),
		Visits:    sum.Visits,
		Doses:     sum.Doses,
		SpanDays:  sum.SpanDays,
		Duration:  s.now().Sub(start),
		Time:      s.now(),
	}); err != nil {
		s.log.Warnf("record schedule: %v", err)
	}
	s.log.Debugw("schedule built", map[string]any{"session_id": s.id, "visits": sum.Visits, "doses": sum.Doses})
	s.emit(ctx, Event{Kind: EventSubmitted, Date: sub.FirstVaccination.String()})
	return s.cal, nil
}

// Calendar returns the calendar built by the last submission.
func (s *Session) Calendar() (*schedule.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cal == nil {
		return nil, ErrNotSubmitted
	}
	return s.cal, nil
}

// View returns the serialisable calendar.
func (s *Session) View() ([]schedule.EntryView, error) {
	cal, err := s.Calendar()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cal.View(), nil
}

// Summary returns statistics of the current calendar.
func (s *Session) Summary() (schedule.Summary, error) {
	cal, err := s.Calendar()
	if err != nil {
		return schedule.Summary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return schedule.Summarize(cal), nil
}

func (s *Session) reject(ctx context.Context, err error) {
	reason := Reason(err)
	if rec, ok := s.sink.(metrics.ValidationRecorder); ok {
		if rerr := rec.RecordValidationFailure(metrics.ValidationFailure{SessionID: s.id, Reason: reason, Time: s.now()}); rerr != nil {
			s.log.Warnf("record validation failure: %v", rerr)
		}
	}
	s.emit(ctx, Event{Kind: EventRejected, Reason: reason})
}

// Reason maps an error to a short metrics label.
func Reason(err error) string {
	switch {
	case errors.Is(err, bounds.ErrLicenseNotAccepted):
		return "license_not_accepted"
	case errors.Is(err, bounds.ErrMissingDate):
		return "missing_date"
	case errors.Is(err, bounds.ErrFirstVaccinationTooEarly):
		return "first_vaccination_too_early"
	case errors.Is(err, bounds.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, schedule.ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, calendar.ErrInvalidDateFormat):
		return "invalid_date"
	}
	return "other"
}

// emit publishes ev, records edits and appends calendar changes to the
// plan log. Callers hold s.mu.
func (s *Session) emit(ctx context.Context, ev Event) {
	ev.SessionID = s.id
	ev.Scheme = s.provider.Scheme()
	ev.Time = s.now()
	if ev.Kind.ChangesCalendar() && s.cal != nil {
		ev.Entries = s.cal.View()
	}
	if s.bus != nil {
		s.bus.Publish(ev)
	}
	if !ev.Kind.ChangesCalendar() {
		return
	}
	if ev.Kind != EventSubmitted {
		if err := s.sink.RecordCalendarEdit(metrics.CalendarEdit{
			SessionID: s.id, Scheme: ev.Scheme, Kind: string(ev.Kind), Time: ev.Time,
		}); err != nil {
			s.log.Warnf("record edit: %v", err)
		}
	}
	if s.store == nil {
		return
	}
	rec := planlog.Record{
		ID:               uuid.NewString(),
		SessionID:        s.id,
		Scheme:           ev.Scheme,
		Kind:             string(ev.Kind),
		Timestamp:        ev.Time,
		DateOfBirth:      s.form.DateOfBirth,
		FirstVaccination: s.form.FirstVaccination,
		Selected:         s.provider.Selected(),
		Entries:          ev.Entries,
	}
	if err := s.store.Append(ctx, rec); err != nil {
		s.log.Errorf("plan log append: %v", err)
		monitoring.CaptureException(err, map[string]string{"session_id": s.id, "module": "planlog"})
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
