package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/vaxcal/core/bounds"
	"github.com/kilianp07/vaxcal/core/calendar"
	"github.com/kilianp07/vaxcal/core/catalog"
	"github.com/kilianp07/vaxcal/core/metrics"
	"github.com/kilianp07/vaxcal/core/planlog"
	"github.com/kilianp07/vaxcal/core/schedule"
	"github.com/kilianp07/vaxcal/internal/eventbus"
)

type recordingSink struct {
	built    []metrics.ScheduleBuilt
	edits    []metrics.CalendarEdit
	failures []metrics.ValidationFailure
}

func (r *recordingSink) RecordScheduleBuilt(ev metrics.ScheduleBuilt) error {
	r.built = append(r.built, ev)
	return nil
}

func (r *recordingSink) RecordCalendarEdit(ev metrics.CalendarEdit) error {
	r.edits = append(r.edits, ev)
	return nil
}

func (r *recordingSink) RecordValidationFailure(ev metrics.ValidationFailure) error {
	r.failures = append(r.failures, ev)
	return nil
}

type failingStore struct{ planlog.MemoryStore }

func (f *failingStore) Append(context.Context, planlog.Record) error { return errors.New("disk full") }

type fixture struct {
	session *Session
	sink    *recordingSink
	store   *planlog.MemoryStore
	events  <-chan Event
}

var clock = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, scheme string) *fixture {
	t.Helper()
	p, err := catalog.NewProvider(scheme)
	require.NoError(t, err)
	bus := eventbus.NewTypedWithBuffer[Event](64)
	t.Cleanup(bus.Close)
	f := &fixture{sink: &recordingSink{}, store: planlog.NewMemoryStore(), events: bus.Subscribe()}
	f.session = New(p,
		WithID("s1"),
		WithBus(bus),
		WithSink(f.sink),
		WithStore(f.store),
		WithClock(func() time.Time { return clock }),
	)
	return f
}

func (f *fixture) drain() []Event {
	var out []Event
	for {
		select {
		case ev := <-f.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func (f *fixture) submit(t *testing.T, dob string) *schedule.Calendar {
	t.Helper()
	f.session.SetForm(bounds.Form{DateOfBirth: dob, LicenseAccepted: true})
	cal, err := f.session.Submit(context.Background())
	require.NoError(t, err)
	return cal
}

func dates(cal *schedule.Calendar) []string {
	var out []string
	for _, e := range cal.Entries() {
		out = append(out, e.Date().String())
	}
	return out
}

func d(s string) calendar.Date { return calendar.MustParse(s) }

func TestSubmitBuildsCalendar(t *testing.T) {
	f := newFixture(t, catalog.SchemeDemo)
	_, err := f.session.Calendar()
	assert.ErrorIs(t, err, ErrNotSubmitted)

	cal := f.submit(t, "2024-01-01")
	assert.Equal(t, []string{
		"2024-01-01", "2024-01-03", "2024-01-05", "2024-01-06", "2024-01-07",
		"2024-01-08", "2024-01-11", "2024-01-16", "2024-04-10", "2029-06-23",
	}, dates(cal))
	assert.Equal(t, "2024-01-01", f.session.Form().FirstVaccination, "first vaccination defaults to birth")

	require.Len(t, f.sink.built, 1)
	assert.Equal(t, 10, f.sink.built[0].Doses)
	assert.Equal(t, catalog.SchemeDemo, f.sink.built[0].Scheme)

	events := f.drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventSubmitted, events[0].Kind)
	assert.Equal(t, "s1", events[0].SessionID)
	assert.Len(t, events[0].Entries, 10)

	recs, err := f.store.Query(context.Background(), planlog.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "submitted", recs[0].Kind)
	assert.Equal(t, []int{1, 3, 5}, recs[0].Selected)

	sum, err := f.session.Summary()
	require.NoError(t, err)
	assert.Equal(t, 10, sum.Visits)
}

func TestSubmitRejectsInvalidForm(t *testing.T) {
	checks := []struct {
		name   string
		form   bounds.Form
		is     error
		reason string
	}{
		{"license", bounds.Form{DateOfBirth: "2024-01-01"}, bounds.ErrLicenseNotAccepted, "license_not_accepted"},
		{"missing", bounds.Form{LicenseAccepted: true}, bounds.ErrMissingDate, "missing_date"},
		{"floor", bounds.Form{DateOfBirth: "1899-12-31", LicenseAccepted: true}, bounds.ErrOutOfRange, "out_of_range"},
		{"order", bounds.Form{DateOfBirth: "2024-01-10", FirstVaccination: "2024-01-01", LicenseAccepted: true}, bounds.ErrFirstVaccinationTooEarly, "first_vaccination_too_early"},
		{"format", bounds.Form{DateOfBirth: "2024-1-1", LicenseAccepted: true}, calendar.ErrInvalidDateFormat, "invalid_date"},
	}
	for _, c := range checks {
		f := newFixture(t, catalog.SchemeDemo)
		f.session.SetForm(c.form)
		_, err := f.session.Submit(context.Background())
		assert.ErrorIs(t, err, c.is, c.name)
		require.Len(t, f.sink.failures, 1, c.name)
		assert.Equal(t, c.reason, f.sink.failures[0].Reason, c.name)
		events := f.drain()
		require.Len(t, events, 1, c.name)
		assert.Equal(t, EventRejected, events[0].Kind, c.name)
		_, err = f.session.Calendar()
		assert.ErrorIs(t, err, ErrNotSubmitted, c.name)
	}
}

func TestToggleRunsDependencyHooks(t *testing.T) {
	f := newFixture(t, catalog.SchemeHexavalent)
	byName := map[string]int{}
	for _, v := range f.session.Vaccines() {
		byName[v.Name()] = v.ID()
	}
	hexa := byName["DTaP-IPV-Hib-HBV"]

	require.NoError(t, f.session.Toggle(context.Background(), hexa, false))
	for _, v := range f.session.Vaccines() {
		if v.Name() == "IPV" || v.Name() == "Hib" {
			assert.True(t, v.Selected(), v.Name())
		}
	}
	events := f.drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventSelectionChanged, events[0].Kind)
	assert.Equal(t, hexa, events[0].VaccineID)

	err := f.session.Toggle(context.Background(), 999, true)
	assert.ErrorIs(t, err, ErrUnknownVaccine)
}

func TestSelectSetsExactSelection(t *testing.T) {
	f := newFixture(t, catalog.SchemeDemo)
	require.NoError(t, f.session.Select(context.Background(), 2, 3))
	var selected []int
	for _, v := range f.session.Vaccines() {
		if v.Selected() {
			selected = append(selected, v.ID())
		}
	}
	assert.Equal(t, []int{2, 3}, selected)
	assert.Len(t, f.drain(), 3, "only changed definitions are toggled")

	assert.ErrorIs(t, f.session.Select(context.Background(), 42), ErrUnknownVaccine)
}

func TestFormHooksFireOnSubmit(t *testing.T) {
	f := newFixture(t, catalog.SchemeHexavalent)
	f.submit(t, "2018-03-01")
	for _, v := range f.session.Vaccines() {
		if v.Name() == "MMR" {
			assert.Equal(t, []int{395, 3650}, v.Offsets())
		}
	}
}

func TestMoveEntryMerges(t *testing.T) {
	f := newFixture(t, catalog.SchemeDemo)
	cal := f.submit(t, "2024-01-01")
	f.drain()

	require.NoError(t, f.session.MoveEntry(context.Background(), d("2024-01-01"), "2024-01-03"))
	assert.Equal(t, 9, cal.Len())
	e, ok := cal.Entry(d("2024-01-03"))
	require.True(t, ok)
	assert.Equal(t, 2, e.Len())

	events := f.drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventEntryMoved, events[0].Kind)
	assert.Equal(t, "2024-01-03", events[0].Date)
	assert.Len(t, events[0].Entries, 9)

	require.Len(t, f.sink.edits, 1)
	assert.Equal(t, "entry_moved", f.sink.edits[0].Kind)
	recs, _ := f.store.Query(context.Background(), planlog.Query{Kind: "entry_moved"})
	assert.Len(t, recs, 1)

	err := f.session.MoveEntry(context.Background(), d("2024-01-01"), "2024-01-04")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestMoveEntryRejectsOutOfBounds(t *testing.T) {
	f := newFixture(t, catalog.SchemeDemo)
	cal := f.submit(t, "2024-01-01")

	err := f.session.MoveEntry(context.Background(), d("2024-01-03"), "2023-12-31")
	assert.ErrorIs(t, err, schedule.ErrOutOfBounds)
	e, ok := cal.Entry(d("2024-01-03"))
	require.True(t, ok)
	_, staged := e.Pending()
	assert.False(t, staged, "rejected proposal is discarded")
	require.Len(t, f.sink.failures, 1)
	assert.Equal(t, "out_of_bounds", f.sink.failures[0].Reason)

	err = f.session.MoveEntry(context.Background(), d("2024-01-03"), "3001-01-01")
	assert.ErrorIs(t, err, schedule.ErrOutOfBounds)
	assert.Equal(t, 10, cal.Len())
}

func TestConfirmSameDateIsNoop(t *testing.T) {
	f := newFixture(t, catalog.SchemeDemo)
	f.submit(t, "2024-01-01")
	f.drain()

	require.NoError(t, f.session.StageEntry(d("2024-01-05"), "2024-01-05"))
	require.NoError(t, f.session.ConfirmEntry(context.Background(), d("2024-01-05")))
	assert.Empty(t, f.drain())
	assert.Empty(t, f.sink.edits)
}

func TestStageAndDiscard(t *testing.T) {
	f := newFixture(t, catalog.SchemeDemo)
	cal := f.submit(t, "2024-01-01")

	require.NoError(t, f.session.StageDose(d("2024-01-08"), 5, "2024-02-01"))
	require.NoError(t, f.session.DiscardDose(d("2024-01-08"), 5))
	require.NoError(t, f.session.ConfirmDose(context.Background(), d("2024-01-08"), 5))
	_, ok := cal.Entry(d("2024-02-01"))
	assert.False(t, ok, "discarded proposal is not applied")

	require.NoError(t, f.session.StageEntry(d("2024-01-08"), ""))
	require.NoError(t, f.session.DiscardEntry(d("2024-01-08")))
	assert.ErrorIs(t, f.session.StageDose(d("2024-01-08"), 1, "2024-02-01"), ErrDoseNotFound)
}

func TestDoseEditsAndRemovals(t *testing.T) {
	f := newFixture(t, catalog.SchemeDemo)
	cal := f.submit(t, "2024-01-01")
	f.drain()
	ctx := context.Background()

	require.NoError(t, f.session.MoveDose(ctx, d("2024-01-16"), 1, "2024-01-08"))
	e, ok := cal.Entry(d("2024-01-08"))
	require.True(t, ok)
	assert.Equal(t, 2, e.Len())
	_, ok = cal.Entry(d("2024-01-16"))
	assert.False(t, ok, "emptied entry is pruned")

	require.NoError(t, f.session.RemoveDose(ctx, d("2024-01-08"), 5))
	assert.Equal(t, 1, e.Len())

	require.NoError(t, f.session.StageDose(d("2024-01-08"), 1, ""))
	require.NoError(t, f.session.ConfirmDose(ctx, d("2024-01-08"), 1))
	_, ok = cal.Entry(d("2024-01-08"))
	assert.False(t, ok)

	n, err := f.session.RemoveAllOfType(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []string{"2024-01-01", "2024-01-06", "2024-01-11"}, dates(cal))

	n, err = f.session.RemoveAllOfType(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = f.session.RemoveAllOfType(ctx, 99)
	assert.ErrorIs(t, err, ErrUnknownVaccine)

	kinds := []EventKind{}
	for _, ev := range f.drain() {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{EventDoseMoved, EventDoseRemoved, EventDoseRemoved, EventVaccineRemoved}, kinds)
	assert.Len(t, f.sink.edits, 4)
}

func TestEditsBeforeSubmit(t *testing.T) {
	f := newFixture(t, catalog.SchemeDemo)
	ctx := context.Background()
	assert.ErrorIs(t, f.session.StageEntry(d("2024-01-01"), "2024-01-02"), ErrNotSubmitted)
	assert.ErrorIs(t, f.session.RemoveDose(ctx, d("2024-01-01"), 1), ErrNotSubmitted)
	_, err := f.session.RemoveAllOfType(ctx, 1)
	assert.ErrorIs(t, err, ErrNotSubmitted)
	_, err = f.session.View()
	assert.ErrorIs(t, err, ErrNotSubmitted)
}

func TestChangeSchemeClearsCalendar(t *testing.T) {
	f := newFixture(t, catalog.SchemeDemo)
	f.submit(t, "2024-01-01")
	require.NoError(t, f.session.ChangeScheme(context.Background(), catalog.SchemeFree))
	assert.Equal(t, catalog.SchemeFree, f.session.Scheme())
	_, err := f.session.Calendar()
	assert.ErrorIs(t, err, ErrNotSubmitted)

	err = f.session.ChangeScheme(context.Background(), "nope")
	assert.ErrorIs(t, err, catalog.ErrUnknownScheme)
}

func TestPlanLogFailureDoesNotFailSubmit(t *testing.T) {
	p, err := catalog.NewProvider(catalog.SchemeDemo)
	require.NoError(t, err)
	s := New(p, WithStore(&failingStore{}))
	s.SetForm(bounds.Form{DateOfBirth: "2024-01-01", LicenseAccepted: true})
	_, err = s.Submit(context.Background())
	assert.NoError(t, err)
	assert.NotEmpty(t, s.ID())
}

func TestWithLimits(t *testing.T) {
	p, err := catalog.NewProvider(catalog.SchemeDemo)
	require.NoError(t, err)
	s := New(p, WithLimits(d("2000-01-01"), d("2100-12-31")))
	assert.False(t, s.InBounds("1999-12-31"))
	assert.False(t, s.InBounds("2101-01-01"))
	assert.True(t, s.InBounds("2050-06-01"))
	assert.True(t, s.InBounds(""))
}
