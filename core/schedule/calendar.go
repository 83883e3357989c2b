package schedule

import (
	"errors"
	"fmt"
	"slices"

	"github.com/kilianp07/vaxcal/core/calendar"
	"github.com/kilianp07/vaxcal/core/model"
)

var (
	// ErrNotInCalendar is returned when an entry or dose does not belong to
	// the calendar being edited.
	ErrNotInCalendar = errors.New("not in calendar")
	// ErrOutOfBounds is returned when a staged date fails the bounds check.
	ErrOutOfBounds = errors.New("date out of bounds")
)

// Dose is one dated administration of a vaccine. Its date never changes;
// rescheduling replaces the dose.
type Dose struct {
	vaccine *model.Vaccine
	date    calendar.Date
	name    string
	edit    Edit
}

// NewDose creates a dose of v on date named name. An empty name falls back
// to the vaccine name.
func NewDose(v *model.Vaccine, date calendar.Date, name string) *Dose {
	if name == "" {
		name = v.Name()
	}
	return &Dose{vaccine: v, date: date, name: name}
}

func (d *Dose) Vaccine() *model.Vaccine { return d.vaccine }
func (d *Dose) Date() calendar.Date     { return d.date }
func (d *Dose) DisplayName() string     { return d.name }

// Stage records a proposed new date for the dose. Empty means remove.
func (d *Dose) Stage(date string) { d.edit.Stage(date) }

// Discard reverts the proposed date.
func (d *Dose) Discard() { d.edit.Discard() }

// Pending returns the proposed date and whether one is staged.
func (d *Dose) Pending() (string, bool) { return d.edit.Pending() }

func (d *Dose) IsSetToNew() bool    { return d.edit.isNew(d.date.String()) }
func (d *Dose) IsSetToRemove() bool { return d.edit.isRemove() }

// IsSetToConfirm reports whether the staged date is new and within b.
func (d *Dose) IsSetToConfirm(b Bounds) bool {
	return d.IsSetToNew() && inBounds(b, d.edit.pending)
}

func (d *Dose) movedTo(date calendar.Date) *Dose {
	return &Dose{vaccine: d.vaccine, date: date, name: d.name}
}

// Entry groups the doses due on one date.
type Entry struct {
	date  calendar.Date
	doses []*Dose
	edit  Edit
}

func newEntry(date calendar.Date, doses ...*Dose) *Entry {
	return &Entry{date: date, doses: doses}
}

func (e *Entry) Date() calendar.Date { return e.date }

// Doses returns the entry's doses in insertion order.
func (e *Entry) Doses() []*Dose { return slices.Clone(e.doses) }

func (e *Entry) Len() int { return len(e.doses) }

// Stage records a proposed new date for the whole entry. Empty means remove.
func (e *Entry) Stage(date string) { e.edit.Stage(date) }

// Discard reverts the proposed date.
func (e *Entry) Discard() { e.edit.Discard() }

// Pending returns the proposed date and whether one is staged.
func (e *Entry) Pending() (string, bool) { return e.edit.Pending() }

func (e *Entry) IsSetToNew() bool    { return e.edit.isNew(e.date.String()) }
func (e *Entry) IsSetToRemove() bool { return e.edit.isRemove() }

// IsSetToConfirm reports whether the staged date is new and within b.
func (e *Entry) IsSetToConfirm(b Bounds) bool {
	return e.IsSetToNew() && inBounds(b, e.edit.pending)
}

func (e *Entry) indexOf(d *Dose) int {
	return slices.Index(e.doses, d)
}

// Calendar is the date sorted list of schedule entries.
type Calendar struct {
	entries []*Entry
	bounds  Bounds
}

// NewCalendar returns an empty calendar. A nil bounds accepts every date.
func NewCalendar(b Bounds) *Calendar {
	return &Calendar{bounds: b}
}

// SetBounds replaces the bounds used to accept staged dates.
func (c *Calendar) SetBounds(b Bounds) { c.bounds = b }

// Bounds returns the bounds used by the calendar, possibly nil.
func (c *Calendar) Bounds() Bounds { return c.bounds }

// Add appends dose, merging it into the entry for its date when present.
func (c *Calendar) Add(d *Dose) {
	if e := c.find(d.date); e != nil {
		e.doses = append(e.doses, d)
		return
	}
	c.entries = append(c.entries, newEntry(d.date, d))
	c.sort()
}

// Entries returns the entries in ascending date order.
func (c *Calendar) Entries() []*Entry { return slices.Clone(c.entries) }

func (c *Calendar) Len() int { return len(c.entries) }

// Entry returns the entry on date.
func (c *Calendar) Entry(date calendar.Date) (*Entry, bool) {
	e := c.find(date)
	return e, e != nil
}

// DoseCount returns the number of doses across all entries.
func (c *Calendar) DoseCount() int {
	n := 0
	for _, e := range c.entries {
		n += len(e.doses)
	}
	return n
}

// ConfirmMove applies the date staged on e. An empty staged date removes
// the entry. When another entry already sits on the new date, e's doses are
// appended to it and e is dropped.
func (c *Calendar) ConfirmMove(e *Entry) error {
	idx := slices.Index(c.entries, e)
	if idx < 0 {
		return ErrNotInCalendar
	}
	pending, staged := e.edit.Pending()
	switch {
	case !staged:
		return nil
	case pending == "":
		c.entries = slices.Delete(c.entries, idx, idx+1)
		return nil
	case pending == e.date.String():
		e.edit.Discard()
		return nil
	}
	date, err := calendar.Parse(pending)
	if err != nil {
		return err
	}
	if !inBounds(c.bounds, pending) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, pending)
	}
	e.edit.Discard()
	for i, d := range e.doses {
		e.doses[i] = d.movedTo(date)
	}
	e.date = date
	for _, other := range c.entries {
		if other != e && other.date == date {
			other.doses = append(other.doses, e.doses...)
			c.entries = slices.Delete(c.entries, idx, idx+1)
			break
		}
	}
	c.sort()
	return nil
}

// ConfirmDoseMove applies the date staged on dose, which must belong to e.
// The dose is replaced by a new one on the staged date, joining an existing
// entry or starting a new one. An empty staged date removes the dose.
func (c *Calendar) ConfirmDoseMove(e *Entry, dose *Dose) error {
	if !slices.Contains(c.entries, e) || e.indexOf(dose) < 0 {
		return ErrNotInCalendar
	}
	pending, staged := dose.edit.Pending()
	switch {
	case !staged:
		return nil
	case pending == "":
		return c.RemoveDose(e, dose)
	case pending == dose.date.String():
		dose.edit.Discard()
		return nil
	}
	date, err := calendar.Parse(pending)
	if err != nil {
		return err
	}
	if !inBounds(c.bounds, pending) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, pending)
	}
	dose.edit.Discard()
	moved := dose.movedTo(date)
	if target := c.find(date); target != nil {
		target.doses = append(target.doses, moved)
	} else {
		c.entries = append(c.entries, newEntry(date, moved))
	}
	if err := c.RemoveDose(e, dose); err != nil {
		return err
	}
	c.sort()
	return nil
}

// RemoveDose deletes dose from e and drops e when it becomes empty.
func (c *Calendar) RemoveDose(e *Entry, dose *Dose) error {
	idx := slices.Index(c.entries, e)
	if idx < 0 {
		return ErrNotInCalendar
	}
	di := e.indexOf(dose)
	if di < 0 {
		return ErrNotInCalendar
	}
	e.doses = slices.Delete(e.doses, di, di+1)
	if len(e.doses) == 0 {
		c.entries = slices.Delete(c.entries, idx, idx+1)
	}
	return nil
}

// RemoveAllOfType drops every dose of the vaccine with id and any entry left
// empty. It returns the number of doses removed.
func (c *Calendar) RemoveAllOfType(vaccineID int) int {
	removed := 0
	for _, e := range c.entries {
		before := len(e.doses)
		e.doses = slices.DeleteFunc(e.doses, func(d *Dose) bool {
			return d.vaccine.ID() == vaccineID
		})
		removed += before - len(e.doses)
	}
	c.entries = slices.DeleteFunc(c.entries, func(e *Entry) bool { return len(e.doses) == 0 })
	return removed
}

func (c *Calendar) find(date calendar.Date) *Entry {
	for _, e := range c.entries {
		if e.date == date {
			return e
		}
	}
	return nil
}

func (c *Calendar) sort() {
	slices.SortStableFunc(c.entries, func(a, b *Entry) int {
		return a.date.Compare(b.date)
	})
}
