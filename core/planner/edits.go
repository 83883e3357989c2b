package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/vaxcal/core/calendar"
	"github.com/kilianp07/vaxcal/core/schedule"
)

// Edits address entries by date and doses by date and vaccine id. When an
// entry holds several doses of one vaccine the first one is used.

func (s *Session) entry(date calendar.Date) (*schedule.Entry, error) {
	if s.cal == nil {
		return nil, ErrNotSubmitted
	}
	e, ok := s.cal.Entry(date)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, date)
	}
	return e, nil
}

func (s *Session) dose(date calendar.Date, vaccineID int) (*schedule.Entry, *schedule.Dose, error) {
	e, err := s.entry(date)
	if err != nil {
		return nil, nil, err
	}
	for _, d := range e.Doses() {
		if d.Vaccine().ID() == vaccineID {
			return e, d, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %d on %s", ErrDoseNotFound, vaccineID, date)
}

// StageEntry proposes a new date for the entry on date. An empty proposal
// stages removal.
func (s *Session) StageEntry(date calendar.Date, proposed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(date)
	if err != nil {
		return err
	}
	e.Stage(proposed)
	return nil
}

// DiscardEntry drops the proposal staged on the entry.
func (s *Session) DiscardEntry(date calendar.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(date)
	if err != nil {
		return err
	}
	e.Discard()
	return nil
}

// ConfirmEntry applies the proposal staged on the entry. Proposals equal to
// the current date are dropped without an event.
func (s *Session) ConfirmEntry(ctx context.Context, date calendar.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(date)
	if err != nil {
		return err
	}
	if !e.IsSetToNew() && !e.IsSetToRemove() {
		e.Discard()
		return nil
	}
	pending, _ := e.Pending()
	if err := s.cal.ConfirmMove(e); err != nil {
		s.rejectEdit(ctx, err)
		return err
	}
	s.emit(ctx, Event{Kind: EventEntryMoved, Date: pending})
	return nil
}

// MoveEntry stages and confirms in one step.
func (s *Session) MoveEntry(ctx context.Context, date calendar.Date, to string) error {
	if err := s.StageEntry(date, to); err != nil {
		return err
	}
	if err := s.ConfirmEntry(ctx, date); err != nil {
		_ = s.DiscardEntry(date)
		return err
	}
	return nil
}

// StageDose proposes a new date for one dose.
func (s *Session) StageDose(date calendar.Date, vaccineID int, proposed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, d, err := s.dose(date, vaccineID)
	if err != nil {
		return err
	}
	d.Stage(proposed)
	return nil
}

// DiscardDose drops the proposal staged on one dose.
func (s *Session) DiscardDose(date calendar.Date, vaccineID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, d, err := s.dose(date, vaccineID)
	if err != nil {
		return err
	}
	d.Discard()
	return nil
}

// ConfirmDose applies the proposal staged on one dose.
func (s *Session) ConfirmDose(ctx context.Context, date calendar.Date, vaccineID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, d, err := s.dose(date, vaccineID)
	if err != nil {
		return err
	}
	if !d.IsSetToNew() && !d.IsSetToRemove() {
		d.Discard()
		return nil
	}
	pending, _ := d.Pending()
	kind := EventDoseMoved
	if pending == "" {
		kind = EventDoseRemoved
	}
	if err := s.cal.ConfirmDoseMove(e, d); err != nil {
		s.rejectEdit(ctx, err)
		return err
	}
	s.emit(ctx, Event{Kind: kind, VaccineID: vaccineID, Date: pending})
	return nil
}

// MoveDose stages and confirms in one step.
func (s *Session) MoveDose(ctx context.Context, date calendar.Date, vaccineID int, to string) error {
	if err := s.StageDose(date, vaccineID, to); err != nil {
		return err
	}
	if err := s.ConfirmDose(ctx, date, vaccineID); err != nil {
		_ = s.DiscardDose(date, vaccineID)
		return err
	}
	return nil
}

// RemoveDose deletes one dose.
func (s *Session) RemoveDose(ctx context.Context, date calendar.Date, vaccineID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, d, err := s.dose(date, vaccineID)
	if err != nil {
		return err
	}
	if err := s.cal.RemoveDose(e, d); err != nil {
		return err
	}
	s.emit(ctx, Event{Kind: EventDoseRemoved, VaccineID: vaccineID, Date: date.String()})
	return nil
}

// RemoveAllOfType deletes every dose of a vaccine and returns how many were
// removed.
func (s *Session) RemoveAllOfType(ctx context.Context, vaccineID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cal == nil {
		return 0, ErrNotSubmitted
	}
	if _, ok := s.provider.Vaccine(vaccineID); !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownVaccine, vaccineID)
	}
	n := s.cal.RemoveAllOfType(vaccineID)
	if n > 0 {
		s.emit(ctx, Event{Kind: EventVaccineRemoved, VaccineID: vaccineID})
	}
	return n, nil
}

func (s *Session) rejectEdit(ctx context.Context, err error) {
	if errors.Is(err, schedule.ErrOutOfBounds) || errors.Is(err, calendar.ErrInvalidDateFormat) {
		s.reject(ctx, err)
	}
}
