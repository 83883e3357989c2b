package planner

import (
	"time"

	"github.com/kilianp07/vaxcal/core/schedule"
)

// EventKind names what happened in a session.
type EventKind string

const (
	EventSchemeChanged    EventKind = "scheme_changed"
	EventSelectionChanged EventKind = "selection_changed"
	EventRejected         EventKind = "rejected"
	EventSubmitted        EventKind = "submitted"
	EventEntryMoved       EventKind = "entry_moved"
	EventDoseMoved        EventKind = "dose_moved"
	EventDoseRemoved      EventKind = "dose_removed"
	EventVaccineRemoved   EventKind = "vaccine_removed"
)

// ChangesCalendar reports whether events of this kind carry a new calendar.
func (k EventKind) ChangesCalendar() bool {
	switch k {
	case EventSubmitted, EventEntryMoved, EventDoseMoved, EventDoseRemoved, EventVaccineRemoved:
		return true
	}
	return false
}

// Event is published on the session bus. Entries is set for kinds that
// change the calendar.
type Event struct {
	Kind      EventKind            `json:"kind"`
	SessionID string               `json:"session_id"`
	Scheme    string               `json:"scheme"`
	VaccineID int                  `json:"vaccine_id,omitempty"`
	Date      string               `json:"date,omitempty"`
	Reason    string               `json:"reason,omitempty"`
	Time      time.Time            `json:"time"`
	Entries   []schedule.EntryView `json:"entries,omitempty"`
}
