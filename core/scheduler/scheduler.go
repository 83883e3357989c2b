package scheduler

import (
	"github.com/kilianp07/vaxcal/core/calendar"
	"github.com/kilianp07/vaxcal/core/model"
	"github.com/kilianp07/vaxcal/core/schedule"
)

// Builder turns an anchor date and a catalog into a Calendar.
type Builder struct {
	// Bounds is attached to built calendars to vet later edits. Nil accepts
	// every date.
	Bounds schedule.Bounds
}

// Build is Builder{}.Build.
func Build(anchor calendar.Date, catalog []*model.Vaccine) *schedule.Calendar {
	return Builder{}.Build(anchor, catalog)
}

// Build produces the calendar for the selected vaccines in catalog. Doses
// reference detached snapshots, so later offset rewrites on the catalog do
// not alter a built calendar. Doses sharing a date keep catalog order.
func (b Builder) Build(anchor calendar.Date, catalog []*model.Vaccine) *schedule.Calendar {
	cal := schedule.NewCalendar(b.Bounds)
	for _, v := range catalog {
		if v == nil || !v.Selected() {
			continue
		}
		snap := v.Snapshot()
		for i, off := range snap.Offsets() {
			cal.Add(schedule.NewDose(snap, anchor.AddDays(off), snap.DoseName(i)))
		}
	}
	return cal
}

// Plan is one dated dose as produced by Project, before grouping.
type Plan struct {
	VaccineID int           `json:"vaccine_id"`
	Name      string        `json:"name"`
	Offset    int           `json:"offset"`
	Date      calendar.Date `json:"date"`
}

// Project lists every dose the catalog would produce from anchor, in catalog
// and offset order, without grouping.
func Project(anchor calendar.Date, catalog []*model.Vaccine) []Plan {
	var out []Plan
	for _, v := range catalog {
		if v == nil || !v.Selected() {
			continue
		}
		for i, off := range v.Offsets() {
			out = append(out, Plan{VaccineID: v.ID(), Name: v.DoseName(i), Offset: off, Date: anchor.AddDays(off)})
		}
	}
	return out
}
