package schedule

import "github.com/kilianp07/vaxcal/core/calendar"

// DoseView is the serialisable form of a Dose.
type DoseView struct {
	VaccineID int           `json:"vaccine_id"`
	Vaccine   string        `json:"vaccine"`
	Disease   string        `json:"disease,omitempty"`
	Name      string        `json:"name"`
	Date      calendar.Date `json:"date"`
}

// EntryView is the serialisable form of an Entry.
type EntryView struct {
	Date  calendar.Date `json:"date"`
	Doses []DoseView    `json:"doses"`
}

// View flattens the calendar for export and transport.
func (c *Calendar) View() []EntryView {
	out := make([]EntryView, 0, len(c.entries))
	for _, e := range c.entries {
		ev := EntryView{Date: e.date, Doses: make([]DoseView, 0, len(e.doses))}
		for _, d := range e.doses {
			ev.Doses = append(ev.Doses, DoseView{
				VaccineID: d.vaccine.ID(),
				Vaccine:   d.vaccine.Name(),
				Disease:   d.vaccine.Disease(),
				Name:      d.name,
				Date:      d.date,
			})
		}
		out = append(out, ev)
	}
	return out
}
