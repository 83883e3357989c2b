package catalog

import (
	"github.com/kilianp07/vaxcal/core/calendar"
	"github.com/kilianp07/vaxcal/core/model"
)

// Replaces makes combined stand in for each of parts: selecting combined
// deselects the parts, deselecting it restores the parts that were selected
// at the time. Repeating the current state is a no-op.
func Replaces(combined *model.Vaccine, parts ...*model.Vaccine) {
	var restore []*model.Vaccine
	was := combined.Selected()
	combined.OnSelectionChanged(func() {
		now := combined.Selected()
		if now == was {
			return
		}
		was = now
		if now {
			restore = restore[:0]
			for _, p := range parts {
				if p.Selected() {
					restore = append(restore, p)
					_ = p.SetSelected(false)
				}
			}
			return
		}
		for _, p := range restore {
			_ = p.SetSelected(true)
		}
		restore = nil
	})
}

// DelayWhen shifts every offset of v by days while both v and other are
// selected. The hook is registered on both definitions so toggling either
// one recomputes the shift.
func DelayWhen(v, other *model.Vaccine, days int) {
	applied := 0
	update := func() {
		want := 0
		if v.Selected() && other.Selected() {
			want = days
		}
		if want == applied {
			return
		}
		shift(v, want-applied)
		applied = want
	}
	v.OnSelectionChanged(update)
	other.OnSelectionChanged(update)
}

// BornBefore picks the offsets of v from the submitted date of birth: before
// if the child was born before cutoff, after otherwise. Missing or malformed
// dates leave the offsets unchanged.
func BornBefore(v *model.Vaccine, cutoff calendar.Date, before, after []int) {
	v.OnFormSubmitted(func(form model.FormContext) {
		dob, err := calendar.Parse(form.Value(model.FormDateOfBirth))
		if err != nil {
			return
		}
		if dob.Before(cutoff) {
			v.SetOffsets(before...)
		} else {
			v.SetOffsets(after...)
		}
	})
}

func shift(v *model.Vaccine, delta int) {
	offsets := v.Offsets()
	for i := range offsets {
		offsets[i] += delta
		if offsets[i] < 0 {
			offsets[i] = 0
		}
	}
	v.SetOffsets(offsets...)
}
