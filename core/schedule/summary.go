package schedule

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/vaxcal/core/calendar"
)

// Summary describes the spacing of visits in a calendar.
type Summary struct {
	Visits    int           `json:"visits"`
	Doses     int           `json:"doses"`
	First     calendar.Date `json:"first"`
	Last      calendar.Date `json:"last"`
	SpanDays  int           `json:"span_days"`
	MeanGap   float64       `json:"mean_gap_days"`
	StdDevGap float64       `json:"stddev_gap_days"`
	MinGap    float64       `json:"min_gap_days"`
	MaxGap    float64       `json:"max_gap_days"`
}

// Summarize computes visit counts and the gaps in days between consecutive
// entries. Gap fields are zero with fewer than two entries.
func Summarize(c *Calendar) Summary {
	s := Summary{Visits: len(c.entries), Doses: c.DoseCount()}
	if len(c.entries) == 0 {
		return s
	}
	s.First = c.entries[0].date
	s.Last = c.entries[len(c.entries)-1].date
	s.SpanDays = calendar.DaysBetween(s.First, s.Last)
	if len(c.entries) < 2 {
		return s
	}
	gaps := make([]float64, 0, len(c.entries)-1)
	for i := 1; i < len(c.entries); i++ {
		gaps = append(gaps, float64(calendar.DaysBetween(c.entries[i-1].date, c.entries[i].date)))
	}
	s.MeanGap, s.StdDevGap = stat.MeanStdDev(gaps, nil)
	if len(gaps) == 1 {
		// sample deviation is undefined for a single gap
		s.StdDevGap = 0
	}
	s.MinGap = floats.Min(gaps)
	s.MaxGap = floats.Max(gaps)
	return s
}
