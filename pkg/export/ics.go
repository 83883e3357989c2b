package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/vaxcal/core/schedule"
)

// ProductID identifies the generator in ICS files.
const ProductID = "-//vaxcal//vaccination calendar//EN"

// ICSOptions tune WriteICS.
type ICSOptions struct {
	Name string
	// ReminderDays adds a display alarm that many days before each visit
	// when positive.
	ReminderDays int
	// Stamp is used as DTSTAMP. Zero means now.
	Stamp time.Time
}

type icsWriter struct {
	w   io.Writer
	err error
}

func (iw *icsWriter) line(format string, args ...any) {
	if iw.err != nil {
		return
	}
	_, iw.err = fmt.Fprintf(iw.w, format+"\r\n", args...)
}

// WriteICS writes one all-day event per visit. UIDs depend only on the date
// and the vaccines of the visit so re-imports update existing events.
func WriteICS(w io.Writer, entries []schedule.EntryView, o ICSOptions) error {
	if o.Name == "" {
		o.Name = "Vaccination calendar"
	}
	if o.Stamp.IsZero() {
		o.Stamp = time.Now()
	}
	stamp := o.Stamp.UTC().Format("20060102T150405Z")

	iw := &icsWriter{w: w}
	iw.line("BEGIN:VCALENDAR")
	iw.line("VERSION:2.0")
	iw.line("PRODID:%s", ProductID)
	iw.line("CALSCALE:GREGORIAN")
	iw.line("X-WR-CALNAME:%s", escapeText(o.Name))
	for _, e := range entries {
		names := make([]string, 0, len(e.Doses))
		ids := make([]string, 0, len(e.Doses))
		for _, d := range e.Doses {
			names = append(names, d.Name)
			ids = append(ids, strconv.Itoa(d.VaccineID))
		}
		start := e.Date
		iw.line("BEGIN:VEVENT")
		iw.line("UID:%s-%s@vaxcal", compact(start.String()), strings.Join(ids, "."))
		iw.line("DTSTAMP:%s", stamp)
		iw.line("DTSTART;VALUE=DATE:%s", compact(start.String()))
		iw.line("DTEND;VALUE=DATE:%s", compact(start.AddDays(1).String()))
		iw.line("SUMMARY:%s", escapeText(Subject+": "+strings.Join(names, ", ")))
		iw.line("DESCRIPTION:%s", escapeText(strings.Join(names, "\n")))
		if o.ReminderDays > 0 {
			iw.line("BEGIN:VALARM")
			iw.line("ACTION:DISPLAY")
			iw.line("DESCRIPTION:%s", escapeText(Subject))
			iw.line("TRIGGER:-P%dD", o.ReminderDays)
			iw.line("END:VALARM")
		}
		iw.line("END:VEVENT")
	}
	iw.line("END:VCALENDAR")
	return iw.err
}

func compact(iso string) string { return strings.ReplaceAll(iso, "-", "") }

var textEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

func escapeText(s string) string { return textEscaper.Replace(s) }
