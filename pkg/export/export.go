// Package export renders a calendar view as downloadable files.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kilianp07/vaxcal/core/schedule"
)

// Formats.
const (
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatICS   = "ics"
	FormatChart = "html"
)

// ErrUnknownFormat is returned by Write for unsupported formats.
var ErrUnknownFormat = errors.New("unknown export format")

// Subject is written in the first CSV column of every row.
const Subject = "Szczepienie"

const dataURIPrefix = "data:text/csv;charset=utf-8,"

// WriteJSON writes the calendar to w in JSON format.
func WriteJSON(w io.Writer, entries []schedule.EntryView) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// WriteCSV writes one row per visit with the vaccine names of its doses in
// the description column, each followed by a newline.
func WriteCSV(w io.Writer, entries []schedule.EntryView) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Subject", "Start Date", "Description"}); err != nil {
		return err
	}
	for _, e := range entries {
		var desc strings.Builder
		for _, d := range e.Doses {
			desc.WriteString(d.Vaccine)
			desc.WriteByte('\n')
		}
		if err := cw.Write([]string{Subject, e.Date.String(), desc.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DataURI returns the CSV export as a data URI suitable for a download link.
func DataURI(entries []schedule.EntryView) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, entries); err != nil {
		return "", err
	}
	return dataURIPrefix + EscapeURI(buf.String()), nil
}

var uriEscaper = strings.NewReplacer("\n", "%0D%0A", " ", "%20", `"`, "%22")

// EscapeURI escapes newlines, spaces and double quotes for embedding in a
// data URI. Other characters are kept.
func EscapeURI(s string) string { return uriEscaper.Replace(s) }

// Write dispatches on format.
func Write(w io.Writer, format string, entries []schedule.EntryView) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return WriteCSV(w, entries)
	case FormatJSON, "":
		return WriteJSON(w, entries)
	case FormatICS:
		return WriteICS(w, entries, ICSOptions{})
	case FormatChart:
		return WriteChart(w, entries, ChartOptions{})
	}
	return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

// Supported reports whether Write accepts format.
func Supported(format string) bool {
	switch strings.ToLower(format) {
	case FormatCSV, FormatJSON, FormatICS, FormatChart:
		return true
	}
	return false
}

// ContentType returns the MIME type of a format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatICS:
		return "text/calendar; charset=utf-8"
	case FormatChart:
		return "text/html; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}
