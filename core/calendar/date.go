package calendar

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidDateFormat is returned when a string is not a well-formed
// YYYY-MM-DD date.
var ErrInvalidDateFormat = errors.New("invalid date format")

// Layout is the ISO layout accepted by Parse and produced by String.
const Layout = "YYYY-MM-DD"

// Date is an immutable Gregorian calendar date.
type Date struct {
	year  int
	month int
	day   int
}

const daysPer400Years = 146097

var monthLength = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// New builds a Date from its components. Month is 1-based. No range check is
// performed; callers construct dates from trusted values.
func New(year, month, day int) Date {
	return Date{year: year, month: month, day: day}
}

// Parse reads a YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	if len(s) != len(Layout) || s[4] != '-' || s[7] != '-' {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	y, err := digits(s[0:4])
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	m, err := digits(s[5:7])
	if err != nil || m < 1 || m > 12 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	d, err := digits(s[8:10])
	if err != nil || d < 1 || d > DaysIn(y, m) {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	return Date{year: y, month: m, day: d}, nil
}

// MustParse is like Parse but panics on error. Intended for static tables.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func digits(s string) (int, error) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrInvalidDateFormat
		}
	}
	return strconv.Atoi(s)
}

func (d Date) Year() int  { return d.year }
func (d Date) Month() int { return d.month }
func (d Date) Day() int   { return d.day }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// IsLeapYear applies the Gregorian rule: divisible by 4, except centuries
// not divisible by 400.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the length of month m in year y.
func DaysIn(year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	if month == 2 && IsLeapYear(year) {
		return 29
	}
	return monthLength[month]
}

// AddDays returns the date offset days after d. The walk consumes whole
// months so the loop runs at most once per month crossed. Negative offsets
// are treated as zero.
func (d Date) AddDays(offset int) Date {
	if offset <= 0 {
		return d
	}
	y, m, day := d.year, d.month, d.day
	// The Gregorian calendar repeats every 400 years.
	if offset > daysPer400Years {
		y += 400 * (offset / daysPer400Years)
		offset %= daysPer400Years
	}
	left := DaysIn(y, m) - day
	for offset > left {
		offset -= left + 1
		day = 1
		if m == 12 {
			m = 1
			y++
		} else {
			m++
		}
		left = DaysIn(y, m) - day
	}
	return Date{year: y, month: m, day: day + offset}
}

// AsNumber encodes the date as year*10000 + month*100 + day. The value is an
// ordering key only, not a day count.
func (d Date) AsNumber() int {
	return d.year*10000 + d.month*100 + d.day
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after o.
func (d Date) Compare(o Date) int {
	a, b := d.AsNumber(), o.AsNumber()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (d Date) Before(o Date) bool { return d.AsNumber() < o.AsNumber() }
func (d Date) After(o Date) bool  { return d.AsNumber() > o.AsNumber() }
func (d Date) Equal(o Date) bool  { return d == o }

// DaysBetween returns the number of days from a to b. It is negative when b
// precedes a.
func DaysBetween(a, b Date) int {
	return b.ordinal() - a.ordinal()
}

// ordinal counts days since 0001-01-01 in the proleptic Gregorian calendar.
func (d Date) ordinal() int {
	y := d.year - 1
	n := y*365 + y/4 - y/100 + y/400
	for m := 1; m < d.month; m++ {
		n += DaysIn(d.year, m)
	}
	return n + d.day - 1
}

// String formats the date as YYYY-MM-DD with zero padded month and day.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	p, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = p
	return nil
}
