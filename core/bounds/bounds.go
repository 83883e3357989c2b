// Package bounds validates user supplied dates before they reach the
// scheduler: range checks against a floor, a ceiling and the date of birth,
// and the checks run when the input form is submitted.
package bounds

import (
	"errors"
	"fmt"

	"github.com/kilianp07/vaxcal/core/calendar"
)

var (
	ErrOutOfRange               = errors.New("date out of range")
	ErrMissingDate              = errors.New("date missing")
	ErrFirstVaccinationTooEarly = errors.New("first vaccination before date of birth")
	ErrLicenseNotAccepted       = errors.New("license not accepted")
)

// Default range limits.
var (
	DefaultFloor   = calendar.New(1900, 1, 1)
	DefaultCeiling = calendar.New(3000, 12, 31)
)

// Checker accepts dates within [max(Floor, DateOfBirth), Ceiling].
type Checker struct {
	Floor   calendar.Date
	Ceiling calendar.Date
	// DateOfBirth raises the lower bound when set.
	DateOfBirth calendar.Date
}

// NewChecker returns a Checker with the default floor and ceiling.
func NewChecker() *Checker {
	return &Checker{Floor: DefaultFloor, Ceiling: DefaultCeiling}
}

func (c *Checker) lower() calendar.Date {
	if !c.DateOfBirth.IsZero() && c.DateOfBirth.After(c.Floor) {
		return c.DateOfBirth
	}
	return c.Floor
}

// Check parses s and verifies it lies within range.
func (c *Checker) Check(s string) (calendar.Date, error) {
	d, err := calendar.Parse(s)
	if err != nil {
		return calendar.Date{}, err
	}
	if lo := c.lower(); d.Before(lo) {
		return d, fmt.Errorf("%w: %s before %s", ErrOutOfRange, d, lo)
	}
	if !c.Ceiling.IsZero() && d.After(c.Ceiling) {
		return d, fmt.Errorf("%w: %s after %s", ErrOutOfRange, d, c.Ceiling)
	}
	return d, nil
}

// InBounds reports whether s is acceptable as a staged edit. The empty string
// stands for removal and is always accepted. Malformed dates are rejected.
func (c *Checker) InBounds(s string) bool {
	if s == "" {
		return true
	}
	_, err := c.Check(s)
	return err == nil
}
