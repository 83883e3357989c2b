package bounds

import (
	"fmt"

	"github.com/kilianp07/vaxcal/core/calendar"
	"github.com/kilianp07/vaxcal/core/model"
)

// Form is the input form filled before a schedule is built.
type Form struct {
	DateOfBirth      string `json:"date_of_birth"`
	FirstVaccination string `json:"first_vaccination"`
	LicenseAccepted  bool   `json:"license_accepted"`
}

// SetDateOfBirth stores dob and copies it to the first vaccination date.
func (f *Form) SetDateOfBirth(dob string) {
	f.DateOfBirth = dob
	f.FirstVaccination = dob
}

// Value implements model.FormContext.
func (f *Form) Value(key string) string {
	switch key {
	case model.FormDateOfBirth:
		return f.DateOfBirth
	case model.FormFirstVaccination:
		return f.FirstVaccination
	}
	return ""
}

// Submission holds the parsed dates of a validated form.
type Submission struct {
	DateOfBirth      calendar.Date
	FirstVaccination calendar.Date
}

// Validate runs the submission checks in order and returns the first failure.
// The checker's DateOfBirth is updated to the parsed birth date on success.
func (c *Checker) Validate(f *Form) (Submission, error) {
	if !f.LicenseAccepted {
		return Submission{}, ErrLicenseNotAccepted
	}
	if f.DateOfBirth == "" {
		return Submission{}, fmt.Errorf("%w: date of birth", ErrMissingDate)
	}
	if f.FirstVaccination == "" {
		return Submission{}, fmt.Errorf("%w: first vaccination", ErrMissingDate)
	}
	floorOnly := Checker{Floor: c.Floor, Ceiling: c.Ceiling}
	dob, err := floorOnly.Check(f.DateOfBirth)
	if err != nil {
		return Submission{}, fmt.Errorf("date of birth: %w", err)
	}
	first, err := calendar.Parse(f.FirstVaccination)
	if err != nil {
		return Submission{}, fmt.Errorf("first vaccination: %w", err)
	}
	if first.Before(dob) {
		return Submission{}, ErrFirstVaccinationTooEarly
	}
	if _, err := floorOnly.Check(f.FirstVaccination); err != nil {
		return Submission{}, fmt.Errorf("first vaccination: %w", err)
	}
	c.DateOfBirth = dob
	return Submission{DateOfBirth: dob, FirstVaccination: first}, nil
}
