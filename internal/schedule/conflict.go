package schedule

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	// MinLeadTime is the minimum interval between "now" and a bookable start.
	MinLeadTime = time.Hour
	// RescheduleWindow is how far ahead a reschedule may land.
	RescheduleWindow = 14 * 24 * time.Hour
)

var (
	ErrTooSoon              = errors.New("appointment starts less than one hour from now")
	ErrPatientAlreadyBooked = errors.New("patient already has an active appointment that day")
	ErrDentistConflict      = errors.New("dentist already has an appointment in that time range")
	ErrCrossesMidnight      = errors.New("appointment would run past midnight")
)

// Candidate is a proposed booking to be checked for admissibility.
type Candidate struct {
	PatientID uuid.UUID
	DentistID uuid.UUID
	Date      time.Time
	Start     TimeOfDay
}

// StartsAt returns the candidate's start instant.
func (c Candidate) StartsAt() time.Time {
	return At(c.Date, c.Start)
}

// CheckAdmissible decides whether the candidate may be booked given the
// patient's and the dentist's active appointments on the candidate date.
// Both lists must be pre-filtered to active statuses on that date, and on a
// reschedule must exclude the appointment being moved; with that exclusion a
// no-op reschedule to the current date/time passes every rule.
//
// The current time is injected so callers and tests control the clock.
func CheckAdmissible(c Candidate, patientActive, dentistActive []Appointment, now time.Time) error {
	end, wrapped := VisitEnd(c.Start)
	if wrapped {
		return ErrCrossesMidnight
	}

	if c.StartsAt().Sub(now) < MinLeadTime {
		return ErrTooSoon
	}

	if len(patientActive) > 0 {
		return ErrPatientAlreadyBooked
	}

	for _, existing := range dentistActive {
		if Overlaps(existing.Start, existing.End, c.Start, end) {
			return ErrDentistConflict
		}
	}

	return nil
}
