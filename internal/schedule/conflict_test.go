package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func activeAppt(start, end string) Appointment {
	return Appointment{
		ID:     uuid.New(),
		Start:  MustTimeOfDay(start),
		End:    MustTimeOfDay(end),
		Status: StatusPending,
	}
}

func TestCheckAdmissible_EmptyListsAdmissible(t *testing.T) {
	date := mustDate(t, "2025-06-01")
	now := At(date, MustTimeOfDay("08:00:00"))

	c := Candidate{Date: date, Start: MustTimeOfDay("10:00:00")}
	assert.NoError(t, CheckAdmissible(c, nil, nil, now))
}

func TestCheckAdmissible_LeadTimeBoundary(t *testing.T) {
	date := mustDate(t, "2025-06-01")
	now := At(date, MustTimeOfDay("09:00:00"))

	// 59 minutes ahead: rejected
	c := Candidate{Date: date, Start: MustTimeOfDay("09:59:00")}
	assert.ErrorIs(t, CheckAdmissible(c, nil, nil, now), ErrTooSoon)

	// 61 minutes ahead: admissible
	c.Start = MustTimeOfDay("10:01:00")
	assert.NoError(t, CheckAdmissible(c, nil, nil, now))

	// in the past: rejected
	c.Start = MustTimeOfDay("08:00:00")
	assert.ErrorIs(t, CheckAdmissible(c, nil, nil, now), ErrTooSoon)
}

func TestCheckAdmissible_OnePerDay(t *testing.T) {
	date := mustDate(t, "2025-06-01")
	now := At(date, MustTimeOfDay("06:00:00"))

	patientActive := []Appointment{activeAppt("08:00:00", "08:40:00")}

	// rejected regardless of dentist or time
	c := Candidate{Date: date, Start: MustTimeOfDay("16:00:00")}
	assert.ErrorIs(t, CheckAdmissible(c, patientActive, nil, now), ErrPatientAlreadyBooked)
}

func TestCheckAdmissible_DentistConflict(t *testing.T) {
	date := mustDate(t, "2025-06-01")
	now := At(date, MustTimeOfDay("06:00:00"))

	dentistActive := []Appointment{activeAppt("10:00:00", "10:40:00")}

	// overlapping: rejected
	c := Candidate{Date: date, Start: MustTimeOfDay("10:30:00")}
	assert.ErrorIs(t, CheckAdmissible(c, nil, dentistActive, now), ErrDentistConflict)

	// touching the existing end: admissible
	c.Start = MustTimeOfDay("10:40:00")
	assert.NoError(t, CheckAdmissible(c, nil, dentistActive, now))

	// ending exactly at the existing start: admissible
	c.Start = MustTimeOfDay("09:20:00")
	assert.NoError(t, CheckAdmissible(c, nil, dentistActive, now))
}

func TestCheckAdmissible_CrossesMidnight(t *testing.T) {
	date := mustDate(t, "2025-06-01")
	now := At(date, MustTimeOfDay("06:00:00"))

	c := Candidate{Date: date, Start: MustTimeOfDay("23:50:00")}
	assert.ErrorIs(t, CheckAdmissible(c, nil, nil, now), ErrCrossesMidnight)
}
