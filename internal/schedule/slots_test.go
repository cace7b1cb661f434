package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func slotStrings(slots []TimeOfDay) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.String())
	}
	return out
}

func TestAvailableSlots_FutureDateNoBookings(t *testing.T) {
	date := mustDate(t, "2025-06-02")
	now := At(mustDate(t, "2025-06-01"), MustTimeOfDay("16:05:00"))

	got := AvailableSlots(DefaultSlotMenu, nil, date, now)

	assert.Equal(t, []string{
		"07:00:00", "08:00:00", "09:00:00", "10:00:00", "11:00:00",
		"14:00:00", "15:00:00", "16:00:00", "17:00:00",
	}, slotStrings(got))
}

func TestAvailableSlots_BookedSlotsRemoved(t *testing.T) {
	date := mustDate(t, "2025-06-02")
	now := At(mustDate(t, "2025-06-01"), MustTimeOfDay("08:00:00"))

	booked := []Appointment{
		activeAppt("09:00:00", "09:40:00"),
		// straddles two candidates
		activeAppt("15:30:00", "16:10:00"),
	}

	got := AvailableSlots(DefaultSlotMenu, booked, date, now)

	assert.Equal(t, []string{
		"07:00:00", "08:00:00", "10:00:00", "11:00:00",
		"14:00:00", "17:00:00",
	}, slotStrings(got))
}

func TestAvailableSlots_TodayDropsShortLeadTimes(t *testing.T) {
	date := mustDate(t, "2025-06-01")

	// 13:30: morning is gone, 14:00 is only 30 minutes away
	now := At(date, MustTimeOfDay("13:30:00"))
	got := AvailableSlots(DefaultSlotMenu, nil, date, now)
	assert.Equal(t, []string{"15:00:00", "16:00:00", "17:00:00"}, slotStrings(got))

	// 16:05: nothing is far enough ahead anymore
	now = At(date, MustTimeOfDay("16:05:00"))
	got = AvailableSlots(DefaultSlotMenu, nil, date, now)
	assert.Empty(t, got)

	// exactly 60 minutes of lead time is enough
	now = At(date, MustTimeOfDay("16:00:00"))
	got = AvailableSlots(DefaultSlotMenu, nil, date, now)
	assert.Equal(t, []string{"17:00:00"}, slotStrings(got))
}

func TestAvailableSlots_FullyBookedIsEmptyNotError(t *testing.T) {
	date := mustDate(t, "2025-06-02")
	now := At(mustDate(t, "2025-06-01"), MustTimeOfDay("08:00:00"))

	var booked []Appointment
	for _, start := range DefaultSlotMenu.Candidates() {
		end, _ := VisitEnd(start)
		booked = append(booked, Appointment{Start: start, End: end, Status: StatusConfirmed})
	}

	got := AvailableSlots(DefaultSlotMenu, booked, date, now)
	assert.Empty(t, got)
}

func TestSlotMenuCandidatesOrder(t *testing.T) {
	menu := SlotMenu{
		Morning:   []TimeOfDay{MustTimeOfDay("08:00:00"), MustTimeOfDay("09:00:00")},
		Afternoon: []TimeOfDay{MustTimeOfDay("14:00:00")},
	}
	assert.Equal(t, []string{"08:00:00", "09:00:00", "14:00:00"}, slotStrings(menu.Candidates()))
}
