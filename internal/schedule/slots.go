package schedule

import "time"

// SlotMenu is the fixed daily offering of start times: a morning band and an
// afternoon band, each chronological. The menu is configuration, not data —
// it never changes at runtime.
type SlotMenu struct {
	Morning   []TimeOfDay
	Afternoon []TimeOfDay
}

// DefaultSlotMenu mirrors the clinic's working day: hourly starts 07:00-11:00
// and 14:00-17:00.
var DefaultSlotMenu = SlotMenu{
	Morning: []TimeOfDay{
		MustTimeOfDay("07:00:00"),
		MustTimeOfDay("08:00:00"),
		MustTimeOfDay("09:00:00"),
		MustTimeOfDay("10:00:00"),
		MustTimeOfDay("11:00:00"),
	},
	Afternoon: []TimeOfDay{
		MustTimeOfDay("14:00:00"),
		MustTimeOfDay("15:00:00"),
		MustTimeOfDay("16:00:00"),
		MustTimeOfDay("17:00:00"),
	},
}

// Candidates returns the full menu in display order, morning first.
func (m SlotMenu) Candidates() []TimeOfDay {
	out := make([]TimeOfDay, 0, len(m.Morning)+len(m.Afternoon))
	out = append(out, m.Morning...)
	out = append(out, m.Afternoon...)
	return out
}

// AvailableSlots computes the menu start times still bookable for a dentist
// on a date, given the dentist's active appointments that day. When the date
// is today, candidates under the minimum lead time are dropped. Menu order is
// preserved; an empty result is a legitimate "fully booked" answer.
func AvailableSlots(menu SlotMenu, booked []Appointment, date, now time.Time) []TimeOfDay {
	today := sameDate(date, now)

	free := make([]TimeOfDay, 0, len(menu.Morning)+len(menu.Afternoon))
	for _, start := range menu.Candidates() {
		end, wrapped := VisitEnd(start)
		if wrapped {
			continue
		}
		if today && At(date, start).Sub(now) < MinLeadTime {
			continue
		}
		if overlapsAny(booked, start, end) {
			continue
		}
		free = append(free, start)
	}
	return free
}

func overlapsAny(existing []Appointment, start, end TimeOfDay) bool {
	for _, a := range existing {
		if Overlaps(a.Start, a.End, start, end) {
			return true
		}
	}
	return false
}
