package timeslot

import "time"

// Generate partitions a day's opening hours into consecutive slots of
// slotMinutes each, starting at openHour:00 on date's calendar day.
//
// A slot is emitted before the closing bound is checked, so the result
// always ends with one slot starting at or just after closeHour:00.
// Generation never leaves date's calendar day.  A non-positive
// slotMinutes yields an empty set.
func Generate(openHour, closeHour, slotMinutes int, date time.Time) Set {
	out := NewSet()
	if slotMinutes <= 0 {
		return out
	}
	step := time.Duration(slotMinutes) * time.Minute
	day := DayStart(date)
	closeAt := day.Add(time.Duration(closeHour) * time.Hour)
	nextDay := day.AddDate(0, 0, 1)

	cur := day.Add(time.Duration(openHour) * time.Hour)
	out.Add(Slot{Start: cur, End: cur.Add(step)})
	for cur.Before(closeAt) {
		cur = cur.Add(step)
		if !cur.Before(nextDay) {
			break
		}
		out.Add(Slot{Start: cur, End: cur.Add(step)})
	}
	return out
}
