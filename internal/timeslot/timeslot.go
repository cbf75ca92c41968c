// Package timeslot implements the interval algebra used by the booking
// engine and the generator that partitions a restaurant's opening hours
// into fixed-length slots.
//
// A Slot is a plain value.  Start <= End is expected but not enforced;
// callers validate intervals at the request boundary.
package timeslot

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidOperation is returned by Union when the two slots are
// separated by a gap.
var ErrInvalidOperation = errors.New("time slots must not have a gap if they are to be unioned")

// Slot is an interval between two timestamps.  Equality is structural
// on both ends, ordering is by Start only.
type Slot struct {
	Start time.Time
	End   time.Time
}

// New returns the slot [start, end].
func New(start, end time.Time) Slot {
	return Slot{Start: start, End: end}
}

func (s Slot) String() string {
	return fmt.Sprintf("<Slot(start=%s, end=%s)>", s.Start.Format(time.DateTime), s.End.Format(time.DateTime))
}

// Duration returns End - Start.
func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Equal reports whether both ends denote the same instants.
func (s Slot) Equal(other Slot) bool {
	return s.Start.Equal(other.Start) && s.End.Equal(other.End)
}

// Before orders slots by start time.
func (s Slot) Before(other Slot) bool {
	return s.Start.Before(other.Start)
}

// Overlaps reports whether the slots share any instant, partially or
// entirely.
func (s Slot) Overlaps(other Slot) bool {
	return s.startsWithin(other.Start) || s.endsWithin(other.End) || other.Contains(s)
}

// Contains reports whether other lies entirely within s.
func (s Slot) Contains(other Slot) bool {
	return !other.Start.Before(s.Start) && !other.End.After(s.End)
}

// ContainsTime reports whether t lies within s.  Both ends are inclusive,
// unlike slot containment.
func (s Slot) ContainsTime(t time.Time) bool {
	return !t.Before(s.Start) && !t.After(s.End)
}

// Intersection returns the part of the timeline covered by both slots.
// The boolean is false when the slots are disjoint.
func (s Slot) Intersection(other Slot) (Slot, bool) {
	switch {
	case s.Contains(other):
		return other, true
	case s.startsWithin(other.Start):
		return Slot{Start: other.Start, End: s.End}, true
	case s.endsWithin(other.End):
		return Slot{Start: s.Start, End: other.End}, true
	case other.Contains(s):
		return s, true
	}
	return Slot{}, false
}

// Adjacent reports whether one slot ends exactly where the other starts.
func (s Slot) Adjacent(other Slot) bool {
	return s.Start.Equal(other.End) || s.End.Equal(other.Start)
}

// Gap returns the interval strictly between two separated slots.  The
// boolean is false when the slots touch or overlap.
func (s Slot) Gap(other Slot) (Slot, bool) {
	switch {
	case s.End.Before(other.Start):
		return Slot{Start: s.End, End: other.Start}, true
	case other.End.Before(s.Start):
		return Slot{Start: other.End, End: s.Start}, true
	}
	return Slot{}, false
}

// Union returns the span enclosing both slots.  It fails with
// ErrInvalidOperation when a gap separates them.
func (s Slot) Union(other Slot) (Slot, error) {
	if _, ok := s.Gap(other); ok {
		return Slot{}, ErrInvalidOperation
	}
	start, end := s.Start, s.End
	if other.Start.Before(start) {
		start = other.Start
	}
	if other.End.After(end) {
		end = other.End
	}
	return Slot{Start: start, End: end}, nil
}

// startsWithin reports s.Start <= t < s.End.
func (s Slot) startsWithin(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

// endsWithin reports s.Start < t <= s.End.
func (s Slot) endsWithin(t time.Time) bool {
	return t.After(s.Start) && !t.After(s.End)
}

// Naive converts t into loc and returns the same wall clock labelled as
// UTC.  Every timestamp that reaches the engine or the store goes through
// here so that slots built from requests and slots built from stored rows
// compare equal.
func Naive(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// DayStart returns midnight of t's calendar day in t's location.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
