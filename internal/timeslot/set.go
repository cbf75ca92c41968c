package timeslot

import "sort"

type key struct {
	start, end int64
}

func keyOf(s Slot) key {
	return key{start: s.Start.UnixNano(), end: s.End.UnixNano()}
}

// Set is an unordered collection of distinct slots.  Membership is by
// the instants of both ends, so the location attached to a time.Time does
// not matter.
type Set struct {
	items map[key]Slot
}

// NewSet returns a set holding the given slots.
func NewSet(slots ...Slot) Set {
	s := Set{items: make(map[key]Slot, len(slots))}
	for _, sl := range slots {
		s.Add(sl)
	}
	return s
}

// Add inserts sl; adding an equal slot twice keeps one copy.
func (s *Set) Add(sl Slot) {
	if s.items == nil {
		s.items = make(map[key]Slot)
	}
	s.items[keyOf(sl)] = sl
}

// Has reports exact membership: both start and end must match.
func (s Set) Has(sl Slot) bool {
	_, ok := s.items[keyOf(sl)]
	return ok
}

// Len returns the number of slots.
func (s Set) Len() int { return len(s.items) }

// Difference returns the slots of s that are not in other.
func (s Set) Difference(other Set) Set {
	out := Set{items: make(map[key]Slot, len(s.items))}
	for k, sl := range s.items {
		if _, ok := other.items[k]; !ok {
			out.items[k] = sl
		}
	}
	return out
}

// IsSubsetOf reports whether every slot of s is in other.
func (s Set) IsSubsetOf(other Set) bool {
	for k := range s.items {
		if _, ok := other.items[k]; !ok {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold the same slots.
func (s Set) Equal(other Set) bool {
	return s.Len() == other.Len() && s.IsSubsetOf(other)
}

// Sorted returns the slots ordered by start, then end.
func (s Set) Sorted() []Slot {
	out := make([]Slot, 0, len(s.items))
	for _, sl := range s.items {
		out = append(out, sl)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].End.Before(out[j].End)
		}
		return out[i].Before(out[j])
	})
	return out
}
