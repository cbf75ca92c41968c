package service

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// AllocationAdvisor looks for tables that seat a party with less spare
// capacity than the one requested.
type AllocationAdvisor struct {
	tables       TableLookup
	reservations ReservationLookup
}

func NewAllocationAdvisor(tables TableLookup, reservations ReservationLookup) *AllocationAdvisor {
	return &AllocationAdvisor{tables: tables, reservations: reservations}
}

// BetterAllocations returns the other tables of selected's restaurant
// that seat at least partySize, seat fewer than selected, and have no
// reservation lying within [start, end].  The result is ordered by seat
// count, tightest fit first, then by ID.
//
// The exclusion set is built from every reservation within the window
// across the whole system, then matched against candidate table IDs.
func (a *AllocationAdvisor) BetterAllocations(ctx context.Context, selected model.Table, start, end time.Time, partySize int) ([]model.Table, error) {
	tables, err := a.tables.ListTables(ctx, selected.RestaurantID)
	if err != nil {
		return nil, err
	}
	busy, err := a.reservations.ReservationsWithin(ctx, start, end)
	if err != nil {
		return nil, err
	}
	reserved := make(map[uint64]bool, len(busy))
	for _, r := range busy {
		reserved[r.TableID] = true
	}

	out := make([]model.Table, 0)
	for _, t := range tables {
		if t.ID == selected.ID || reserved[t.ID] {
			continue
		}
		if t.NumberOfSeats >= partySize && t.NumberOfSeats < selected.NumberOfSeats {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NumberOfSeats == out[j].NumberOfSeats {
			return out[i].ID < out[j].ID
		}
		return out[i].NumberOfSeats < out[j].NumberOfSeats
	})
	return out, nil
}

// FindBetterAllocations resolves the table by ID and delegates to
// BetterAllocations.
func (a *AllocationAdvisor) FindBetterAllocations(ctx context.Context, tableID uint64, start, end time.Time, partySize int) ([]model.Table, error) {
	if !start.Before(end) {
		return nil, invalidf("start must be before end")
	}
	if partySize <= 0 {
		return nil, invalidf("party_size must be positive")
	}
	table, err := a.tables.GetTable(ctx, tableID)
	if err != nil {
		return nil, notFound(err, "table")
	}
	return a.BetterAllocations(ctx, table, start, end, partySize)
}
