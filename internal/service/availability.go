package service

import (
	"context"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// AvailabilityResolver computes the free slots of a table on a day.
type AvailabilityResolver struct {
	tables       TableLookup
	reservations ReservationLookup
	slotMinutes  int
}

func NewAvailabilityResolver(tables TableLookup, reservations ReservationLookup, slotMinutes int) *AvailabilityResolver {
	return &AvailabilityResolver{tables: tables, reservations: reservations, slotMinutes: slotMinutes}
}

// AvailableSlots returns the generated slots of date's calendar day that
// no reservation on the table occupies.  date must be naive; its hour
// must fall within the restaurant's operating hours.
func (a *AvailabilityResolver) AvailableSlots(ctx context.Context, tableID uint64, date time.Time) (timeslot.Set, error) {
	table, err := a.tables.GetTable(ctx, tableID)
	if err != nil {
		return timeslot.Set{}, notFound(err, "table")
	}
	return a.availableFor(ctx, table, date)
}

func (a *AvailabilityResolver) availableFor(ctx context.Context, table model.Table, date time.Time) (timeslot.Set, error) {
	rest, err := a.tables.GetRestaurant(ctx, table.RestaurantID)
	if err != nil {
		return timeslot.Set{}, notFound(err, "restaurant")
	}
	if !rest.IsOpenAt(date.Hour()) {
		return timeslot.Set{}, invalidf("restaurant is open from %02d:00 to %02d:00", rest.OpenHour, rest.CloseHour)
	}

	all := timeslot.Generate(rest.OpenHour, rest.CloseHour, a.slotMinutes, date)
	booked, err := a.reservations.ReservationsForTableOnDate(ctx, table.ID, date)
	if err != nil {
		return timeslot.Set{}, err
	}
	taken := timeslot.NewSet()
	for _, r := range booked {
		taken.Add(timeslot.New(r.StartTime, r.EndTime))
	}
	return all.Difference(taken), nil
}
