// Package service holds the reservation engine: availability of slots,
// allocation advice and validated booking.  It depends on persistence
// only through the interfaces in ports.go.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// Options configures a ReservationService.  Zero values select a 15
// minute slot, UTC, time.Now and slog.Default.
type Options struct {
	SlotMinutes int
	Location    *time.Location
	Clock       func() time.Time
	Logger      *slog.Logger
}

// ReservationValidator accepts or rejects booking requests and cancels
// bookings.
type ReservationValidator struct {
	store        Store
	availability *AvailabilityResolver
	advisor      *AllocationAdvisor
	slotLength   time.Duration
	loc          *time.Location
	clock        func() time.Time
	log          *slog.Logger
}

// ReservationService is the surface the API layer consumes.
type ReservationService struct {
	*ReservationValidator
	Availability *AvailabilityResolver
	Advisor      *AllocationAdvisor
}

// NewReservationService wires the resolver, advisor and validator over
// one store.
func NewReservationService(store Store, opts Options) *ReservationService {
	if opts.SlotMinutes <= 0 {
		opts.SlotMinutes = 15
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	availability := NewAvailabilityResolver(store, store, opts.SlotMinutes)
	advisor := NewAllocationAdvisor(store, store)
	return &ReservationService{
		ReservationValidator: &ReservationValidator{
			store:        store,
			availability: availability,
			advisor:      advisor,
			slotLength:   time.Duration(opts.SlotMinutes) * time.Minute,
			loc:          opts.Location,
			clock:        opts.Clock,
			log:          opts.Logger.With("component", "reservations"),
		},
		Availability: availability,
		Advisor:      advisor,
	}
}

// Naive normalises t to the reference timezone and drops the zone.
func (v *ReservationValidator) Naive(t time.Time) time.Time {
	return timeslot.Naive(t, v.loc)
}

// Now returns the current naive time.
func (v *ReservationValidator) Now() time.Time {
	return v.Naive(v.clock())
}

// SlotLength returns the configured slot length.
func (v *ReservationValidator) SlotLength() time.Duration { return v.slotLength }

// ComputeAvailableSlots returns the free slots of a table on date, sorted
// by start.
func (s *ReservationService) ComputeAvailableSlots(ctx context.Context, tableID uint64, date time.Time) ([]timeslot.Slot, error) {
	set, err := s.Availability.AvailableSlots(ctx, tableID, s.Naive(date))
	if err != nil {
		return nil, err
	}
	return set.Sorted(), nil
}

// FindBetterAllocations lists tables that fit partySize more tightly than
// tableID during [start, end].
func (s *ReservationService) FindBetterAllocations(ctx context.Context, tableID uint64, start, end time.Time, partySize int) ([]model.Table, error) {
	return s.Advisor.FindBetterAllocations(ctx, tableID, s.Naive(start), s.Naive(end), partySize)
}

// ValidateAndCreate checks req and persists it.  The request boundary
// rules run before any lookup.  Table resolution, allocation advice,
// slot availability, the capacity check and the insert then run under
// the table's lock, so concurrent requests for one slot admit exactly one.
func (v *ReservationValidator) ValidateAndCreate(ctx context.Context, req CreateReservationRequest) (model.Reservation, error) {
	req.StartTime = v.Naive(req.StartTime)
	req.EndTime = v.Naive(req.EndTime)
	if err := req.Validate(v.Now(), v.slotLength); err != nil {
		v.log.Info("reservation rejected", "table_id", req.TableID, "error", err)
		return model.Reservation{}, err
	}

	var created model.Reservation
	err := v.store.WithTableLock(ctx, req.TableID, func(ctx context.Context) error {
		table, err := v.store.GetTable(ctx, req.TableID)
		if err != nil {
			return notFound(err, "table")
		}

		better, err := v.advisor.BetterAllocations(ctx, table, req.StartTime, req.EndTime, req.NumberOfCustomers)
		if err != nil {
			return err
		}
		if len(better) > 0 {
			ids := make([]uint64, len(better))
			for i, t := range better {
				ids[i] = t.ID
			}
			return &BetterAllocationError{TableIDs: ids}
		}

		free, err := v.availability.availableFor(ctx, table, req.StartTime)
		if err != nil {
			return err
		}
		if !free.Has(timeslot.New(req.StartTime, req.EndTime)) {
			return ErrSlotUnavailable
		}

		if table.NumberOfSeats < req.NumberOfCustomers {
			return ErrCapacityExceeded
		}

		res := model.Reservation{
			MainGuestName:     req.MainGuestName,
			NumberOfCustomers: req.NumberOfCustomers,
			TableID:           table.ID,
			StartTime:         req.StartTime,
			EndTime:           req.EndTime,
		}
		if err := v.store.CreateReservation(ctx, &res); err != nil {
			return err
		}
		created = res
		return nil
	})
	if err != nil {
		err = translateStoreErr(err)
		v.logOutcome("reservation rejected", req.TableID, err)
		return model.Reservation{}, err
	}
	v.log.Info("reservation created", "reservation_id", created.ID, "table_id", created.TableID,
		"start_time", created.StartTime.Format(time.DateTime))
	return created, nil
}

// DeleteReservation removes a reservation that has not started yet and
// returns it.
func (v *ReservationValidator) DeleteReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := v.store.GetReservation(ctx, id)
	if err != nil {
		return model.Reservation{}, notFound(err, "reservation")
	}
	if res.StartTime.Before(v.Now()) {
		return model.Reservation{}, ErrPastReservation
	}
	n, err := v.store.DeleteReservation(ctx, id)
	if err != nil {
		v.logOutcome("reservation delete failed", res.TableID, err)
		return model.Reservation{}, err
	}
	if n == 0 {
		return model.Reservation{}, notFound(repository.ErrNotFound, "reservation")
	}
	v.log.Info("reservation deleted", "reservation_id", id, "table_id", res.TableID)
	return res, nil
}

// ListReservations returns a restaurant's bookings filtered by calendar
// date and table.
func (v *ReservationValidator) ListReservations(ctx context.Context, restaurantID uint64, f repository.ReservationFilter) ([]model.Reservation, error) {
	if _, err := v.store.GetRestaurant(ctx, restaurantID); err != nil {
		return nil, notFound(err, "restaurant")
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, invalidf("end must not be before start")
	}
	return v.store.ListReservations(ctx, restaurantID, f)
}

// TodayReservations returns the bookings of a restaurant that start today
// in the reference timezone.
func (v *ReservationValidator) TodayReservations(ctx context.Context, restaurantID uint64, descending bool) ([]model.Reservation, error) {
	today := timeslot.DayStart(v.Now())
	return v.ListReservations(ctx, restaurantID, repository.ReservationFilter{
		From:       today,
		To:         today.AddDate(0, 0, 1),
		Descending: descending,
	})
}

// translateStoreErr maps storage outcomes that can escape the locked
// section onto rejection reasons.
func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrConstraintViolation):
		return ErrSlotUnavailable
	case errors.Is(err, repository.ErrNotFound):
		return notFound(err, "table")
	}
	return err
}

func (v *ReservationValidator) logOutcome(msg string, tableID uint64, err error) {
	if IsRejection(err) {
		v.log.Info(msg, "table_id", tableID, "error", err)
		return
	}
	v.log.Error(msg, "table_id", tableID, "error", err)
}

// IsRejection reports whether err is a business-rule outcome rather than
// an infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrInvalidRequest, ErrBetterAllocationExists,
		ErrSlotUnavailable, ErrCapacityExceeded, ErrPastReservation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
