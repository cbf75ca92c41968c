package service

import (
	"context"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// TableLookup resolves tables and their owning restaurants.
type TableLookup interface {
	GetTable(ctx context.Context, id uint64) (model.Table, error)
	GetRestaurant(ctx context.Context, id uint64) (model.Restaurant, error)
	ListTables(ctx context.Context, restaurantID uint64) ([]model.Table, error)
}

// ReservationLookup reads existing bookings.
type ReservationLookup interface {
	ReservationsForTableOnDate(ctx context.Context, tableID uint64, date time.Time) ([]model.Reservation, error)
	ReservationsWithin(ctx context.Context, start, end time.Time) ([]model.Reservation, error)
}

// Store is everything the reservation engine needs from persistence.
// Both repository.Store and repository.MemoryStore satisfy it.
type Store interface {
	TableLookup
	ReservationLookup
	CreateReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
	DeleteReservation(ctx context.Context, id uint64) (int64, error)
	ListReservations(ctx context.Context, restaurantID uint64, f repository.ReservationFilter) ([]model.Reservation, error)
	// WithTableLock runs fn with exclusive access to the table's bookings.
	WithTableLock(ctx context.Context, tableID uint64, fn func(ctx context.Context) error) error
}
