package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/table-reservation/internal/model"
)

// Store is the SQL-backed persistence layer.  It exposes a flat method
// set over the individual repositories so that services can depend on
// small interfaces instead of concrete repos.
type Store struct {
	db           *sqlx.DB
	restaurants  *RestaurantRepo
	tables       *TableRepo
	reservations *ReservationRepo
	users        *UserRepo
}

// NewStore wires all repositories to db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:           db,
		restaurants:  NewRestaurantRepo(db),
		tables:       NewTableRepo(db),
		reservations: NewReservationRepo(db),
		users:        NewUserRepo(db),
	}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// WithTableLock runs fn inside a transaction holding a row lock on the
// table.  Repository calls made with the context passed to fn join that
// transaction.  The transaction commits when fn returns nil and rolls
// back otherwise.  Nested calls reuse the outer transaction.
func (s *Store) WithTableLock(ctx context.Context, tableID uint64, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok && tx != nil {
		if _, err := s.tables.LockTx(ctx, tx, tableID); err != nil {
			return err
		}
		return fn(ctx)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := s.tables.LockTx(ctx, tx, tableID); err != nil {
		return err
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrConstraintViolation
		}
		return err
	}
	committed = true
	return nil
}

func (s *Store) CreateRestaurant(ctx context.Context, r *model.Restaurant) error {
	return s.restaurants.Create(ctx, r)
}

func (s *Store) ListRestaurants(ctx context.Context) ([]model.Restaurant, error) {
	return s.restaurants.List(ctx)
}

func (s *Store) GetRestaurant(ctx context.Context, id uint64) (model.Restaurant, error) {
	return s.restaurants.GetByID(ctx, id)
}

func (s *Store) UpdateRestaurant(ctx context.Context, r model.Restaurant) error {
	return s.restaurants.Update(ctx, r)
}

func (s *Store) CreateTable(ctx context.Context, t *model.Table) error {
	return s.tables.Create(ctx, t)
}

func (s *Store) GetTable(ctx context.Context, id uint64) (model.Table, error) {
	return s.tables.GetByID(ctx, id)
}

func (s *Store) ListTables(ctx context.Context, restaurantID uint64) ([]model.Table, error) {
	return s.tables.ListByRestaurant(ctx, restaurantID)
}

func (s *Store) DeleteTable(ctx context.Context, id uint64) error {
	return s.tables.Delete(ctx, id)
}

func (s *Store) CreateReservation(ctx context.Context, r *model.Reservation) error {
	return s.reservations.Create(ctx, r)
}

func (s *Store) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

func (s *Store) ReservationsForTableOnDate(ctx context.Context, tableID uint64, date time.Time) ([]model.Reservation, error) {
	return s.reservations.ListForTableOnDate(ctx, tableID, date)
}

func (s *Store) ReservationsWithin(ctx context.Context, start, end time.Time) ([]model.Reservation, error) {
	return s.reservations.ListWithin(ctx, start, end)
}

func (s *Store) ListReservations(ctx context.Context, restaurantID uint64, f ReservationFilter) ([]model.Reservation, error) {
	return s.reservations.ListByRestaurant(ctx, restaurantID, f)
}

func (s *Store) DeleteReservation(ctx context.Context, id uint64) (int64, error) {
	return s.reservations.Delete(ctx, id)
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	return s.users.Create(ctx, u)
}

func (s *Store) GetUserByENumber(ctx context.Context, eNumber int) (model.User, error) {
	return s.users.GetByENumber(ctx, eNumber)
}

func (s *Store) GetUserByID(ctx context.Context, id uint64) (model.User, error) {
	return s.users.GetByID(ctx, id)
}
