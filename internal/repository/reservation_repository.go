package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/table-reservation/internal/model"
)

const reservationColumns = `r.id, r.main_guest_name, r.number_of_customers, r.table_id, r.start_time, r.end_time`

// ReservationRepo provides data access to the reservations table.  All
// timestamps are naive wall-clock values; they are written as given and
// read back with the UTC location.
type ReservationRepo struct {
	db *sqlx.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ReservationFilter narrows ListByRestaurant.  From and To compare the
// calendar date of start_time only: From is inclusive, To exclusive.
// Zero values disable a filter.
type ReservationFilter struct {
	From       time.Time
	To         time.Time
	TableID    uint64
	Descending bool
}

// Create inserts a reservation and populates its ID.  Losing the unique
// (table_id, start_time) index yields ErrConstraintViolation.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (main_guest_name, number_of_customers, table_id, start_time, end_time) VALUES (?, ?, ?, ?, ?)`
	id, err := insertID(ctx, conn(ctx, r.db), q, res.MainGuestName, res.NumberOfCustomers, res.TableID, res.StartTime, res.EndTime)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrConstraintViolation
		case isForeignKeyViolation(err):
			return ErrNotFound
		}
		return err
	}
	res.ID = id
	return nil
}

// GetByID returns a single reservation or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	q := conn(ctx, r.db)
	var res model.Reservation
	err := sqlx.GetContext(ctx, q, &res, q.Rebind(`SELECT `+reservationColumns+` FROM reservations r WHERE r.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	if err != nil {
		return model.Reservation{}, err
	}
	normalize(&res)
	return res, nil
}

// ListForTableOnDate returns the reservations of a table whose start_time
// falls on date's calendar day.
func (r *ReservationRepo) ListForTableOnDate(ctx context.Context, tableID uint64, date time.Time) ([]model.Reservation, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return r.selectReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations r
		 WHERE r.table_id = ? AND r.start_time >= ? AND r.start_time < ?
		 ORDER BY r.start_time`,
		tableID, day, day.AddDate(0, 0, 1))
}

// ListWithin returns every reservation, on any table, that starts at or
// after start and ends at or before end.
func (r *ReservationRepo) ListWithin(ctx context.Context, start, end time.Time) ([]model.Reservation, error) {
	return r.selectReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations r
		 WHERE r.start_time >= ? AND r.end_time <= ?
		 ORDER BY r.start_time`,
		start, end)
}

// ListByRestaurant returns the reservations on every table of a
// restaurant, ordered by start time ascending unless Descending is set.
func (r *ReservationRepo) ListByRestaurant(ctx context.Context, restaurantID uint64, f ReservationFilter) ([]model.Reservation, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + reservationColumns + ` FROM reservations r JOIN tables t ON t.id = r.table_id WHERE t.restaurant_id = ?`)
	args := []interface{}{restaurantID}
	if !f.From.IsZero() {
		b.WriteString(` AND r.start_time >= ?`)
		args = append(args, dateOf(f.From))
	}
	if !f.To.IsZero() {
		b.WriteString(` AND r.start_time < ?`)
		args = append(args, dateOf(f.To))
	}
	if f.TableID != 0 {
		b.WriteString(` AND r.table_id = ?`)
		args = append(args, f.TableID)
	}
	if f.Descending {
		b.WriteString(` ORDER BY r.start_time DESC, r.id DESC`)
	} else {
		b.WriteString(` ORDER BY r.start_time ASC, r.id ASC`)
	}
	return r.selectReservations(ctx, b.String(), args...)
}

// Delete removes a reservation by ID and returns the number of rows
// deleted.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) (int64, error) {
	q := conn(ctx, r.db)
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM reservations WHERE id = ?`), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ReservationRepo) selectReservations(ctx context.Context, query string, args ...interface{}) ([]model.Reservation, error) {
	q := conn(ctx, r.db)
	out := make([]model.Reservation, 0)
	if err := sqlx.SelectContext(ctx, q, &out, q.Rebind(query), args...); err != nil {
		return nil, err
	}
	for i := range out {
		normalize(&out[i])
	}
	return out, nil
}

// normalize relabels scanned timestamps as UTC.  Drivers attach either
// time.UTC or a zero-offset fixed zone to columns without a timezone.
func normalize(res *model.Reservation) {
	res.StartTime = res.StartTime.UTC()
	res.EndTime = res.EndTime.UTC()
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
