package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/table-reservation/internal/model"
)

const tableColumns = `id, restaurant_id, number_of_seats, number`

// TableRepo provides data access to the tables table.
type TableRepo struct {
	db *sqlx.DB
}

// NewTableRepo constructs a TableRepo with the given DB handle.
func NewTableRepo(db *sqlx.DB) *TableRepo {
	return &TableRepo{db: db}
}

// Create inserts a table and sets its generated ID.  A duplicate table
// number yields ErrConflict; an unknown restaurant yields ErrNotFound.
func (r *TableRepo) Create(ctx context.Context, t *model.Table) error {
	const q = `INSERT INTO tables (restaurant_id, number_of_seats, number) VALUES (?, ?, ?)`
	id, err := insertID(ctx, conn(ctx, r.db), q, t.RestaurantID, t.NumberOfSeats, t.Number)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrConflict
		case isForeignKeyViolation(err):
			return ErrNotFound
		}
		return err
	}
	t.ID = id
	return nil
}

// GetByID retrieves a table or ErrNotFound.
func (r *TableRepo) GetByID(ctx context.Context, id uint64) (model.Table, error) {
	q := conn(ctx, r.db)
	var t model.Table
	err := sqlx.GetContext(ctx, q, &t, q.Rebind(`SELECT `+tableColumns+` FROM tables WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Table{}, ErrNotFound
	}
	return t, err
}

// LockTx takes an exclusive row lock on the table inside tx.  The lock is
// held until tx ends, serialising every booking made against the table.
func (r *TableRepo) LockTx(ctx context.Context, tx *sqlx.Tx, id uint64) (model.Table, error) {
	var t model.Table
	err := tx.GetContext(ctx, &t, tx.Rebind(`SELECT `+tableColumns+` FROM tables WHERE id = ? FOR UPDATE`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Table{}, ErrNotFound
	}
	return t, err
}

// ListByRestaurant returns the tables of a restaurant ordered by seat
// count, then ID.
func (r *TableRepo) ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Table, error) {
	q := conn(ctx, r.db)
	out := make([]model.Table, 0)
	err := sqlx.SelectContext(ctx, q, &out,
		q.Rebind(`SELECT `+tableColumns+` FROM tables WHERE restaurant_id = ? ORDER BY number_of_seats, id`), restaurantID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a table.  It returns ErrNotFound when nothing was
// deleted and ErrConflict when reservations still reference the table.
func (r *TableRepo) Delete(ctx context.Context, id uint64) error {
	q := conn(ctx, r.db)
	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM tables WHERE id = ?`), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
