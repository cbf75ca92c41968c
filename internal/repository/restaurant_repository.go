package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/table-reservation/internal/model"
)

// RestaurantRepo provides data access to the restaurants table.
type RestaurantRepo struct {
	db *sqlx.DB
}

// NewRestaurantRepo constructs a RestaurantRepo with the given DB handle.
func NewRestaurantRepo(db *sqlx.DB) *RestaurantRepo {
	return &RestaurantRepo{db: db}
}

// Create inserts a restaurant and sets its generated ID.
func (r *RestaurantRepo) Create(ctx context.Context, rest *model.Restaurant) error {
	const q = `INSERT INTO restaurants (name, open_hour, close_hour) VALUES (?, ?, ?)`
	id, err := insertID(ctx, conn(ctx, r.db), q, rest.Name, rest.OpenHour, rest.CloseHour)
	if err != nil {
		return err
	}
	rest.ID = id
	return nil
}

// List returns all restaurants ordered by ID.
func (r *RestaurantRepo) List(ctx context.Context) ([]model.Restaurant, error) {
	const q = `SELECT id, name, open_hour, close_hour FROM restaurants ORDER BY id`
	out := make([]model.Restaurant, 0)
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID retrieves a restaurant.  It returns ErrNotFound when no row
// matches.
func (r *RestaurantRepo) GetByID(ctx context.Context, id uint64) (model.Restaurant, error) {
	q := conn(ctx, r.db)
	var rest model.Restaurant
	err := sqlx.GetContext(ctx, q, &rest, q.Rebind(`SELECT id, name, open_hour, close_hour FROM restaurants WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Restaurant{}, ErrNotFound
	}
	return rest, err
}

// Update overwrites name and opening hours.  Returns ErrNotFound when the
// restaurant does not exist.
func (r *RestaurantRepo) Update(ctx context.Context, rest model.Restaurant) error {
	q := conn(ctx, r.db)
	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE restaurants SET name = ?, open_hour = ?, close_hour = ? WHERE id = ?`),
		rest.Name, rest.OpenHour, rest.CloseHour, rest.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports zero affected rows when values are unchanged.
		if _, err := r.GetByID(ctx, rest.ID); err != nil {
			return err
		}
	}
	return nil
}
