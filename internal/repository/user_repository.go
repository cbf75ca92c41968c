package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/table-reservation/internal/model"
)

const userColumns = `id, e_number, password_hash, role, is_active, created_at, updated_at`

// UserRepo persists staff accounts.
type UserRepo struct{ db *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a user and sets ID and timestamps.  A duplicate
// employee number yields ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC().Truncate(time.Second)
	u.CreatedAt, u.UpdatedAt = now, now
	const q = `INSERT INTO users (e_number, password_hash, role, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	id, err := insertID(ctx, conn(ctx, r.db), q, u.ENumber, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	u.ID = id
	return nil
}

// GetByENumber fetches a user by employee number.
func (r *UserRepo) GetByENumber(ctx context.Context, eNumber int) (model.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE e_number = ?`, eNumber)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepo) get(ctx context.Context, query string, arg interface{}) (model.User, error) {
	q := conn(ctx, r.db)
	var u model.User
	err := sqlx.GetContext(ctx, q, &u, q.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}
