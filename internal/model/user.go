package model

import "time"

// Role names carried in access tokens and stored on users.
const (
	RoleAdmin    = "ADMIN"
	RoleEmployee = "EMPLOYEE"
)

// User represents a staff account as stored in the `users` table.
// Employees sign in with their employee number rather than an email.
// The json tags are omitted here because handlers define their own
// response types.
//
// Fields:
//
//	ID           – primary key identifier.
//	ENumber      – unique employee number (1000–9999).
//	PasswordHash – bcrypt hash of the password.
//	Role         – ADMIN or EMPLOYEE.
//	IsActive     – inactive users cannot sign in.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `db:"id"`            // users.id
	ENumber      int       `db:"e_number"`      // users.e_number
	PasswordHash string    `db:"password_hash"` // users.password_hash
	Role         string    `db:"role"`          // users.role
	IsActive     bool      `db:"is_active"`     // users.is_active
	CreatedAt    time.Time `db:"created_at"`    // users.created_at
	UpdatedAt    time.Time `db:"updated_at"`    // users.updated_at
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
