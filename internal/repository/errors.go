// Package repository implements persistence for restaurants, tables,
// reservations and users.  Two stores share the same contract: Store
// (MySQL or Postgres through sqlx) and MemoryStore.
//
// The sentinel values below allow higher layers to distinguish storage
// outcomes without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as a duplicate table number or deleting a
// table that still has reservations.  Handlers translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrConstraintViolation is returned when inserting a reservation hits
// the unique (table_id, start_time) index.  It means another request won
// the slot first.
var ErrConstraintViolation = errors.New("constraint violation")
