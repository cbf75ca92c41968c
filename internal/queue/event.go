// Package queue carries reservation lifecycle events to a message broker
// (RabbitMQ or Kafka) and consumes them into a booking log.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/table-reservation/internal/model"
)

// Event types.
const (
	EventReservationCreated = "reservation.created"
	EventReservationDeleted = "reservation.deleted"
)

// ReservationEvent is published after a reservation is committed or
// deleted.  It contains enough information for downstream consumers to
// log or notify without querying the primary database.
type ReservationEvent struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	ReservationID     uint64 `json:"reservation_id"`
	TableID           uint64 `json:"table_id"`
	MainGuestName     string `json:"main_guest_name"`
	NumberOfCustomers int    `json:"number_of_customers"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	OccurredAt        string `json:"occurred_at"`
}

// NewReservationEvent builds an event of the given type with a fresh ID.
// Reservation times are rendered as naive wall clock.
func NewReservationEvent(typ string, r model.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		ID:                uuid.NewString(),
		Type:              typ,
		ReservationID:     r.ID,
		TableID:           r.TableID,
		MainGuestName:     r.MainGuestName,
		NumberOfCustomers: r.NumberOfCustomers,
		StartTime:         r.StartTime.Format(time.DateTime),
		EndTime:           r.EndTime.Format(time.DateTime),
		OccurredAt:        at.UTC().Format(time.RFC3339),
	}
}
