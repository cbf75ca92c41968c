package model

import "time"

// Reservation books one table for one time slot.  StartTime and EndTime
// are naive wall-clock times in the service's reference timezone; they
// are stored with the UTC location so that equal wall clocks compare
// equal regardless of where they came from.
//
// Fields:
//
//	ID                – primary key identifier.
//	MainGuestName     – name the booking is held under.
//	NumberOfCustomers – party size.
//	TableID           – table being reserved.
//	StartTime         – slot start (naive).
//	EndTime           – slot end (naive).
type Reservation struct {
	ID                uint64    `db:"id"`                  // reservations.id
	MainGuestName     string    `db:"main_guest_name"`     // reservations.main_guest_name
	NumberOfCustomers int       `db:"number_of_customers"` // reservations.number_of_customers
	TableID           uint64    `db:"table_id"`            // reservations.table_id
	StartTime         time.Time `db:"start_time"`          // reservations.start_time
	EndTime           time.Time `db:"end_time"`            // reservations.end_time
}
