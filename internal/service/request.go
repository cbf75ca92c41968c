package service

import (
	"strings"
	"time"
)

// CreateReservationRequest is a booking request as accepted from the API.
type CreateReservationRequest struct {
	MainGuestName     string
	NumberOfCustomers int
	TableID           uint64
	StartTime         time.Time
	EndTime           time.Time
}

// Validate applies the request-boundary rules, in order: the interval is
// ordered, both ends lie strictly after now, and the length equals
// slotLength exactly.  now and the request times must already be naive.
// No storage is consulted.
func (r CreateReservationRequest) Validate(now time.Time, slotLength time.Duration) error {
	if !r.StartTime.Before(r.EndTime) {
		return invalidf("start_time must be before end_time")
	}
	if !r.StartTime.After(now) || !r.EndTime.After(now) {
		return invalidf("start_time and end_time must be in the future")
	}
	if d := r.EndTime.Sub(r.StartTime); d != slotLength {
		return invalidf("reservation must last exactly %d minutes, got %s", int(slotLength/time.Minute), d)
	}
	if r.NumberOfCustomers <= 0 {
		return invalidf("number_of_customers must be positive")
	}
	if strings.TrimSpace(r.MainGuestName) == "" {
		return invalidf("main_guest_name is required")
	}
	if r.TableID == 0 {
		return invalidf("table_id is required")
	}
	return nil
}
