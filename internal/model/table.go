package model

// Table is a bookable seating resource inside a restaurant.  Tables are
// identified globally by Number, which is unique across every restaurant.
//
// Fields:
//
//	ID            – primary key identifier.
//	RestaurantID  – restaurant that owns the table.
//	NumberOfSeats – how many guests the table can seat.
//	Number        – human facing table number (unique).
type Table struct {
	ID            uint64 `db:"id"`              // tables.id
	RestaurantID  uint64 `db:"restaurant_id"`   // tables.restaurant_id
	NumberOfSeats int    `db:"number_of_seats"` // tables.number_of_seats
	Number        int    `db:"number"`          // tables.number (unique)
}
