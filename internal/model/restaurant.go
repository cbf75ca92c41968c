package model

// Restaurant is a venue whose operating hours bound every reservation
// made against its tables.  This struct corresponds to a row in the
// `restaurants` table.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – display name of the restaurant.
//	OpenHour  – first bookable hour of the day (0–23).
//	CloseHour – closing hour of the day (0–23, greater than OpenHour).
type Restaurant struct {
	ID        uint64 `db:"id"`         // restaurants.id
	Name      string `db:"name"`       // restaurants.name
	OpenHour  int    `db:"open_hour"`  // restaurants.open_hour
	CloseHour int    `db:"close_hour"` // restaurants.close_hour
}

// IsOpenAt reports whether the given hour falls inside the operating window.
// The close hour itself is excluded.
func (r Restaurant) IsOpenAt(hour int) bool {
	return r.OpenHour <= hour && hour < r.CloseHour
}
