package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Layouts accepted for timestamps.  Values without an offset are read in
// the reference timezone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateTime,
	time.DateOnly,
}

func parseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

// timestamp is a JSON time that accepts every layout in timestampLayouts.
type timestamp struct {
	raw string
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("timestamp must be a string")
	}
	t.raw = s
	return nil
}

func (t timestamp) in(loc *time.Location) (time.Time, error) {
	if t.raw == "" {
		return time.Time{}, errors.New("timestamp is required")
	}
	return parseTimestamp(t.raw, loc)
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// naiveLayout renders naive timestamps in responses.
const naiveLayout = "2006-01-02T15:04:05"
