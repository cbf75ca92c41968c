package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/table-reservation/internal/repository"
)

// Rejection reasons.  Every error returned by this package matches exactly
// one of these with errors.Is, or none when storage itself failed.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrBetterAllocationExists = errors.New("a better table is available for this party")
	ErrSlotUnavailable        = errors.New("time slot is not available")
	ErrCapacityExceeded       = errors.New("party size exceeds table capacity")
	ErrPastReservation        = errors.New("cannot delete a past reservation")
)

// BetterAllocationError names the tables the caller should choose from
// instead.  It matches ErrBetterAllocationExists.
type BetterAllocationError struct {
	TableIDs []uint64
}

func (e *BetterAllocationError) Error() string {
	ids := make([]string, len(e.TableIDs))
	for i, id := range e.TableIDs {
		ids[i] = strconv.FormatUint(id, 10)
	}
	return fmt.Sprintf("%s: tables %s", ErrBetterAllocationExists, strings.Join(ids, ", "))
}

func (e *BetterAllocationError) Is(target error) bool {
	return target == ErrBetterAllocationExists
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// notFound translates the storage sentinel and leaves other errors alone.
func notFound(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
