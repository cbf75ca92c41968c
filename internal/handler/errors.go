package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/service"
)

// errorInfo is the HTTP rendering of an error.  An empty Message means
// the error's own text is shown.
type errorInfo struct {
	Status  int
	Message string
}

type errorMapping struct {
	err  error
	info errorInfo
}

// ErrorMapper maps domain errors to HTTP status codes and messages.
type ErrorMapper struct {
	mappings []errorMapping
	fallback errorInfo
}

// NewErrorMapper returns a mapper whose unmatched errors become 500.
func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{fallback: errorInfo{Status: http.StatusInternalServerError, Message: "internal server error"}}
}

// WithMapping adds a mapping.  Mappings are tried in insertion order.
func (m *ErrorMapper) WithMapping(err error, status int, message string) *ErrorMapper {
	m.mappings = append(m.mappings, errorMapping{err: err, info: errorInfo{Status: status, Message: message}})
	return m
}

// Map converts an error to HTTP status and message.
func (m *ErrorMapper) Map(err error) errorInfo {
	if errors.Is(err, context.DeadlineExceeded) {
		return errorInfo{Status: http.StatusGatewayTimeout, Message: "request timeout"}
	}
	for _, mp := range m.mappings {
		if errors.Is(err, mp.err) {
			info := mp.info
			if info.Message == "" {
				info.Message = err.Error()
			}
			return info
		}
	}
	return m.fallback
}

// domainErrors renders every rejection of the reservation engine.
var domainErrors = NewErrorMapper().
	WithMapping(service.ErrNotFound, http.StatusNotFound, "").
	WithMapping(service.ErrInvalidRequest, http.StatusBadRequest, "").
	WithMapping(service.ErrBetterAllocationExists, http.StatusBadRequest, "").
	WithMapping(service.ErrSlotUnavailable, http.StatusConflict, "").
	WithMapping(service.ErrCapacityExceeded, http.StatusBadRequest, "").
	WithMapping(service.ErrPastReservation, http.StatusBadRequest, "").
	WithMapping(service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials").
	WithMapping(service.ErrENumberTaken, http.StatusConflict, "")

// respondError writes err as {"error": ...}.  A better-allocation
// rejection also lists the alternative table IDs.  Server errors are
// logged; their text never reaches the client.
func respondError(c echo.Context, log *slog.Logger, err error) error {
	info := domainErrors.Map(err)
	if info.Status >= http.StatusInternalServerError {
		log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	}
	body := echo.Map{"error": info.Message}
	var better *service.BetterAllocationError
	if errors.As(err, &better) {
		body["tables"] = better.TableIDs
	}
	return c.JSON(info.Status, body)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
