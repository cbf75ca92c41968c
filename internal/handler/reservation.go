package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/service"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// Engine is the reservation surface ReservationHandler consumes.
// *service.ReservationService implements it.
type Engine interface {
	ComputeAvailableSlots(ctx context.Context, tableID uint64, date time.Time) ([]timeslot.Slot, error)
	FindBetterAllocations(ctx context.Context, tableID uint64, start, end time.Time, partySize int) ([]model.Table, error)
	ValidateAndCreate(ctx context.Context, req service.CreateReservationRequest) (model.Reservation, error)
	DeleteReservation(ctx context.Context, id uint64) (model.Reservation, error)
	ListReservations(ctx context.Context, restaurantID uint64, f repository.ReservationFilter) ([]model.Reservation, error)
	TodayReservations(ctx context.Context, restaurantID uint64, descending bool) ([]model.Reservation, error)
}

// TableFinder resolves a table for route ownership checks.
type TableFinder interface {
	GetTable(ctx context.Context, id uint64) (model.Table, error)
}

// Notifier publishes reservation events after commit.
type Notifier interface {
	Notify(ctx context.Context, ev queue.ReservationEvent)
}

// ReservationHandler serves bookings, availability and allocation advice.
type ReservationHandler struct {
	Engine   Engine
	Tables   TableFinder
	Events   Notifier
	Location *time.Location
	Log      *slog.Logger
}

func NewReservationHandler(engine Engine, tables TableFinder, events Notifier, loc *time.Location, log *slog.Logger) *ReservationHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReservationHandler{Engine: engine, Tables: tables, Events: events, Location: loc, Log: log}
}

type createReservationReq struct {
	MainGuestName     string    `json:"main_guest_name"`
	NumberOfCustomers int       `json:"number_of_customers"`
	TableID           uint64    `json:"table_id"`
	StartTime         timestamp `json:"start_time"`
	EndTime           timestamp `json:"end_time"`
}

type reservationResp struct {
	ID                uint64 `json:"id"`
	MainGuestName     string `json:"main_guest_name"`
	NumberOfCustomers int    `json:"number_of_customers"`
	TableID           uint64 `json:"table_id"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
}

type slotResp struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toReservationResp(r model.Reservation) reservationResp {
	return reservationResp{
		ID:                r.ID,
		MainGuestName:     r.MainGuestName,
		NumberOfCustomers: r.NumberOfCustomers,
		TableID:           r.TableID,
		StartTime:         r.StartTime.Format(naiveLayout),
		EndTime:           r.EndTime.Format(naiveLayout),
	}
}

func toReservationResps(rs []model.Reservation) []reservationResp {
	out := make([]reservationResp, len(rs))
	for i, r := range rs {
		out[i] = toReservationResp(r)
	}
	return out
}

// Create handles POST /v1/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	start, err := req.StartTime.in(h.Location)
	if err != nil {
		return badRequest(c, "start_time: "+err.Error())
	}
	end, err := req.EndTime.in(h.Location)
	if err != nil {
		return badRequest(c, "end_time: "+err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	res, err := h.Engine.ValidateAndCreate(ctx, service.CreateReservationRequest{
		MainGuestName:     strings.TrimSpace(req.MainGuestName),
		NumberOfCustomers: req.NumberOfCustomers,
		TableID:           req.TableID,
		StartTime:         start,
		EndTime:           end,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	h.Events.Notify(ctx, queue.NewReservationEvent(queue.EventReservationCreated, res, time.Now()))
	return c.JSON(http.StatusCreated, toReservationResp(res))
}

// Delete handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	res, err := h.Engine.DeleteReservation(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	h.Events.Notify(ctx, queue.NewReservationEvent(queue.EventReservationDeleted, res, time.Now()))
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /v1/reservations/:restaurant_id.  Optional query
// parameters: start and end (dates, end exclusive), table_id, and
// order=asc|desc.
func (h *ReservationHandler) List(c echo.Context) error {
	restaurantID, ok := pathID(c, "restaurant_id")
	if !ok {
		return badRequest(c, "invalid restaurant id")
	}
	var f repository.ReservationFilter
	var err error
	if s := c.QueryParam("start"); s != "" {
		if f.From, err = parseTimestamp(s, h.Location); err != nil {
			return badRequest(c, "start: "+err.Error())
		}
	}
	if s := c.QueryParam("end"); s != "" {
		if f.To, err = parseTimestamp(s, h.Location); err != nil {
			return badRequest(c, "end: "+err.Error())
		}
	}
	if s := c.QueryParam("table_id"); s != "" {
		if f.TableID, err = strconv.ParseUint(s, 10, 64); err != nil || f.TableID == 0 {
			return badRequest(c, "invalid table_id")
		}
	}
	if f.Descending, ok = parseOrder(c.QueryParam("order")); !ok {
		return badRequest(c, "order must be asc or desc")
	}
	// Filters compare calendar dates of naive times.
	if !f.From.IsZero() {
		f.From = timeslot.Naive(f.From, h.Location)
	}
	if !f.To.IsZero() {
		f.To = timeslot.Naive(f.To, h.Location)
	}

	rs, err := h.Engine.ListReservations(c.Request().Context(), restaurantID, f)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toReservationResps(rs))
}

// Today handles GET /v1/reservations/:restaurant_id/today.
func (h *ReservationHandler) Today(c echo.Context) error {
	restaurantID, ok := pathID(c, "restaurant_id")
	if !ok {
		return badRequest(c, "invalid restaurant id")
	}
	desc, ok := parseOrder(c.QueryParam("order"))
	if !ok {
		return badRequest(c, "order must be asc or desc")
	}
	rs, err := h.Engine.TodayReservations(c.Request().Context(), restaurantID, desc)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toReservationResps(rs))
}

// Slots handles GET /v1/restaurants/:restaurant_id/tables/:table_id/slots?date=.
// The date's hour must fall within opening hours.
func (h *ReservationHandler) Slots(c echo.Context) error {
	restaurantID, ok := pathID(c, "restaurant_id")
	if !ok {
		return badRequest(c, "invalid restaurant id")
	}
	tableID, ok := pathID(c, "table_id")
	if !ok {
		return badRequest(c, "invalid table id")
	}
	date, err := parseTimestamp(c.QueryParam("date"), h.Location)
	if err != nil {
		return badRequest(c, "date: "+err.Error())
	}
	ctx := c.Request().Context()
	table, err := h.Tables.GetTable(ctx, tableID)
	switch {
	case errors.Is(err, repository.ErrNotFound), err == nil && table.RestaurantID != restaurantID:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found in restaurant"})
	case err != nil:
		return respondError(c, h.Log, err)
	}

	slots, err := h.Engine.ComputeAvailableSlots(ctx, tableID, date)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out := make([]slotResp, len(slots))
	for i, s := range slots {
		out[i] = slotResp{Start: s.Start.Format(naiveLayout), End: s.End.Format(naiveLayout)}
	}
	return c.JSON(http.StatusOK, out)
}

// BetterAllocations handles GET /v1/tables/:table_id/better-allocations.
func (h *ReservationHandler) BetterAllocations(c echo.Context) error {
	tableID, ok := pathID(c, "table_id")
	if !ok {
		return badRequest(c, "invalid table id")
	}
	start, err := parseTimestamp(c.QueryParam("start"), h.Location)
	if err != nil {
		return badRequest(c, "start: "+err.Error())
	}
	end, err := parseTimestamp(c.QueryParam("end"), h.Location)
	if err != nil {
		return badRequest(c, "end: "+err.Error())
	}
	party, err := strconv.Atoi(c.QueryParam("party_size"))
	if err != nil {
		return badRequest(c, "invalid party_size")
	}
	ts, err := h.Engine.FindBetterAllocations(c.Request().Context(), tableID, start, end, party)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toTableResps(ts))
}

func parseOrder(s string) (descending, ok bool) {
	switch strings.ToLower(s) {
	case "", "asc":
		return false, true
	case "desc":
		return true, true
	}
	return false, false
}
