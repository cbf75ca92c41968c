package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// Seat limits for a single table.
const (
	minSeats = 1
	maxSeats = 12
)

// RestaurantStore is the persistence RestaurantHandler needs.
type RestaurantStore interface {
	CreateRestaurant(ctx context.Context, r *model.Restaurant) error
	ListRestaurants(ctx context.Context) ([]model.Restaurant, error)
	GetRestaurant(ctx context.Context, id uint64) (model.Restaurant, error)
	UpdateRestaurant(ctx context.Context, r model.Restaurant) error
	CreateTable(ctx context.Context, t *model.Table) error
	ListTables(ctx context.Context, restaurantID uint64) ([]model.Table, error)
	DeleteTable(ctx context.Context, id uint64) error
}

// CacheInvalidator drops cached listings after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// RestaurantHandler serves administration of restaurants and tables.
type RestaurantHandler struct {
	Store RestaurantStore
	Cache CacheInvalidator
	Log   *slog.Logger
}

func NewRestaurantHandler(store RestaurantStore, cache CacheInvalidator, log *slog.Logger) *RestaurantHandler {
	return &RestaurantHandler{Store: store, Cache: cache, Log: log}
}

type restaurantReq struct {
	Name      string `json:"name"`
	OpenHour  *int   `json:"open_hour"`
	CloseHour *int   `json:"close_hour"`
}

type restaurantResp struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	OpenHour  int    `json:"open_hour"`
	CloseHour int    `json:"close_hour"`
}

type tableReq struct {
	RestaurantID  uint64 `json:"restaurant_id"`
	NumberOfSeats int    `json:"number_of_seats"`
	Number        int    `json:"number"`
}

type tableResp struct {
	ID            uint64 `json:"id"`
	RestaurantID  uint64 `json:"restaurant_id"`
	NumberOfSeats int    `json:"number_of_seats"`
	Number        int    `json:"number"`
}

func toRestaurantResp(r model.Restaurant) restaurantResp {
	return restaurantResp{ID: r.ID, Name: r.Name, OpenHour: r.OpenHour, CloseHour: r.CloseHour}
}

func toTableResp(t model.Table) tableResp {
	return tableResp{ID: t.ID, RestaurantID: t.RestaurantID, NumberOfSeats: t.NumberOfSeats, Number: t.Number}
}

func toTableResps(ts []model.Table) []tableResp {
	out := make([]tableResp, len(ts))
	for i, t := range ts {
		out[i] = toTableResp(t)
	}
	return out
}

// validate checks name and 0 <= open_hour < close_hour <= 23.
func (req restaurantReq) validate() (model.Restaurant, string) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Restaurant{}, "name is required"
	}
	if req.OpenHour == nil || req.CloseHour == nil {
		return model.Restaurant{}, "open_hour and close_hour are required"
	}
	open, closeHour := *req.OpenHour, *req.CloseHour
	if open < 0 || closeHour > 23 || open >= closeHour {
		return model.Restaurant{}, "hours must satisfy 0 <= open_hour < close_hour <= 23"
	}
	return model.Restaurant{Name: name, OpenHour: open, CloseHour: closeHour}, ""
}

// CreateRestaurant handles POST /v1/restaurants.
func (h *RestaurantHandler) CreateRestaurant(c echo.Context) error {
	var req restaurantReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	rest, msg := req.validate()
	if msg != "" {
		return badRequest(c, msg)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Store.CreateRestaurant(ctx, &rest); err != nil {
		return h.storeError(c, err, "create restaurant failed")
	}
	h.Cache.Invalidate(ctx)
	return c.JSON(http.StatusCreated, toRestaurantResp(rest))
}

// ListRestaurants handles GET /v1/restaurants.
func (h *RestaurantHandler) ListRestaurants(c echo.Context) error {
	rs, err := h.Store.ListRestaurants(c.Request().Context())
	if err != nil {
		return h.storeError(c, err, "list restaurants failed")
	}
	out := make([]restaurantResp, len(rs))
	for i, r := range rs {
		out[i] = toRestaurantResp(r)
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateRestaurant handles PUT /v1/restaurants/:id.
func (h *RestaurantHandler) UpdateRestaurant(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid restaurant id")
	}
	var req restaurantReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	rest, msg := req.validate()
	if msg != "" {
		return badRequest(c, msg)
	}
	rest.ID = id
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Store.UpdateRestaurant(ctx, rest); err != nil {
		return h.storeError(c, err, "update restaurant failed")
	}
	h.Cache.Invalidate(ctx)
	return c.JSON(http.StatusOK, toRestaurantResp(rest))
}

// ListTables handles GET /v1/restaurants/:id/tables.
func (h *RestaurantHandler) ListTables(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid restaurant id")
	}
	ctx := c.Request().Context()
	if _, err := h.Store.GetRestaurant(ctx, id); err != nil {
		return h.storeError(c, err, "load restaurant failed")
	}
	ts, err := h.Store.ListTables(ctx, id)
	if err != nil {
		return h.storeError(c, err, "list tables failed")
	}
	return c.JSON(http.StatusOK, toTableResps(ts))
}

// CreateTable handles POST /v1/restaurants/tables.
func (h *RestaurantHandler) CreateTable(c echo.Context) error {
	var req tableReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.RestaurantID == 0 {
		return badRequest(c, "restaurant_id is required")
	}
	if req.NumberOfSeats < minSeats || req.NumberOfSeats > maxSeats {
		return badRequest(c, "number_of_seats must be between 1 and 12")
	}
	if req.Number <= 0 {
		return badRequest(c, "number must be positive")
	}
	t := model.Table{RestaurantID: req.RestaurantID, NumberOfSeats: req.NumberOfSeats, Number: req.Number}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Store.CreateTable(ctx, &t); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "table number already exists"})
		}
		return h.storeError(c, err, "create table failed")
	}
	h.Cache.Invalidate(ctx)
	return c.JSON(http.StatusCreated, toTableResp(t))
}

// DeleteTable handles DELETE /v1/restaurants/tables/:id.
func (h *RestaurantHandler) DeleteTable(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid table id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Store.DeleteTable(ctx, id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "table has reservations"})
		}
		return h.storeError(c, err, "delete table failed")
	}
	h.Cache.Invalidate(ctx)
	return c.NoContent(http.StatusNoContent)
}

func (h *RestaurantHandler) storeError(c echo.Context, err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	h.Log.Error(msg, "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}
