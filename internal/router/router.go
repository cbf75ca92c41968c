// Package router registers every HTTP route and its middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Health       echo.HandlerFunc
	Auth         *handler.AuthHandler
	Restaurants  *handler.RestaurantHandler
	Reservations *handler.ReservationHandler
}

// Options carries the middleware dependencies.
type Options struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc // applied to every /v1 route; nil disables
	Cache     echo.MiddlewareFunc // applied to restaurant and table listings; nil disables
}

// Register mounts the API on e.
//
//	GET    /healthz
//	POST   /v1/users/login
//	GET    /v1/users/info                                          any role
//	POST   /v1/users                                               ADMIN
//	POST   /v1/restaurants                                         ADMIN
//	GET    /v1/restaurants                                         ADMIN
//	PUT    /v1/restaurants/:id                                     ADMIN
//	GET    /v1/restaurants/:id/tables                              ADMIN
//	POST   /v1/restaurants/tables                                  ADMIN
//	DELETE /v1/restaurants/tables/:id                              ADMIN
//	GET    /v1/restaurants/:restaurant_id/tables/:table_id/slots   EMPLOYEE
//	GET    /v1/tables/:table_id/better-allocations                 EMPLOYEE
//	POST   /v1/reservations                                        EMPLOYEE
//	DELETE /v1/reservations/:id                                    ADMIN
//	GET    /v1/reservations/:restaurant_id                         ADMIN
//	GET    /v1/reservations/:restaurant_id/today                   EMPLOYEE
//
// ADMIN passes every EMPLOYEE gate.
func Register(e *echo.Echo, h Handlers, opts Options) {
	e.GET("/healthz", h.Health)

	rateLimit := opts.RateLimit
	if rateLimit == nil {
		rateLimit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	cache := opts.Cache
	if cache == nil {
		cache = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	// Public login shares the /v1 rate limiter with the protected API.
	e.POST("/v1/users/login", h.Auth.Login, rateLimit)

	auth := middleware.JWTAuth(opts.JWTSecret)
	employee := e.Group("/v1", rateLimit, auth, middleware.RequireRole(model.RoleEmployee))
	admin := e.Group("/v1", rateLimit, auth, middleware.RequireRole(model.RoleAdmin))

	employee.GET("/users/info", h.Auth.Info)
	admin.POST("/users", h.Auth.CreateUser)

	// Restaurant and table management. Listings go through the response cache.
	admin.POST("/restaurants", h.Restaurants.CreateRestaurant)
	admin.GET("/restaurants", h.Restaurants.ListRestaurants, cache)
	admin.PUT("/restaurants/:id", h.Restaurants.UpdateRestaurant)
	admin.GET("/restaurants/:id/tables", h.Restaurants.ListTables, cache)
	admin.POST("/restaurants/tables", h.Restaurants.CreateTable)
	admin.DELETE("/restaurants/tables/:id", h.Restaurants.DeleteTable)

	employee.GET("/restaurants/:restaurant_id/tables/:table_id/slots", h.Reservations.Slots)
	employee.GET("/tables/:table_id/better-allocations", h.Reservations.BetterAllocations)

	employee.POST("/reservations", h.Reservations.Create)
	admin.DELETE("/reservations/:id", h.Reservations.Delete)
	admin.GET("/reservations/:restaurant_id", h.Reservations.List)
	employee.GET("/reservations/:restaurant_id/today", h.Reservations.Today)
}
