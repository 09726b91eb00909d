package router // package router defines how HTTP routes are registered for the API

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticketing/internal/handler"
)

// Deps carries everything RegisterRoutes wires.  Nil middlewares are skipped.
type Deps struct {
	Catalog  *handler.CatalogHandler
	Bookings *handler.BookingHandler
	// Ping checks the storage backend for /healthz.
	Ping func(ctx context.Context) error
	// Cache wraps the read routes and invalidates on writes.
	Cache echo.MiddlewareFunc
	// RateLimit guards booking creation.
	RateLimit echo.MiddlewareFunc
}

// RegisterRoutes maps the public API onto e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	// Liveness/readiness probe, never cached.
	e.GET("/healthz", handler.Health(d.Ping))

	var mw []echo.MiddlewareFunc
	if d.Cache != nil {
		mw = append(mw, d.Cache)
	}
	v1 := e.Group("/v1", mw...)

	// Catalog
	v1.GET("/movies", d.Catalog.ListMovies)
	v1.POST("/movies", d.Catalog.CreateMovie)
	v1.GET("/movies/:id", d.Catalog.GetMovie)
	v1.PUT("/movies/:id", d.Catalog.UpdateMovie)
	v1.DELETE("/movies/:id", d.Catalog.DeleteMovie)
	v1.POST("/movies/:id/showtimes", d.Catalog.CreateShowtime)
	v1.GET("/movies/:id/showtimes/:showtime_id", d.Catalog.GetShowtime)

	// Seat inventory and booking
	v1.POST("/showtimes/:id/inventory", d.Bookings.GenerateInventory)
	v1.GET("/showtimes/:id/seats", d.Bookings.CheckSeats)
	var limit []echo.MiddlewareFunc
	if d.RateLimit != nil {
		limit = append(limit, d.RateLimit)
	}
	v1.POST("/showtimes/:id/bookings", d.Bookings.CreateBooking, limit...)

	// Read side
	v1.GET("/bookings", d.Bookings.ListBookings)
	v1.GET("/bookings/:id", d.Bookings.GetBooking)
	v1.GET("/admin/dashboard", d.Bookings.Dashboard)
}
