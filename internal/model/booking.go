package model

import "time"

// Booking records a customer reserving a set of seats for one showtime.
// Bookings are immutable once created.  TotalPriceCents always equals the
// showtime price multiplied by the number of seats.
//
// Fields:
//  ID              – opaque random identifier (UUID).
//  MovieID         – movie of the showtime.
//  ShowtimeID      – showtime being booked.
//  CustomerName    – name given at checkout.
//  CustomerEmail   – email given at checkout.
//  TotalPriceCents – amount charged in cents.
//  BookingDate     – creation timestamp (UTC).
//  Seats           – seats held by the booking, linked via booking_seats.
type Booking struct {
    ID              string    `json:"id"`                // bookings.id
    MovieID         uint64    `json:"movie_id"`          // bookings.movie_id
    ShowtimeID      uint64    `json:"showtime_id"`       // bookings.showtime_id
    CustomerName    string    `json:"customer_name"`     // bookings.customer_name
    CustomerEmail   string    `json:"customer_email"`    // bookings.customer_email
    TotalPriceCents int64     `json:"total_price_cents"` // bookings.total_price_cents
    BookingDate     time.Time `json:"booking_date"`      // bookings.booking_date
    Seats           []Seat    `json:"seats"`
}

// BookingSummary is a booking joined with the movie title and showtime
// schedule, as returned by booking listings.
type BookingSummary struct {
    Booking
    Movie    MovieRef    `json:"movie"`
    Showtime ShowtimeRef `json:"showtime"`
}

// BookingDetail is a booking joined with its full movie and showtime.
type BookingDetail struct {
    Booking
    Movie    Movie    `json:"movie"`
    Showtime Showtime `json:"showtime"`
}

// DashboardStats aggregates the numbers shown on the admin dashboard.
type DashboardStats struct {
    TotalMovies       int        `json:"total_movies"`
    TotalBookings     int        `json:"total_bookings"`
    TotalRevenueCents int64      `json:"total_revenue_cents"`
    UpcomingShowtimes []Showtime `json:"upcoming_showtimes"`
}
