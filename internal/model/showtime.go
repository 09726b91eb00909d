package model

import "time"

// DateLayout and ClockLayout are the wire formats of Showtime.Date and
// Showtime.Time.
const (
    DateLayout  = "2006-01-02"
    ClockLayout = "15:04"
)

// Showtime is a scheduled screening of a movie with its own price and
// seat inventory.  AvailableSeats is a denormalised counter that must
// always equal TotalSeats minus the number of booked seats.
//
// Fields:
//  ID             – primary key identifier.
//  MovieID        – movie being screened.
//  Date           – screening date, YYYY-MM-DD.
//  Time           – screening time, HH:MM.
//  PriceCents     – price of one seat in cents.
//  TotalSeats     – size of the seat inventory.
//  AvailableSeats – seats not yet booked.
type Showtime struct {
    ID             uint64    `json:"id"`              // showtimes.id
    MovieID        uint64    `json:"movie_id"`        // showtimes.movie_id
    Date           string    `json:"date"`            // showtimes.show_date
    Time           string    `json:"time"`            // showtimes.show_time
    PriceCents     int64     `json:"price_cents"`     // showtimes.price_cents
    TotalSeats     int       `json:"total_seats"`     // showtimes.total_seats
    AvailableSeats int       `json:"available_seats"` // showtimes.available_seats
    CreatedAt      time.Time `json:"created_at"`      // showtimes.created_at
    UpdatedAt      time.Time `json:"updated_at"`      // showtimes.updated_at
}

// ShowtimeRef is the short form of a showtime embedded in booking listings.
type ShowtimeRef struct {
    ID   uint64 `json:"id"`
    Date string `json:"date"`
    Time string `json:"time"`
}

// Ref returns the short form of the showtime.
func (s Showtime) Ref() ShowtimeRef {
    return ShowtimeRef{ID: s.ID, Date: s.Date, Time: s.Time}
}
