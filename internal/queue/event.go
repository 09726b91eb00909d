// Package queue carries booking events over RabbitMQ: the publisher used
// after a booking commits and the audit consumer that appends them to the
// booking log.
package queue

import (
    "time"

    "github.com/iliyamo/movie-ticketing/internal/model"
)

// BookingCreatedQueue is the durable queue booking events are routed to.
const BookingCreatedQueue = "booking.created"

// BookingCreatedEvent is published once a booking has been committed.  It
// carries enough for downstream consumers to log or notify without
// querying the database.
type BookingCreatedEvent struct {
    BookingID       string   `json:"booking_id"`
    MovieID         uint64   `json:"movie_id"`
    ShowtimeID      uint64   `json:"showtime_id"`
    ShowDate        string   `json:"show_date"`
    ShowTime        string   `json:"show_time"`
    CustomerName    string   `json:"customer_name"`
    CustomerEmail   string   `json:"customer_email"`
    SeatLabels      []string `json:"seats"`
    TotalPriceCents int64    `json:"total_price_cents"`
    AvailableSeats  int      `json:"available_seats"`
    BookedAt        string   `json:"booked_at"`
}

// NewBookingCreatedEvent builds the event for a committed booking.
func NewBookingCreatedEvent(b *model.Booking, st *model.Showtime) BookingCreatedEvent {
    labels := make([]string, len(b.Seats))
    for i, s := range b.Seats {
        labels[i] = s.Position().Label()
    }
    ev := BookingCreatedEvent{
        BookingID:       b.ID,
        MovieID:         b.MovieID,
        ShowtimeID:      b.ShowtimeID,
        CustomerName:    b.CustomerName,
        CustomerEmail:   b.CustomerEmail,
        SeatLabels:      labels,
        TotalPriceCents: b.TotalPriceCents,
        BookedAt:        b.BookingDate.UTC().Format(time.RFC3339),
    }
    if st != nil {
        ev.ShowDate = st.Date
        ev.ShowTime = st.Time
        ev.AvailableSeats = st.AvailableSeats
    }
    return ev
}
