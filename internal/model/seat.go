package model

import (
    "strconv"
    "strings"
)

// SeatPosition addresses a seat inside one showtime's inventory by row
// label and 1-based seat number.
type SeatPosition struct {
    Row    string `json:"row"`
    Number int    `json:"number"`
}

// Label renders the position the way tickets print it, e.g. "A1".
func (p SeatPosition) Label() string {
    return p.Row + strconv.Itoa(p.Number)
}

// Normalize upper-cases and trims the row label.
func (p SeatPosition) Normalize() SeatPosition {
    return SeatPosition{Row: strings.ToUpper(strings.TrimSpace(p.Row)), Number: p.Number}
}

// Seat is one addressable unit of a showtime's inventory.  Seats are
// created in bulk together with their showtime and only ever transition
// from free to booked.
//
// Fields:
//  ID         – primary key identifier.
//  ShowtimeID – showtime owning the seat.
//  Row        – row label (A..E).
//  Number     – number of the seat within the row (1-based).
//  IsBooked   – true once a booking holds the seat.
type Seat struct {
    ID         uint64 `json:"id"`          // seats.id
    ShowtimeID uint64 `json:"showtime_id"` // seats.showtime_id
    Row        string `json:"row"`         // seats.row_label
    Number     int    `json:"number"`      // seats.seat_number
    IsBooked   bool   `json:"is_booked"`   // seats.is_booked
}

// Position returns the (row, number) address of the seat.
func (s Seat) Position() SeatPosition {
    return SeatPosition{Row: s.Row, Number: s.Number}
}
