package handler

import (
    "context"
    "encoding/json"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/movie-ticketing/internal/booking"
    "github.com/iliyamo/movie-ticketing/internal/model"
)

// Booker runs the write side of bookings.
type Booker interface {
    CreateBooking(ctx context.Context, in booking.CreateBookingInput) (*model.Booking, error)
    GenerateInventory(ctx context.Context, showtimeID uint64, totalSeats int) ([]model.SeatPosition, error)
    CheckSeats(ctx context.Context, showtimeID uint64) ([]model.Seat, error)
}

// BookingQueries is the read side of bookings.
type BookingQueries interface {
    ListBookings(ctx context.Context, movieID *uint64) ([]model.BookingSummary, error)
    GetBookingDetail(ctx context.Context, bookingID string) (*model.BookingDetail, error)
    GetDashboardStats(ctx context.Context) (*model.DashboardStats, error)
}

// BookingHandler serves seat maps, booking creation and booking reads.
type BookingHandler struct {
    Bookings BookingQueries
    Booker   Booker
    Log      logrus.FieldLogger
}

// NewBookingHandler panics on nil dependencies.
func NewBookingHandler(booker Booker, queries BookingQueries, log logrus.FieldLogger) *BookingHandler {
    if booker == nil || queries == nil {
        panic("nil dependency passed to NewBookingHandler")
    }
    return &BookingHandler{Booker: booker, Bookings: queries, Log: log}
}

// seatRequest accepts either {"row":"A","number":1} or the label "A1".
type seatRequest struct {
    model.SeatPosition
}

func (s *seatRequest) UnmarshalJSON(b []byte) error {
    raw := strings.TrimSpace(string(b))
    if strings.HasPrefix(raw, `"`) {
        label, err := strconv.Unquote(raw)
        if err != nil {
            return err
        }
        p, err := ParseSeatLabel(label)
        if err != nil {
            return err
        }
        s.SeatPosition = p
        return nil
    }
    type plain model.SeatPosition
    var p plain
    if err := json.Unmarshal(b, &p); err != nil {
        return err
    }
    s.SeatPosition = model.SeatPosition(p)
    return nil
}

// ParseSeatLabel splits a label like "B12" into row and number.
func ParseSeatLabel(label string) (model.SeatPosition, error) {
    label = strings.ToUpper(strings.TrimSpace(label))
    i := strings.IndexFunc(label, func(r rune) bool { return r >= '0' && r <= '9' })
    if i <= 0 || strings.IndexFunc(label[:i], func(r rune) bool { return r < 'A' || r > 'Z' }) >= 0 {
        return model.SeatPosition{}, booking.InvalidInput("invalid seat %q", label)
    }
    n, err := strconv.Atoi(label[i:])
    if err != nil || n <= 0 {
        return model.SeatPosition{}, booking.InvalidInput("invalid seat %q", label)
    }
    return model.SeatPosition{Row: label[:i], Number: n}, nil
}

// createBookingRequest is the body of POST /v1/showtimes/:id/bookings.
type createBookingRequest struct {
    MovieID       uint64        `json:"movie_id"`
    Seats         []seatRequest `json:"seats"`
    CustomerName  string        `json:"customer_name"`
    CustomerEmail string        `json:"customer_email"`
}

// CreateBooking handles POST /v1/showtimes/:id/bookings.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
    showtimeID, err := parseID(c, "id")
    if err != nil {
        return respondError(c, h.Log, err)
    }
    var body createBookingRequest
    if err := bindJSON(c, &body); err != nil {
        return respondError(c, h.Log, err)
    }
    in := booking.CreateBookingInput{
        MovieID:       body.MovieID,
        ShowtimeID:    showtimeID,
        CustomerName:  body.CustomerName,
        CustomerEmail: body.CustomerEmail,
        Seats:         make([]model.SeatPosition, len(body.Seats)),
    }
    for i, s := range body.Seats {
        in.Seats[i] = s.SeatPosition
    }
    b, err := h.Booker.CreateBooking(c.Request().Context(), in)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, b)
}

// GenerateInventory handles POST /v1/showtimes/:id/inventory.
func (h *BookingHandler) GenerateInventory(c echo.Context) error {
    showtimeID, err := parseID(c, "id")
    if err != nil {
        return respondError(c, h.Log, err)
    }
    var body struct {
        TotalSeats int `json:"total_seats"`
    }
    if err := bindJSON(c, &body); err != nil {
        return respondError(c, h.Log, err)
    }
    layout, err := h.Booker.GenerateInventory(c.Request().Context(), showtimeID, body.TotalSeats)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"showtime_id": showtimeID, "seats": layout})
}

// CheckSeats handles GET /v1/showtimes/:id/seats.
func (h *BookingHandler) CheckSeats(c echo.Context) error {
    showtimeID, err := parseID(c, "id")
    if err != nil {
        return respondError(c, h.Log, err)
    }
    seats, err := h.Booker.CheckSeats(c.Request().Context(), showtimeID)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"showtime_id": showtimeID, "seats": seats})
}

// ListBookings handles GET /v1/bookings with an optional ?movie_id filter.
func (h *BookingHandler) ListBookings(c echo.Context) error {
    var movieID *uint64
    if raw := strings.TrimSpace(c.QueryParam("movie_id")); raw != "" {
        id, err := strconv.ParseUint(raw, 10, 64)
        if err != nil || id == 0 {
            return respondError(c, h.Log, booking.InvalidInput("invalid movie_id"))
        }
        movieID = &id
    }
    list, err := h.Bookings.ListBookings(c.Request().Context(), movieID)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": list})
}

// GetBooking handles GET /v1/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
    d, err := h.Bookings.GetBookingDetail(c.Request().Context(), c.Param("id"))
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, d)
}

// Dashboard handles GET /v1/admin/dashboard.
func (h *BookingHandler) Dashboard(c echo.Context) error {
    stats, err := h.Bookings.GetDashboardStats(c.Request().Context())
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, stats)
}
