package handler

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    logtest "github.com/sirupsen/logrus/hooks/test"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/mock"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/movie-ticketing/internal/booking"
    "github.com/iliyamo/movie-ticketing/internal/model"
)

type mockBooker struct {
    mock.Mock
}

func (m *mockBooker) CreateBooking(ctx context.Context, in booking.CreateBookingInput) (*model.Booking, error) {
    args := m.Called(ctx, in)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *mockBooker) GenerateInventory(ctx context.Context, showtimeID uint64, totalSeats int) ([]model.SeatPosition, error) {
    args := m.Called(ctx, showtimeID, totalSeats)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).([]model.SeatPosition), args.Error(1)
}

func (m *mockBooker) CheckSeats(ctx context.Context, showtimeID uint64) ([]model.Seat, error) {
    args := m.Called(ctx, showtimeID)
    if args.Get(0) == nil {
        return nil, args.Error(1)
    }
    return args.Get(0).([]model.Seat), args.Error(1)
}

type nopQueries struct{}

func (nopQueries) ListBookings(context.Context, *uint64) ([]model.BookingSummary, error) {
    return []model.BookingSummary{}, nil
}
func (nopQueries) GetBookingDetail(_ context.Context, id string) (*model.BookingDetail, error) {
    return nil, booking.BookingNotFound(id)
}
func (nopQueries) GetDashboardStats(context.Context) (*model.DashboardStats, error) {
    return &model.DashboardStats{}, nil
}

func serve(h echo.HandlerFunc, method, target, body string, params ...string) *httptest.ResponseRecorder {
    e := echo.New()
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    for i := 0; i+1 < len(params); i += 2 {
        c.SetParamNames(append(c.ParamNames(), params[i])...)
        c.SetParamValues(append(c.ParamValues(), params[i+1])...)
    }
    _ = h(c)
    return rec
}

func TestParseSeatLabel(t *testing.T) {
    p, err := ParseSeatLabel(" b12 ")
    require.NoError(t, err)
    assert.Equal(t, model.SeatPosition{Row: "B", Number: 12}, p)

    for _, bad := range []string{"", "12", "A", "A0", "A-1"} {
        _, err := ParseSeatLabel(bad)
        assert.ErrorIs(t, err, booking.ErrInvalidInput, bad)
    }
}

func TestSeatRequest_AcceptsLabelsAndObjects(t *testing.T) {
    var body createBookingRequest
    err := json.Unmarshal([]byte(`{"seats":["A1",{"row":"c","number":4}],"customer_name":"Ada"}`), &body)
    require.NoError(t, err)
    require.Len(t, body.Seats, 2)
    assert.Equal(t, model.SeatPosition{Row: "A", Number: 1}, body.Seats[0].SeatPosition)
    assert.Equal(t, model.SeatPosition{Row: "c", Number: 4}, body.Seats[1].SeatPosition)

    assert.Error(t, json.Unmarshal([]byte(`{"seats":["??"]}`), &body))
}

func TestStatusFor(t *testing.T) {
    tests := []struct {
        err  error
        want int
    }{
        {booking.ShowtimeNotFound(1), http.StatusNotFound},
        {booking.SeatNotFound(1, "Z9"), http.StatusNotFound},
        {booking.SeatAlreadyBooked(1, "A1"), http.StatusConflict},
        {booking.InsufficientSeats(1, 2, 1), http.StatusConflict},
        {booking.InvalidInput("x"), http.StatusBadRequest},
        {&booking.Error{Code: booking.CodeIntegrity}, http.StatusInternalServerError},
        {fmt.Errorf("tx: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
        {fmt.Errorf("lock: %w", booking.ErrLockConflict), http.StatusServiceUnavailable},
        {errors.New("boom"), http.StatusInternalServerError},
    }
    for _, tt := range tests {
        assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
    }
}

func TestCreateBooking_MapsConflict(t *testing.T) {
    b := &mockBooker{}
    want := booking.CreateBookingInput{
        ShowtimeID:    7,
        Seats:         []model.SeatPosition{{Row: "A", Number: 1}},
        CustomerName:  "Ada",
        CustomerEmail: "ada@example.com",
    }
    b.On("CreateBooking", mock.Anything, want).Return(nil, booking.SeatAlreadyBooked(7, "A1"))
    log, _ := logtest.NewNullLogger()
    h := NewBookingHandler(b, nopQueries{}, log)

    rec := serve(h.CreateBooking, http.MethodPost, "/v1/showtimes/7/bookings",
        `{"seats":["A1"],"customer_name":"Ada","customer_email":"ada@example.com"}`, "id", "7")

    assert.Equal(t, http.StatusConflict, rec.Code)
    var body ErrorResponse
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    assert.Equal(t, "seat_already_booked", body.Error)
    assert.Equal(t, uint64(7), body.ShowtimeID)
    assert.Equal(t, "A1", body.Seat)
    b.AssertExpectations(t)
}

func TestCreateBooking_RejectsBadPath(t *testing.T) {
    b := &mockBooker{}
    log, _ := logtest.NewNullLogger()
    h := NewBookingHandler(b, nopQueries{}, log)

    rec := serve(h.CreateBooking, http.MethodPost, "/v1/showtimes/x/bookings", `{}`, "id", "x")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    b.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestRespondError_HidesInternalDetails(t *testing.T) {
    b := &mockBooker{}
    b.On("CheckSeats", mock.Anything, uint64(7)).Return(nil, errors.New("dial tcp 10.0.0.3:3306: refused"))
    log, hook := logtest.NewNullLogger()
    h := NewBookingHandler(b, nopQueries{}, log)

    rec := serve(h.CheckSeats, http.MethodGet, "/v1/showtimes/7/seats", "", "id", "7")
    assert.Equal(t, http.StatusInternalServerError, rec.Code)
    assert.NotContains(t, rec.Body.String(), "10.0.0.3")
    require.NotNil(t, hook.LastEntry())
    assert.Equal(t, "request failed", hook.LastEntry().Message)
}

func TestListBookings_InvalidMovieFilter(t *testing.T) {
    log, _ := logtest.NewNullLogger()
    h := NewBookingHandler(&mockBooker{}, nopQueries{}, log)

    rec := serve(h.ListBookings, http.MethodGet, "/v1/bookings?movie_id=abc", "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = serve(h.ListBookings, http.MethodGet, "/v1/bookings?movie_id=3", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestMovieRequestValidation(t *testing.T) {
    _, err := movieRequest{Title: "X", Director: "Y", Genre: "Z", Year: 1700}.toMovie()
    assert.ErrorIs(t, err, booking.ErrInvalidInput)

    blank := " "
    m, err := movieRequest{Title: " X ", Director: "Y", Genre: "Z", Year: 2000, PosterURL: &blank}.toMovie()
    require.NoError(t, err)
    assert.Equal(t, "X", m.Title)
    assert.Nil(t, m.PosterURL)
}

func TestShowtimeRequestValidation(t *testing.T) {
    ok := showtimeRequest{Date: "2030-05-02", Time: "20:30", PriceCents: 900, TotalSeats: 12}
    st, err := ok.toShowtime(3)
    require.NoError(t, err)
    assert.Equal(t, uint64(3), st.MovieID)

    for _, bad := range []showtimeRequest{
        {Date: "02/05/2030", Time: "20:30", PriceCents: 900, TotalSeats: 12},
        {Date: "2030-05-02", Time: "8pm", PriceCents: 900, TotalSeats: 12},
        {Date: "2030-05-02", Time: "20:30", PriceCents: -1, TotalSeats: 12},
        {Date: "2030-05-02", Time: "20:30", PriceCents: 900, TotalSeats: 0},
        {Date: "2030-05-02", Time: "20:30", PriceCents: 900, TotalSeats: booking.MaxSeatsPerShowtime + 1},
    } {
        _, err := bad.toShowtime(3)
        assert.ErrorIs(t, err, booking.ErrInvalidInput)
    }
}

func TestHealth(t *testing.T) {
    rec := serve(Health(nil), http.MethodGet, "/healthz", "")
    assert.Equal(t, http.StatusOK, rec.Code)

    rec = serve(Health(func(context.Context) error { return errors.New("down") }), http.MethodGet, "/healthz", "")
    assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
