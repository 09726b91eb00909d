package booking

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/movie-ticketing/internal/model"
)

// upcomingLimit is how many showtimes the dashboard lists.
const upcomingLimit = 5

// QueryService is the read side of bookings.  It never mutates state.
type QueryService struct {
	reader Reader
	now    func() time.Time
}

// NewQueryService builds a QueryService.  A nil clock means time.Now.
func NewQueryService(reader Reader, now func() time.Time) *QueryService {
	if now == nil {
		now = time.Now
	}
	return &QueryService{reader: reader, now: now}
}

// ListBookings returns bookings newest first, optionally restricted to one movie.
func (q *QueryService) ListBookings(ctx context.Context, movieID *uint64) ([]model.BookingSummary, error) {
	list, err := q.reader.ListBookings(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.BookingSummary{}
	}
	return list, nil
}

// GetBookingDetail returns one booking with its movie, showtime and seats.
func (q *QueryService) GetBookingDetail(ctx context.Context, bookingID string) (*model.BookingDetail, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return nil, BookingNotFound(bookingID)
	}
	return q.reader.GetBookingDetail(ctx, bookingID)
}

// GetDashboardStats aggregates catalog and sales numbers.
func (q *QueryService) GetDashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	var (
		stats model.DashboardStats
		err   error
	)
	if stats.TotalMovies, err = q.reader.CountMovies(ctx); err != nil {
		return nil, err
	}
	if stats.TotalBookings, err = q.reader.CountBookings(ctx); err != nil {
		return nil, err
	}
	if stats.TotalRevenueCents, err = q.reader.TotalRevenue(ctx); err != nil {
		return nil, err
	}
	today := q.now().UTC().Format(model.DateLayout)
	if stats.UpcomingShowtimes, err = q.reader.UpcomingShowtimes(ctx, today, upcomingLimit); err != nil {
		return nil, err
	}
	if stats.UpcomingShowtimes == nil {
		stats.UpcomingShowtimes = []model.Showtime{}
	}
	return &stats, nil
}
