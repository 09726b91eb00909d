package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/movie-ticketing/internal/booking"
	"github.com/iliyamo/movie-ticketing/internal/model"
)

// SQLStore groups the MySQL repositories behind the interfaces the booking
// core and the catalog handlers consume.
type SQLStore struct {
	Movies    *MovieRepo
	Showtimes *ShowtimeRepo
	Seats     *SeatRepo
	Bookings  *BookingRepo
}

// NewSQLStore wires every repository to db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		Movies:    NewMovieRepo(db),
		Showtimes: NewShowtimeRepo(db),
		Seats:     NewSeatRepo(db),
		Bookings:  NewBookingRepo(db),
	}
}

func (s *SQLStore) WithShowtimeLock(ctx context.Context, showtimeID uint64, fn booking.LockedFunc) error {
	return s.Bookings.WithShowtimeLock(ctx, showtimeID, fn)
}

func (s *SQLStore) InsertSeats(ctx context.Context, showtimeID uint64, positions []model.SeatPosition) error {
	return s.Seats.InsertSeats(ctx, showtimeID, positions)
}

func (s *SQLStore) ListSeats(ctx context.Context, showtimeID uint64) ([]model.Seat, error) {
	return s.Seats.ListSeats(ctx, showtimeID)
}

func (s *SQLStore) ListBookings(ctx context.Context, movieID *uint64) ([]model.BookingSummary, error) {
	return s.Bookings.List(ctx, movieID)
}

func (s *SQLStore) GetBookingDetail(ctx context.Context, bookingID string) (*model.BookingDetail, error) {
	return s.Bookings.GetDetail(ctx, bookingID)
}

func (s *SQLStore) CountMovies(ctx context.Context) (int, error) { return s.Movies.Count(ctx) }

func (s *SQLStore) CountBookings(ctx context.Context) (int, error) { return s.Bookings.Count(ctx) }

func (s *SQLStore) TotalRevenue(ctx context.Context) (int64, error) {
	return s.Bookings.TotalRevenue(ctx)
}

func (s *SQLStore) UpcomingShowtimes(ctx context.Context, fromDate string, limit int) ([]model.Showtime, error) {
	return s.Showtimes.Upcoming(ctx, fromDate, limit)
}

// ListMovies returns every movie, newest first, with its showtimes.
func (s *SQLStore) ListMovies(ctx context.Context) ([]model.Movie, error) {
	movies, err := s.Movies.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, len(movies))
	for i := range movies {
		ids[i] = movies[i].ID
	}
	byMovie, err := s.Showtimes.ListByMovies(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range movies {
		movies[i].Showtimes = byMovie[movies[i].ID]
	}
	return movies, nil
}

// GetMovie returns one movie with its showtimes.
func (s *SQLStore) GetMovie(ctx context.Context, id uint64) (*model.Movie, error) {
	m, err := s.Movies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	byMovie, err := s.Showtimes.ListByMovies(ctx, []uint64{id})
	if err != nil {
		return nil, err
	}
	m.Showtimes = byMovie[id]
	return m, nil
}

func (s *SQLStore) CreateMovie(ctx context.Context, m *model.Movie) error {
	return s.Movies.Create(ctx, m)
}

func (s *SQLStore) UpdateMovie(ctx context.Context, m *model.Movie) error {
	return s.Movies.Update(ctx, m)
}

func (s *SQLStore) DeleteMovie(ctx context.Context, id uint64) error {
	return s.Movies.Delete(ctx, id)
}

func (s *SQLStore) CreateShowtime(ctx context.Context, st *model.Showtime) error {
	return s.Showtimes.CreateWithSeats(ctx, st)
}

func (s *SQLStore) GetShowtime(ctx context.Context, movieID, showtimeID uint64) (*model.Showtime, error) {
	return s.Showtimes.GetForMovie(ctx, movieID, showtimeID)
}
