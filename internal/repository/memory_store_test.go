package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-ticketing/internal/booking"
	"github.com/iliyamo/movie-ticketing/internal/model"
)

func seedMemory(t *testing.T) (*MemoryStore, *model.Movie) {
	t.Helper()
	s := NewMemoryStore(func() time.Time { return ts })
	m := &model.Movie{Title: "Spirited Away", Director: "Hayao Miyazaki", Year: 2001, Genre: "Animation"}
	require.NoError(t, s.CreateMovie(context.Background(), m))
	return s, m
}

func TestMemoryStore_CreateShowtimeGeneratesSeats(t *testing.T) {
	s, m := seedMemory(t)
	ctx := context.Background()

	st := &model.Showtime{MovieID: m.ID, Date: "2030-05-03", Time: "11:00", PriceCents: 900, TotalSeats: 12, AvailableSeats: 3}
	require.NoError(t, s.CreateShowtime(ctx, st))
	assert.NotZero(t, st.ID)
	assert.Equal(t, 12, st.AvailableSeats, "available seats start at capacity")

	seats, err := s.ListSeats(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, seats, 12)
	assert.Equal(t, "A1", seats[0].Position().Label())
	assert.Equal(t, "D3", seats[11].Position().Label())

	err = s.CreateShowtime(ctx, &model.Showtime{MovieID: 404, Date: "2030-05-03", Time: "11:00", TotalSeats: 5})
	assert.ErrorIs(t, err, booking.ErrMovieNotFound)
}

func TestMemoryStore_InsertSeatsIdempotentAndBounded(t *testing.T) {
	s, m := seedMemory(t)
	ctx := context.Background()
	st := &model.Showtime{MovieID: m.ID, Date: "2030-05-03", Time: "11:00", PriceCents: 900, TotalSeats: 5}
	require.NoError(t, s.CreateShowtime(ctx, st))

	layout, err := booking.GenerateLayout(5)
	require.NoError(t, err)
	require.NoError(t, s.InsertSeats(ctx, st.ID, layout))
	seats, err := s.ListSeats(ctx, st.ID)
	require.NoError(t, err)
	assert.Len(t, seats, 5)

	big, err := booking.GenerateLayout(6)
	require.NoError(t, err)
	assert.ErrorIs(t, s.InsertSeats(ctx, st.ID, big), booking.ErrInvalidInput)
	small, err := booking.GenerateLayout(4)
	require.NoError(t, err)
	assert.ErrorIs(t, s.InsertSeats(ctx, st.ID, small), booking.ErrInvalidInput)

	shifted := []model.SeatPosition{{Row: "A", Number: 1}, {Row: "B", Number: 1}, {Row: "C", Number: 1}, {Row: "D", Number: 1}, {Row: "E", Number: 9}}
	assert.ErrorIs(t, s.InsertSeats(ctx, st.ID, shifted), booking.ErrInvalidInput, "same length but a new position")
	seats, err = s.ListSeats(ctx, st.ID)
	require.NoError(t, err)
	assert.Len(t, seats, 5)
	assert.ErrorIs(t, s.InsertSeats(ctx, 999, layout), booking.ErrShowtimeNotFound)
}

func TestMemoryStore_ReadsReturnCopies(t *testing.T) {
	s, m := seedMemory(t)
	ctx := context.Background()
	st := &model.Showtime{MovieID: m.ID, Date: "2030-05-03", Time: "11:00", PriceCents: 900, TotalSeats: 5}
	require.NoError(t, s.CreateShowtime(ctx, st))

	seats, err := s.ListSeats(ctx, st.ID)
	require.NoError(t, err)
	seats[0].IsBooked = true

	again, err := s.ListSeats(ctx, st.ID)
	require.NoError(t, err)
	assert.False(t, again[0].IsBooked)
}

func TestMemoryStore_UnitOfWorkDiscardedOnError(t *testing.T) {
	s, m := seedMemory(t)
	ctx := context.Background()
	st := &model.Showtime{MovieID: m.ID, Date: "2030-05-03", Time: "11:00", PriceCents: 900, TotalSeats: 5}
	require.NoError(t, s.CreateShowtime(ctx, st))

	seats, err := s.ListSeats(ctx, st.ID)
	require.NoError(t, err)
	err = s.WithShowtimeLock(ctx, st.ID, func(ctx context.Context, tx booking.LedgerTx, locked *model.Showtime) error {
		n, err := tx.MarkBooked(ctx, "b-1", []uint64{seats[0].ID})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		left, err := tx.DecrementAvailable(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 4, left)

		view, err := tx.Seats(ctx)
		require.NoError(t, err)
		require.Len(t, view, 5)
		assert.True(t, view[0].IsBooked, "staged writes are visible inside the unit of work")
		assert.False(t, view[1].IsBooked)
		return booking.InvalidInput("abort")
	})
	assert.ErrorIs(t, err, booking.ErrInvalidInput)

	got, err := s.GetShowtime(ctx, m.ID, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.AvailableSeats)
	seats, err = s.ListSeats(ctx, st.ID)
	require.NoError(t, err)
	for _, seat := range seats {
		assert.False(t, seat.IsBooked)
	}
}

func TestMemoryStore_MarkBookedRejectsBookedSeat(t *testing.T) {
	s, m := seedMemory(t)
	ctx := context.Background()
	st := &model.Showtime{MovieID: m.ID, Date: "2030-05-03", Time: "11:00", PriceCents: 900, TotalSeats: 5}
	require.NoError(t, s.CreateShowtime(ctx, st))

	seats, err := s.ListSeats(ctx, st.ID)
	require.NoError(t, err)
	err = s.WithShowtimeLock(ctx, st.ID, func(ctx context.Context, tx booking.LedgerTx, _ *model.Showtime) error {
		n, err := tx.MarkBooked(ctx, "b-1", []uint64{seats[0].ID})
		require.NoError(t, err)
		require.Equal(t, 1, n)

		n, err = tx.MarkBooked(ctx, "b-2", []uint64{seats[0].ID, seats[1].ID})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_CatalogOrderingAndCascade(t *testing.T) {
	s, first := seedMemory(t)
	ctx := context.Background()
	second := &model.Movie{Title: "Inception", Director: "Christopher Nolan", Year: 2010, Genre: "Sci-Fi"}
	require.NoError(t, s.CreateMovie(ctx, second))

	late := &model.Showtime{MovieID: first.ID, Date: "2030-05-04", Time: "09:00", PriceCents: 900, TotalSeats: 5}
	early := &model.Showtime{MovieID: first.ID, Date: "2030-05-03", Time: "21:00", PriceCents: 900, TotalSeats: 5}
	other := &model.Showtime{MovieID: second.ID, Date: "2030-05-03", Time: "10:00", PriceCents: 1200, TotalSeats: 5}
	past := &model.Showtime{MovieID: second.ID, Date: "2030-04-01", Time: "10:00", PriceCents: 1200, TotalSeats: 5}
	for _, st := range []*model.Showtime{late, early, other, past} {
		require.NoError(t, s.CreateShowtime(ctx, st))
	}

	movies, err := s.ListMovies(ctx)
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, second.ID, movies[0].ID, "newest movie first")
	require.Len(t, movies[1].Showtimes, 2)
	assert.Equal(t, early.ID, movies[1].Showtimes[0].ID)

	up, err := s.UpcomingShowtimes(ctx, "2030-05-01", 2)
	require.NoError(t, err)
	require.Len(t, up, 2)
	assert.Equal(t, other.ID, up[0].ID)
	assert.Equal(t, early.ID, up[1].ID)

	_, err = s.GetShowtime(ctx, second.ID, early.ID)
	assert.ErrorIs(t, err, booking.ErrShowtimeNotFound)

	mgr := booking.NewManager(s, s)
	_, err = mgr.CreateBooking(ctx, booking.CreateBookingInput{
		ShowtimeID: early.ID, Seats: []model.SeatPosition{{Row: "A", Number: 1}},
		CustomerName: "Chihiro", CustomerEmail: "chihiro@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteMovie(ctx, first.ID))
	assert.ErrorIs(t, s.DeleteMovie(ctx, first.ID), booking.ErrMovieNotFound)
	_, err = s.ListSeats(ctx, early.ID)
	assert.ErrorIs(t, err, booking.ErrShowtimeNotFound)
	n, err := s.CountBookings(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = s.CountMovies(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_UpdateMovie(t *testing.T) {
	s, m := seedMemory(t)
	ctx := context.Background()
	poster := "https://example.com/p.jpg"

	upd := &model.Movie{ID: m.ID, Title: "Spirited Away (4K)", Director: m.Director, Year: m.Year, Genre: m.Genre, PosterURL: &poster}
	require.NoError(t, s.UpdateMovie(ctx, upd))
	assert.Equal(t, m.CreatedAt, upd.CreatedAt)

	got, err := s.GetMovie(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spirited Away (4K)", got.Title)
	require.NotNil(t, got.PosterURL)
	assert.Equal(t, poster, *got.PosterURL)

	assert.ErrorIs(t, s.UpdateMovie(ctx, &model.Movie{ID: 404}), booking.ErrMovieNotFound)
}
