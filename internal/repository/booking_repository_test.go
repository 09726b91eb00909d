package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-ticketing/internal/booking"
	"github.com/iliyamo/movie-ticketing/internal/model"
)

var ts = time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func showtimeRows(id, movieID uint64, price int64, total, available int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "movie_id", "show_date", "show_time", "price_cents",
		"total_seats", "available_seats", "created_at", "updated_at"}).
		AddRow(id, movieID, "2030-05-02", "20:30", price, total, available, ts, ts)
}

func seatRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "showtime_id", "row_label", "seat_number", "is_booked"})
}

var lockShowtime = regexp.QuoteMeta(`FROM showtimes WHERE id = ? FOR UPDATE`)

var readSeats = regexp.QuoteMeta(`FROM seats WHERE showtime_id = ? ORDER BY row_label, seat_number`) + `$`

// seatMap returns the full generated inventory of a showtime with the
// first booked seats marked taken.
func seatMap(t *testing.T, showtimeID uint64, total, booked int) *sqlmock.Rows {
	t.Helper()
	layout, err := booking.GenerateLayout(total)
	require.NoError(t, err)
	rows := seatRows()
	for i, p := range layout {
		rows.AddRow(i+1, showtimeID, p.Row, p.Number, i < booked)
	}
	return rows
}

func TestWithShowtimeLock_Commits(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockShowtime).WithArgs(7).WillReturnRows(showtimeRows(7, 2, 900, 12, 12))
	mock.ExpectCommit()

	var got model.Showtime
	err := NewBookingRepo(db).WithShowtimeLock(context.Background(), 7, func(ctx context.Context, tx booking.LedgerTx, st *model.Showtime) error {
		got = *st
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "2030-05-02", got.Date)
	assert.Equal(t, 12, got.AvailableSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithShowtimeLock_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockShowtime).WithArgs(7).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	called := false
	err := NewBookingRepo(db).WithShowtimeLock(context.Background(), 7, func(context.Context, booking.LedgerTx, *model.Showtime) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, booking.ErrShowtimeNotFound)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithShowtimeLock_DeadlockIsRetryable(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockShowtime).WithArgs(7).WillReturnError(&mysql.MySQLError{Number: mysqlErrDeadlock})
	mock.ExpectRollback()

	err := NewBookingRepo(db).WithShowtimeLock(context.Background(), 7, func(context.Context, booking.LedgerTx, *model.Showtime) error {
		return nil
	})
	assert.ErrorIs(t, err, booking.ErrLockConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithShowtimeLock_RollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockShowtime).WithArgs(7).WillReturnRows(showtimeRows(7, 2, 900, 12, 12))
	mock.ExpectRollback()

	err := NewBookingRepo(db).WithShowtimeLock(context.Background(), 7, func(context.Context, booking.LedgerTx, *model.Showtime) error {
		return booking.SeatNotFound(7, "Z9")
	})
	assert.ErrorIs(t, err, booking.ErrSeatNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// inLock runs fn inside a mocked unit of work on showtime 7.  expect
// registers the statements fn issues; the unit of work always rolls back.
func inLock(t *testing.T, expect func(sqlmock.Sqlmock), fn func(tx booking.LedgerTx)) {
	t.Helper()
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockShowtime).WithArgs(7).WillReturnRows(showtimeRows(7, 2, 900, 12, 12))
	expect(mock)
	mock.ExpectRollback()
	err := NewBookingRepo(db).WithShowtimeLock(context.Background(), 7, func(ctx context.Context, tx booking.LedgerTx, st *model.Showtime) error {
		fn(tx)
		return errors.New("stop")
	})
	require.EqualError(t, err, "booking: stop")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerTx_MarkBookedLinksSeats(t *testing.T) {
	expect := func(m sqlmock.Sqlmock) {
		m.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET is_booked = 1`)).
			WithArgs(7, 1, 2).WillReturnResult(sqlmock.NewResult(0, 2))
		m.ExpectExec(regexp.QuoteMeta(`INSERT INTO booking_seats (booking_id, seat_id) VALUES (?, ?),(?, ?)`)).
			WithArgs("b-1", 1, "b-1", 2).WillReturnResult(sqlmock.NewResult(0, 2))
	}
	inLock(t, expect, func(tx booking.LedgerTx) {
		n, err := tx.MarkBooked(context.Background(), "b-1", []uint64{1, 2})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestLedgerTx_MarkBookedPartialSkipsLinks(t *testing.T) {
	expect := func(m sqlmock.Sqlmock) {
		m.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET is_booked = 1`)).
			WithArgs(7, 1, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	inLock(t, expect, func(tx booking.LedgerTx) {
		n, err := tx.MarkBooked(context.Background(), "b-1", []uint64{1, 2})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestLedgerTx_DuplicateLinkIsAlreadyBooked(t *testing.T) {
	expect := func(m sqlmock.Sqlmock) {
		m.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET is_booked = 1`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectExec(regexp.QuoteMeta(`INSERT INTO booking_seats`)).
			WillReturnError(&mysql.MySQLError{Number: mysqlErrDupEntry})
	}
	inLock(t, expect, func(tx booking.LedgerTx) {
		_, err := tx.MarkBooked(context.Background(), "b-1", []uint64{1})
		assert.ErrorIs(t, err, booking.ErrSeatAlreadyBooked)
	})
}

func TestLedgerTx_DecrementAvailable(t *testing.T) {
	expect := func(m sqlmock.Sqlmock) {
		m.ExpectExec(regexp.QuoteMeta(`UPDATE showtimes SET available_seats = available_seats - ?`)).
			WithArgs(2, 7, 2).WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectQuery(regexp.QuoteMeta(`SELECT available_seats FROM showtimes WHERE id = ?`)).
			WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"available_seats"}).AddRow(10))
		m.ExpectExec(regexp.QuoteMeta(`UPDATE showtimes SET available_seats = available_seats - ?`)).
			WithArgs(11, 7, 11).WillReturnResult(sqlmock.NewResult(0, 0))
		m.ExpectQuery(regexp.QuoteMeta(`SELECT available_seats FROM showtimes WHERE id = ?`)).
			WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"available_seats"}).AddRow(10))
	}
	inLock(t, expect, func(tx booking.LedgerTx) {
		left, err := tx.DecrementAvailable(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, 10, left)

		left, err = tx.DecrementAvailable(context.Background(), 11)
		assert.ErrorIs(t, err, booking.ErrInsufficientSeats)
		assert.Equal(t, 10, left)
	})
}

func TestLedgerTx_SeatsReadsWholeMapWithoutRowLocks(t *testing.T) {
	expect := func(m sqlmock.Sqlmock) {
		m.ExpectQuery(readSeats).WithArgs(7).WillReturnRows(seatMap(t, 7, 7, 1))
	}
	inLock(t, expect, func(tx booking.LedgerTx) {
		seats, err := tx.Seats(context.Background())
		require.NoError(t, err)
		require.Len(t, seats, 7)
		assert.True(t, seats[0].IsBooked)
		assert.Equal(t, model.SeatPosition{Row: "D", Number: 1}, seats[6].Position())
	})
}

func TestSQLStore_CreateBookingOverfilledInventoryRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockShowtime).WithArgs(7).WillReturnRows(showtimeRows(7, 2, 900, 12, 12))
	mock.ExpectQuery(regexp.QuoteMeta(`(row_label, seat_number) IN ((?, ?))`)).
		WithArgs(7, "A", 1).
		WillReturnRows(seatRows().AddRow(1, 7, "A", 1, false))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO bookings`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET is_booked = 1`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO booking_seats`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE showtimes SET available_seats`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT available_seats FROM showtimes`)).
		WillReturnRows(sqlmock.NewRows([]string{"available_seats"}).AddRow(11))
	mock.ExpectQuery(readSeats).WithArgs(7).WillReturnRows(seatMap(t, 7, 12, 1).AddRow(13, 7, "E", 1, false))
	mock.ExpectRollback()

	log, _ := logtest.NewNullLogger()
	store := NewSQLStore(db)
	_, err := booking.NewManager(store, store, booking.WithLogger(log)).CreateBooking(context.Background(), booking.CreateBookingInput{
		ShowtimeID:    7,
		Seats:         []model.SeatPosition{{Row: "A", Number: 1}},
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
	})
	assert.ErrorIs(t, err, booking.ErrIntegrity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CreateBookingEndToEnd(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockShowtime).WithArgs(7).WillReturnRows(showtimeRows(7, 2, 900, 12, 12))
	mock.ExpectQuery(regexp.QuoteMeta(`AND (row_label, seat_number) IN ((?, ?),(?, ?)) ORDER BY row_label, seat_number FOR UPDATE`)).
		WithArgs(7, "A", 1, "A", 2).
		WillReturnRows(seatRows().AddRow(1, 7, "A", 1, false).AddRow(2, 7, "A", 2, false))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO bookings`)).
		WithArgs("b-1", 2, 7, "Ada", "ada@example.com", 1800, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET is_booked = 1`)).
		WithArgs(7, 1, 2).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO booking_seats`)).
		WithArgs("b-1", 1, "b-1", 2).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE showtimes SET available_seats`)).
		WithArgs(2, 7, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT available_seats FROM showtimes`)).
		WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"available_seats"}).AddRow(10))
	mock.ExpectQuery(readSeats).WithArgs(7).WillReturnRows(seatMap(t, 7, 12, 2))
	mock.ExpectCommit()

	log, _ := logtest.NewNullLogger()
	store := NewSQLStore(db)
	mgr := booking.NewManager(store, store, booking.WithLogger(log), booking.WithIDGenerator(func() string { return "b-1" }))
	b, err := mgr.CreateBooking(context.Background(), booking.CreateBookingInput{
		ShowtimeID:    7,
		Seats:         []model.SeatPosition{{Row: "A", Number: 1}, {Row: "A", Number: 2}},
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1800), b.TotalPriceCents)
	assert.Equal(t, uint64(2), b.MovieID)
	assert.Len(t, b.Seats, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CreateBookingSeatTakenRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockShowtime).WithArgs(7).WillReturnRows(showtimeRows(7, 2, 900, 12, 11))
	mock.ExpectQuery(regexp.QuoteMeta(`(row_label, seat_number) IN ((?, ?))`)).
		WithArgs(7, "A", 1).
		WillReturnRows(seatRows().AddRow(1, 7, "A", 1, true))
	mock.ExpectRollback()

	log, _ := logtest.NewNullLogger()
	store := NewSQLStore(db)
	_, err := booking.NewManager(store, store, booking.WithLogger(log)).CreateBooking(context.Background(), booking.CreateBookingInput{
		ShowtimeID:    7,
		Seats:         []model.SeatPosition{{Row: "A", Number: 1}},
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
	})
	assert.ErrorIs(t, err, booking.ErrSeatAlreadyBooked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_ListByMovie(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE b.movie_id = ? ORDER BY b.booking_date DESC, b.id`)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "movie_id", "showtime_id", "customer_name", "customer_email",
			"total_price_cents", "booking_date", "title", "show_date", "show_time"}).
			AddRow("b-1", 2, 7, "Ada", "ada@example.com", 1800, ts, "Parasite", "2030-05-02", "20:30"))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE bs.booking_id IN (?)`)).
		WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "id", "showtime_id", "row_label", "seat_number", "is_booked"}).
			AddRow("b-1", 1, 7, "A", 1, true).AddRow("b-1", 2, 7, "A", 2, true))

	movieID := uint64(2)
	list, err := NewBookingRepo(db).List(context.Background(), &movieID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Parasite", list[0].Movie.Title)
	assert.Equal(t, uint64(7), list[0].Showtime.ID)
	assert.Len(t, list[0].Seats, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_GetDetailNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE b.id = ?`)).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := NewBookingRepo(db).GetDetail(context.Background(), "nope")
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
