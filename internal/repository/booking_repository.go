package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-ticketing/internal/booking"
	"github.com/iliyamo/movie-ticketing/internal/model"
)

// BookingRepo stores bookings and runs the locked seat ledger
// transactions.  All timestamps are UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// WithShowtimeLock opens a REPEATABLE READ transaction, locks the showtime
// row with SELECT ... FOR UPDATE and hands the ledger to fn.  Concurrent
// bookings of the same showtime queue on that row lock until commit or
// rollback.
func (r *BookingRepo) WithShowtimeLock(ctx context.Context, showtimeID uint64, fn booking.LockedFunc) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return classify("begin booking", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = ? FOR UPDATE`
	var st model.Showtime
	if err := scanShowtime(tx.QueryRowContext(ctx, q, showtimeID), &st); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return booking.ShowtimeNotFound(showtimeID)
		}
		return classify("lock showtime", err)
	}

	if err := fn(ctx, &ledgerTx{tx: tx, showtimeID: showtimeID}, &st); err != nil {
		return classify("booking", err)
	}
	if err := tx.Commit(); err != nil {
		return classify("commit booking", err)
	}
	committed = true
	return nil
}

// ledgerTx implements booking.LedgerTx on an open *sql.Tx.
type ledgerTx struct {
	tx         *sql.Tx
	showtimeID uint64
}

// Seats reads without row locks; the showtime lock already serializes
// every writer of this showtime's seats.
func (l *ledgerTx) Seats(ctx context.Context) ([]model.Seat, error) {
	rows, err := l.tx.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE showtime_id = ?`+seatOrder, l.showtimeID)
	if err != nil {
		return nil, classify("read seats", err)
	}
	return scanSeats(rows)
}

func (l *ledgerTx) SeatsAt(ctx context.Context, positions []model.SeatPosition) ([]model.Seat, error) {
	if len(positions) == 0 {
		return []model.Seat{}, nil
	}
	query := `SELECT ` + seatColumns + ` FROM seats WHERE showtime_id = ? AND (row_label, seat_number) IN (`
	args := make([]interface{}, 0, 1+len(positions)*2)
	args = append(args, l.showtimeID)
	for i, p := range positions {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, p.Row, p.Number)
	}
	query += `)` + seatOrder + ` FOR UPDATE`
	rows, err := l.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("lock requested seats", err)
	}
	return scanSeats(rows)
}

func (l *ledgerTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (id, movie_id, showtime_id, customer_name, customer_email, total_price_cents, booking_date)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := l.tx.ExecContext(ctx, q, b.ID, b.MovieID, b.ShowtimeID, b.CustomerName, b.CustomerEmail, b.TotalPriceCents, b.BookingDate)
	return classify("insert booking", err)
}

// MarkBooked flips free seats to booked with a conditional UPDATE and, when
// every seat changed, links them to the booking.  A seat already linked to
// another booking hits the UNIQUE(seat_id) key and is reported as booked.
func (l *ledgerTx) MarkBooked(ctx context.Context, bookingID string, seatIDs []uint64) (int, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	args := make([]interface{}, 0, 1+len(seatIDs))
	args = append(args, l.showtimeID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	q := `UPDATE seats SET is_booked = 1
	      WHERE showtime_id = ? AND is_booked = 0 AND id IN (` + placeholders(len(seatIDs)) + `)`
	res, err := l.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, classify("mark seats booked", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify("mark seats booked", err)
	}
	if int(n) != len(seatIDs) {
		return int(n), nil
	}

	link := `INSERT INTO booking_seats (booking_id, seat_id) VALUES `
	largs := make([]interface{}, 0, len(seatIDs)*2)
	for i, id := range seatIDs {
		if i > 0 {
			link += ","
		}
		link += "(?, ?)"
		largs = append(largs, bookingID, id)
	}
	if _, err := l.tx.ExecContext(ctx, link, largs...); err != nil {
		err = classify("link booking seats", err)
		if errors.Is(err, ErrConflict) {
			return 0, booking.SeatAlreadyBooked(l.showtimeID, "")
		}
		return 0, err
	}
	return int(n), nil
}

func (l *ledgerTx) DecrementAvailable(ctx context.Context, n int) (int, error) {
	const q = `UPDATE showtimes SET available_seats = available_seats - ?
	           WHERE id = ? AND available_seats >= ?`
	res, err := l.tx.ExecContext(ctx, q, n, l.showtimeID, n)
	if err != nil {
		return 0, classify("decrement available seats", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return 0, classify("decrement available seats", err)
	}

	var available int
	if err := l.tx.QueryRowContext(ctx, `SELECT available_seats FROM showtimes WHERE id = ?`, l.showtimeID).Scan(&available); err != nil {
		return 0, classify("read available seats", err)
	}
	if changed == 0 {
		return available, booking.InsufficientSeats(l.showtimeID, n, available)
	}
	return available, nil
}

const bookingSummaryQuery = `SELECT b.id, b.movie_id, b.showtime_id, b.customer_name, b.customer_email,
	       b.total_price_cents, b.booking_date,
	       m.title, DATE_FORMAT(st.show_date, '%Y-%m-%d'), TIME_FORMAT(st.show_time, '%H:%i')
	FROM bookings b
	JOIN movies m ON m.id = b.movie_id
	JOIN showtimes st ON st.id = b.showtime_id`

// List returns bookings newest first, optionally only those of movieID.
func (r *BookingRepo) List(ctx context.Context, movieID *uint64) ([]model.BookingSummary, error) {
	q := bookingSummaryQuery
	var args []interface{}
	if movieID != nil {
		q += ` WHERE b.movie_id = ?`
		args = append(args, *movieID)
	}
	q += ` ORDER BY b.booking_date DESC, b.id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify("list bookings", err)
	}
	defer rows.Close()

	out := []model.BookingSummary{}
	for rows.Next() {
		var s model.BookingSummary
		if err := rows.Scan(&s.ID, &s.MovieID, &s.ShowtimeID, &s.CustomerName, &s.CustomerEmail,
			&s.TotalPriceCents, &s.BookingDate,
			&s.Movie.Title, &s.Showtime.Date, &s.Showtime.Time); err != nil {
			return nil, classify("scan booking", err)
		}
		s.Movie.ID = s.MovieID
		s.Showtime.ID = s.ShowtimeID
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list bookings", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	seats, err := r.seatsOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Seats = seats[out[i].ID]
		if out[i].Seats == nil {
			out[i].Seats = []model.Seat{}
		}
	}
	return out, nil
}

// GetDetail loads one booking with its full movie and showtime.
func (r *BookingRepo) GetDetail(ctx context.Context, bookingID string) (*model.BookingDetail, error) {
	const q = `SELECT b.id, b.movie_id, b.showtime_id, b.customer_name, b.customer_email,
	                  b.total_price_cents, b.booking_date,
	                  m.id, m.title, m.director, m.year, m.genre, m.poster_url, m.created_at, m.updated_at,
	                  st.id, st.movie_id, DATE_FORMAT(st.show_date, '%Y-%m-%d'), TIME_FORMAT(st.show_time, '%H:%i'),
	                  st.price_cents, st.total_seats, st.available_seats, st.created_at, st.updated_at
	           FROM bookings b
	           JOIN movies m ON m.id = b.movie_id
	           JOIN showtimes st ON st.id = b.showtime_id
	           WHERE b.id = ?`
	var (
		d      model.BookingDetail
		poster sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, bookingID).Scan(
		&d.ID, &d.MovieID, &d.ShowtimeID, &d.CustomerName, &d.CustomerEmail,
		&d.TotalPriceCents, &d.BookingDate,
		&d.Movie.ID, &d.Movie.Title, &d.Movie.Director, &d.Movie.Year, &d.Movie.Genre, &poster,
		&d.Movie.CreatedAt, &d.Movie.UpdatedAt,
		&d.Showtime.ID, &d.Showtime.MovieID, &d.Showtime.Date, &d.Showtime.Time,
		&d.Showtime.PriceCents, &d.Showtime.TotalSeats, &d.Showtime.AvailableSeats,
		&d.Showtime.CreatedAt, &d.Showtime.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.BookingNotFound(bookingID)
		}
		return nil, classify("get booking", err)
	}
	if poster.Valid {
		p := poster.String
		d.Movie.PosterURL = &p
	}
	seats, err := r.seatsOf(ctx, []string{bookingID})
	if err != nil {
		return nil, err
	}
	d.Seats = seats[bookingID]
	if d.Seats == nil {
		d.Seats = []model.Seat{}
	}
	return &d, nil
}

// seatsOf returns the seats linked to each booking, ordered by row then number.
func (r *BookingRepo) seatsOf(ctx context.Context, bookingIDs []string) (map[string][]model.Seat, error) {
	args := make([]interface{}, len(bookingIDs))
	for i, id := range bookingIDs {
		args[i] = id
	}
	q := `SELECT bs.booking_id, se.id, se.showtime_id, se.row_label, se.seat_number, se.is_booked
	      FROM booking_seats bs
	      JOIN seats se ON se.id = bs.seat_id
	      WHERE bs.booking_id IN (` + placeholders(len(bookingIDs)) + `)
	      ORDER BY se.row_label, se.seat_number`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify("list booking seats", err)
	}
	defer rows.Close()

	out := make(map[string][]model.Seat, len(bookingIDs))
	for rows.Next() {
		var (
			bid string
			s   model.Seat
		)
		if err := rows.Scan(&bid, &s.ID, &s.ShowtimeID, &s.Row, &s.Number, &s.IsBooked); err != nil {
			return nil, classify("scan booking seat", err)
		}
		out[bid] = append(out[bid], s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list booking seats", err)
	}
	return out, nil
}

// Count returns the number of bookings.
func (r *BookingRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&n); err != nil {
		return 0, classify("count bookings", err)
	}
	return n, nil
}

// TotalRevenue sums total_price_cents over all bookings.
func (r *BookingRepo) TotalRevenue(ctx context.Context) (int64, error) {
	var sum int64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(total_price_cents), 0) FROM bookings`).Scan(&sum); err != nil {
		return 0, classify("sum revenue", err)
	}
	return sum, nil
}
