package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/movie-ticketing/internal/booking"
	"github.com/iliyamo/movie-ticketing/internal/model"
)

// showtimeColumns renders DATE and TIME in the wire layouts of model.Showtime.
const showtimeColumns = `id, movie_id, DATE_FORMAT(show_date, '%Y-%m-%d'), TIME_FORMAT(show_time, '%H:%i'),
	price_cents, total_seats, available_seats, created_at, updated_at`

func scanShowtime(sc interface{ Scan(...any) error }, st *model.Showtime) error {
	return sc.Scan(&st.ID, &st.MovieID, &st.Date, &st.Time,
		&st.PriceCents, &st.TotalSeats, &st.AvailableSeats, &st.CreatedAt, &st.UpdatedAt)
}

// ShowtimeRepo manages persistence for showtimes.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

// CreateWithSeats inserts a showtime and its generated seat layout in one
// transaction.  AvailableSeats starts equal to TotalSeats.  A movie that
// does not exist yields MovieNotFound.
func (r *ShowtimeRepo) CreateWithSeats(ctx context.Context, st *model.Showtime) (err error) {
	layout, err := booking.GenerateLayout(st.TotalSeats)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin create showtime", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO showtimes (movie_id, show_date, show_time, price_cents, total_seats, available_seats)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, st.MovieID, st.Date, st.Time, st.PriceCents, st.TotalSeats, st.TotalSeats)
	if err != nil {
		if isForeignKeyMiss(err) {
			return booking.MovieNotFound(st.MovieID)
		}
		return classify("insert showtime", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return classify("insert showtime", err)
	}
	if err := insertSeatsTx(ctx, tx, uint64(id), layout); err != nil {
		return err
	}

	const sel = `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = ?`
	if err := scanShowtime(tx.QueryRowContext(ctx, sel, id), st); err != nil {
		return classify("reload showtime", err)
	}
	if err := tx.Commit(); err != nil {
		return classify("commit create showtime", err)
	}
	committed = true
	return nil
}

// GetForMovie returns a showtime only if it belongs to movieID.
func (r *ShowtimeRepo) GetForMovie(ctx context.Context, movieID, showtimeID uint64) (*model.Showtime, error) {
	const q = `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = ? AND movie_id = ?`
	var st model.Showtime
	if err := scanShowtime(r.db.QueryRowContext(ctx, q, showtimeID, movieID), &st); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ShowtimeNotFound(showtimeID)
		}
		return nil, classify("get showtime", err)
	}
	return &st, nil
}

// ListByMovies returns the showtimes of the given movies keyed by movie id,
// each list ordered by date then time.
func (r *ShowtimeRepo) ListByMovies(ctx context.Context, movieIDs []uint64) (map[uint64][]model.Showtime, error) {
	out := make(map[uint64][]model.Showtime, len(movieIDs))
	if len(movieIDs) == 0 {
		return out, nil
	}
	args := make([]interface{}, len(movieIDs))
	for i, id := range movieIDs {
		args[i] = id
	}
	q := `SELECT ` + showtimeColumns + ` FROM showtimes
	      WHERE movie_id IN (` + placeholders(len(movieIDs)) + `)
	      ORDER BY show_date, show_time, id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify("list showtimes", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st model.Showtime
		if err := scanShowtime(rows, &st); err != nil {
			return nil, classify("scan showtime", err)
		}
		out[st.MovieID] = append(out[st.MovieID], st)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list showtimes", err)
	}
	return out, nil
}

// Upcoming returns up to limit showtimes dated fromDate or later.
func (r *ShowtimeRepo) Upcoming(ctx context.Context, fromDate string, limit int) ([]model.Showtime, error) {
	const q = `SELECT ` + showtimeColumns + ` FROM showtimes
	           WHERE show_date >= ?
	           ORDER BY show_date, show_time, id
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, fromDate, limit)
	if err != nil {
		return nil, classify("upcoming showtimes", err)
	}
	defer rows.Close()
	out := []model.Showtime{}
	for rows.Next() {
		var st model.Showtime
		if err := scanShowtime(rows, &st); err != nil {
			return nil, classify("scan showtime", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("upcoming showtimes", err)
	}
	return out, nil
}

// placeholders renders n comma separated "?".
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
