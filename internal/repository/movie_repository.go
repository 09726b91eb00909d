package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-ticketing/internal/booking"
	"github.com/iliyamo/movie-ticketing/internal/model"
)

// MovieRepo encapsulates the queries on the movies table.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the provided DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

const movieColumns = `id, title, director, year, genre, poster_url, created_at, updated_at`

func scanMovie(sc interface{ Scan(...any) error }, m *model.Movie) error {
	var poster sql.NullString
	if err := sc.Scan(&m.ID, &m.Title, &m.Director, &m.Year, &m.Genre, &poster, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return err
	}
	m.PosterURL = nil
	if poster.Valid {
		p := poster.String
		m.PosterURL = &p
	}
	return nil
}

// Create inserts a movie and populates its ID and timestamps.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	const qInsert = `INSERT INTO movies (title, director, year, genre, poster_url) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, m.Title, m.Director, m.Year, m.Genre, m.PosterURL)
	if err != nil {
		return classify("insert movie", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return classify("insert movie", err)
	}

	// Read back defaults (created_at, updated_at).
	const qSelect = `SELECT ` + movieColumns + ` FROM movies WHERE id = ?`
	if err := scanMovie(r.db.QueryRowContext(ctx, qSelect, id), m); err != nil {
		return classify("reload movie", err)
	}
	return nil
}

// GetByID fetches a movie without its showtimes.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE id = ?`
	var m model.Movie
	if err := scanMovie(r.db.QueryRowContext(ctx, q, id), &m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.MovieNotFound(id)
		}
		return nil, classify("get movie", err)
	}
	return &m, nil
}

// List returns every movie, newest first.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, classify("list movies", err)
	}
	defer rows.Close()

	out := []model.Movie{}
	for rows.Next() {
		var m model.Movie
		if err := scanMovie(rows, &m); err != nil {
			return nil, classify("scan movie", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list movies", err)
	}
	return out, nil
}

// Update overwrites the editable fields of a movie.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	const q = `UPDATE movies
	           SET title = ?, director = ?, year = ?, genre = ?, poster_url = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, m.Title, m.Director, m.Year, m.Genre, m.PosterURL, m.ID); err != nil {
		return classify("update movie", err)
	}
	// MySQL reports 0 affected rows for unchanged values, so existence is
	// decided by the reload.
	fresh, err := r.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	*m = *fresh
	return nil
}

// Delete removes a movie together with its showtimes, seats and bookings.
// The cleanup runs in one transaction.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin delete movie", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = classify("commit delete movie", cerr)
		}
	}()

	var one int
	if err = tx.QueryRowContext(ctx, `SELECT 1 FROM movies WHERE id = ? FOR UPDATE`, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return booking.MovieNotFound(id)
		}
		return classify("lock movie", err)
	}
	steps := []struct {
		op string
		q  string
	}{
		{"delete booking seats", `DELETE bs FROM booking_seats bs JOIN bookings b ON b.id = bs.booking_id WHERE b.movie_id = ?`},
		{"delete bookings", `DELETE FROM bookings WHERE movie_id = ?`},
		{"delete seats", `DELETE se FROM seats se JOIN showtimes st ON st.id = se.showtime_id WHERE st.movie_id = ?`},
		{"delete showtimes", `DELETE FROM showtimes WHERE movie_id = ?`},
		{"delete movie", `DELETE FROM movies WHERE id = ?`},
	}
	for _, s := range steps {
		if _, err = tx.ExecContext(ctx, s.q, id); err != nil {
			return classify(s.op, err)
		}
	}
	return nil
}

// Count returns the number of movies.
func (r *MovieRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n); err != nil {
		return 0, classify("count movies", err)
	}
	return n, nil
}
