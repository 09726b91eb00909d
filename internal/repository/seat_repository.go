package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/movie-ticketing/internal/booking"
	"github.com/iliyamo/movie-ticketing/internal/model"
)

// SeatRepo persists showtime seat inventories.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// InsertSeats creates the seats of a showtime.  Positions that already
// exist are left untouched, so calling it twice with the same layout is a
// no-op.  The layout must match the showtime capacity, and the resulting
// inventory must hold exactly that many seats or nothing is written.
func (r *SeatRepo) InsertSeats(ctx context.Context, showtimeID uint64, positions []model.SeatPosition) error {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT total_seats FROM showtimes WHERE id = ?`, showtimeID).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return booking.ShowtimeNotFound(showtimeID)
		}
		return classify("load showtime capacity", err)
	}
	if len(positions) != total {
		return booking.InvalidInput("layout of %d seats does not match showtime %d capacity of %d", len(positions), showtimeID, total)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin insert seats", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := insertSeatsTx(ctx, tx, showtimeID, positions); err != nil {
		return err
	}
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM seats WHERE showtime_id = ?`, showtimeID).Scan(&count); err != nil {
		return classify("count seats", err)
	}
	if count != total {
		return booking.InvalidInput("layout would give showtime %d %d seats, capacity is %d", showtimeID, count, total)
	}
	if err := tx.Commit(); err != nil {
		return classify("commit insert seats", err)
	}
	committed = true
	return nil
}

// insertSeatsTx bulk inserts free seats inside tx.  The no-op
// ON DUPLICATE KEY clause skips existing positions while still surfacing
// foreign key failures.
func insertSeatsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, positions []model.SeatPosition) error {
	if len(positions) == 0 {
		return nil
	}
	query := `INSERT INTO seats (showtime_id, row_label, seat_number) VALUES `
	args := make([]interface{}, 0, len(positions)*3)
	for i, p := range positions {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, showtimeID, p.Row, p.Number)
	}
	query += ` ON DUPLICATE KEY UPDATE id = id`
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isForeignKeyMiss(err) {
			return booking.ShowtimeNotFound(showtimeID)
		}
		return classify("insert seats", err)
	}
	return nil
}

const seatColumns = `id, showtime_id, row_label, seat_number, is_booked`

// seatOrder sorts by row then numerically by seat.
const seatOrder = ` ORDER BY row_label, seat_number`

func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
	defer rows.Close()
	out := []model.Seat{}
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.ShowtimeID, &s.Row, &s.Number, &s.IsBooked); err != nil {
			return nil, classify("scan seat", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("scan seats", err)
	}
	return out, nil
}

// ListSeats returns the seat map of a showtime ordered by row then number.
func (r *SeatRepo) ListSeats(ctx context.Context, showtimeID uint64) ([]model.Seat, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM showtimes WHERE id = ?`, showtimeID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ShowtimeNotFound(showtimeID)
		}
		return nil, classify("check showtime", err)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE showtime_id = ?`+seatOrder, showtimeID)
	if err != nil {
		return nil, classify(fmt.Sprintf("list seats of showtime %d", showtimeID), err)
	}
	return scanSeats(rows)
}
