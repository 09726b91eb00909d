package booking

import (
	"context"

	"github.com/iliyamo/movie-ticketing/internal/model"
)

// Ledger is the authoritative free/booked state of one showtime's seats,
// valid only inside the unit of work it was created in.
type Ledger struct {
	showtimeID uint64
	tx         LedgerTx
}

// NewLedger binds a ledger to an open unit of work.
func NewLedger(showtimeID uint64, tx LedgerTx) *Ledger {
	return &Ledger{showtimeID: showtimeID, tx: tx}
}

// ListSeats returns all seats ordered by row then number.
func (l *Ledger) ListSeats(ctx context.Context) ([]model.Seat, error) {
	return l.tx.Seats(ctx)
}

// AreAllFree checks that every requested position exists and is free and
// returns the matching seats in request order.  A missing seat is reported
// before a booked one so the caller always learns about typos first.
func (l *Ledger) AreAllFree(ctx context.Context, requested []model.SeatPosition) ([]model.Seat, error) {
	found, err := l.tx.SeatsAt(ctx, requested)
	if err != nil {
		return nil, err
	}
	byPos := make(map[model.SeatPosition]model.Seat, len(found))
	for _, s := range found {
		byPos[s.Position()] = s
	}

	seats := make([]model.Seat, 0, len(requested))
	for _, p := range requested {
		s, ok := byPos[p]
		if !ok {
			return nil, SeatNotFound(l.showtimeID, p.Label())
		}
		seats = append(seats, s)
	}
	for _, s := range seats {
		if s.IsBooked {
			return nil, SeatAlreadyBooked(l.showtimeID, s.Position().Label())
		}
	}
	return seats, nil
}

// MarkBooked transitions the seats to booked and links them to bookingID.
// It must follow a successful AreAllFree in the same unit of work.
func (l *Ledger) MarkBooked(ctx context.Context, seats []model.Seat, bookingID string) error {
	ids := make([]uint64, len(seats))
	for i, s := range seats {
		ids[i] = s.ID
	}
	changed, err := l.tx.MarkBooked(ctx, bookingID, ids)
	if err != nil {
		return err
	}
	if changed != len(ids) {
		return SeatAlreadyBooked(l.showtimeID, "")
	}
	return nil
}
