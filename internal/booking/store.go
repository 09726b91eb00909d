package booking

import (
	"context"

	"github.com/iliyamo/movie-ticketing/internal/model"
)

// LedgerTx is the storage side of one showtime's seat ledger inside an
// exclusive unit of work.  Every method is scoped to the showtime the
// unit of work was opened for.  Writes become visible to other callers
// only when the unit of work commits.
type LedgerTx interface {
	// Seats returns every seat of the showtime ordered by row then number,
	// including writes made earlier in this unit of work.
	Seats(ctx context.Context) ([]model.Seat, error)
	// SeatsAt returns the seats that exist at the given positions.
	// Positions without a seat are silently omitted.
	SeatsAt(ctx context.Context, positions []model.SeatPosition) ([]model.Seat, error)
	// InsertBooking persists the booking row (without seat links).
	InsertBooking(ctx context.Context, b *model.Booking) error
	// MarkBooked flips each listed seat from free to booked, links it to
	// bookingID and reports how many seats actually changed state.
	MarkBooked(ctx context.Context, bookingID string, seatIDs []uint64) (int, error)
	// DecrementAvailable lowers the showtime counter by n and returns the
	// new value.  It fails with InsufficientSeats if the counter would go
	// negative.
	DecrementAvailable(ctx context.Context, n int) (int, error)
}

// LedgerStore opens exclusive units of work on one showtime.
//
// WithShowtimeLock loads the showtime under an exclusive lock, runs fn and
// commits when fn returns nil.  Any error from fn rolls every write back.
// The lock is released on every exit path.  Concurrent calls for the same
// showtime are serialized; calls for different showtimes are not.  If the
// showtime does not exist it returns a ShowtimeNotFound error without
// calling fn.  Transient lock failures are reported wrapping ErrLockConflict.
type LedgerStore interface {
	WithShowtimeLock(ctx context.Context, showtimeID uint64, fn LockedFunc) error
}

// LockedFunc is the body of a unit of work.  st is the locked showtime as
// loaded at the start of the unit of work.
type LockedFunc func(ctx context.Context, tx LedgerTx, st *model.Showtime) error

// Inventory persists and reads seat inventories.
type Inventory interface {
	// InsertSeats creates the given seats for a showtime, skipping
	// positions that already exist.
	InsertSeats(ctx context.Context, showtimeID uint64, positions []model.SeatPosition) error
	// ListSeats returns the seats of a showtime ordered by row then
	// number, or ShowtimeNotFound.
	ListSeats(ctx context.Context, showtimeID uint64) ([]model.Seat, error)
}

// Reader is the read side used by the query service.
type Reader interface {
	ListBookings(ctx context.Context, movieID *uint64) ([]model.BookingSummary, error)
	GetBookingDetail(ctx context.Context, bookingID string) (*model.BookingDetail, error)
	CountMovies(ctx context.Context) (int, error)
	CountBookings(ctx context.Context) (int, error)
	TotalRevenue(ctx context.Context) (int64, error)
	// UpcomingShowtimes returns up to limit showtimes dated fromDate or
	// later, ordered by date then time.
	UpcomingShowtimes(ctx context.Context, fromDate string, limit int) ([]model.Showtime, error)
}

// EventPublisher is notified after a booking has been committed.
type EventPublisher interface {
	BookingCreated(ctx context.Context, b *model.Booking, st *model.Showtime) error
}
