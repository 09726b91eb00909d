package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-ticketing/internal/model"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 50 * time.Millisecond
)

// CreateBookingInput is the request to reserve seats for one showtime.
// MovieID may be zero, in which case the showtime's own movie is used; a
// non-zero MovieID that does not own the showtime is treated as an
// unknown showtime.
type CreateBookingInput struct {
	MovieID       uint64               `json:"movie_id"`
	ShowtimeID    uint64               `json:"showtime_id"`
	Seats         []model.SeatPosition `json:"seats"`
	CustomerName  string               `json:"customer_name"`
	CustomerEmail string               `json:"customer_email"`
}

// Manager runs the seat reservation transaction and owns seat inventory
// generation.
type Manager struct {
	ledgers     LedgerStore
	inventory   Inventory
	events      EventPublisher
	log         logrus.FieldLogger
	now         func() time.Time
	newID       func() string
	maxAttempts int
	backoff     time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithEvents sets the publisher notified after each committed booking.
func WithEvents(p EventPublisher) Option {
	return func(m *Manager) { m.events = p }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = l }
}

// WithClock overrides the booking timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides the booking id source.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// WithRetry bounds how often a booking is attempted when storage reports
// a lock conflict, and the base delay between attempts.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(m *Manager) {
		if maxAttempts > 0 {
			m.maxAttempts = maxAttempts
		}
		if backoff >= 0 {
			m.backoff = backoff
		}
	}
}

// NewManager builds a Manager over the given storage.
func NewManager(ledgers LedgerStore, inventory Inventory, opts ...Option) *Manager {
	m := &Manager{
		ledgers:     ledgers,
		inventory:   inventory,
		log:         logrus.StandardLogger(),
		now:         time.Now,
		newID:       uuid.NewString,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GenerateInventory persists the seat layout for a showtime of totalSeats seats.
func (m *Manager) GenerateInventory(ctx context.Context, showtimeID uint64, totalSeats int) ([]model.SeatPosition, error) {
	layout, err := GenerateLayout(totalSeats)
	if err != nil {
		return nil, err
	}
	if err := m.inventory.InsertSeats(ctx, showtimeID, layout); err != nil {
		return nil, err
	}
	m.log.WithFields(logrus.Fields{"showtime_id": showtimeID, "seats": len(layout)}).Info("seat inventory generated")
	return layout, nil
}

// CheckSeats returns the current seat map of a showtime.
func (m *Manager) CheckSeats(ctx context.Context, showtimeID uint64) ([]model.Seat, error) {
	return m.inventory.ListSeats(ctx, showtimeID)
}

// CreateBooking reserves the requested seats and records the booking as
// one atomic unit: either the booking, its seat links and the counter
// decrement are all committed, or nothing is.
func (m *Manager) CreateBooking(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	requested, err := in.normalize()
	if err != nil {
		return nil, err
	}
	log := m.log.WithFields(logrus.Fields{"showtime_id": in.ShowtimeID, "seats": labels(requested)})

	var (
		created  *model.Booking
		showtime model.Showtime
	)
	for attempt := 1; ; attempt++ {
		created, showtime, err = m.reserve(ctx, in, requested)
		if err == nil || !errors.Is(err, ErrLockConflict) || attempt >= m.maxAttempts {
			break
		}
		log.WithField("attempt", attempt).WithError(err).Warn("booking lock conflict, retrying")
		if werr := sleepCtx(ctx, time.Duration(attempt)*m.backoff); werr != nil {
			err = werr
			break
		}
	}
	if err != nil {
		switch KindOf(err) {
		case KindNotFound, KindConflict:
			log.WithError(err).Info("booking rejected")
		default:
			log.WithError(err).Error("booking failed")
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"booking_id":        created.ID,
		"total_price_cents": created.TotalPriceCents,
	}).Info("booking created")

	if m.events != nil {
		if perr := m.events.BookingCreated(ctx, created, &showtime); perr != nil {
			log.WithField("booking_id", created.ID).WithError(perr).Warn("publish booking event failed")
		}
	}
	return created, nil
}

func (m *Manager) reserve(ctx context.Context, in CreateBookingInput, requested []model.SeatPosition) (*model.Booking, model.Showtime, error) {
	var (
		created  *model.Booking
		snapshot model.Showtime
	)
	err := m.ledgers.WithShowtimeLock(ctx, in.ShowtimeID, func(ctx context.Context, tx LedgerTx, st *model.Showtime) error {
		if in.MovieID != 0 && st.MovieID != in.MovieID {
			return ShowtimeNotFound(in.ShowtimeID)
		}
		if st.AvailableSeats < len(requested) {
			return InsufficientSeats(st.ID, len(requested), st.AvailableSeats)
		}

		ledger := NewLedger(st.ID, tx)
		seats, err := ledger.AreAllFree(ctx, requested)
		if err != nil {
			return err
		}

		b := &model.Booking{
			ID:              m.newID(),
			MovieID:         st.MovieID,
			ShowtimeID:      st.ID,
			CustomerName:    in.CustomerName,
			CustomerEmail:   in.CustomerEmail,
			TotalPriceCents: st.PriceCents * int64(len(seats)),
			BookingDate:     m.now().UTC().Truncate(time.Microsecond),
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		if err := ledger.MarkBooked(ctx, seats, b.ID); err != nil {
			return err
		}
		remaining, err := tx.DecrementAvailable(ctx, len(seats))
		if err != nil {
			return err
		}
		for i := range seats {
			seats[i].IsBooked = true
		}
		b.Seats = seats

		if err := verify(ctx, ledger, st, b, remaining); err != nil {
			return err
		}
		created = b
		snapshot = *st
		snapshot.AvailableSeats = remaining
		return nil
	})
	return created, snapshot, err
}

// verify re-derives the counter and inventory size from the seat rows
// before commit.
func verify(ctx context.Context, ledger *Ledger, st *model.Showtime, b *model.Booking, remaining int) error {
	if remaining < 0 {
		return integrityViolation(st.ID, "available seats would become %d", remaining)
	}
	if want := st.PriceCents * int64(len(b.Seats)); b.TotalPriceCents != want {
		return integrityViolation(st.ID, "total price %d does not match %d x %d", b.TotalPriceCents, st.PriceCents, len(b.Seats))
	}
	seats, err := ledger.ListSeats(ctx)
	if err != nil {
		return err
	}
	if len(seats) != st.TotalSeats {
		return integrityViolation(st.ID, "inventory holds %d seats, capacity is %d", len(seats), st.TotalSeats)
	}
	booked := 0
	for _, s := range seats {
		if s.IsBooked {
			booked++
		}
	}
	if remaining != st.TotalSeats-booked {
		return integrityViolation(st.ID, "available seats %d but %d of %d seats booked", remaining, booked, st.TotalSeats)
	}
	return nil
}

func (in *CreateBookingInput) normalize() ([]model.SeatPosition, error) {
	if in.ShowtimeID == 0 {
		return nil, invalidInput("showtime id is required")
	}
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	if in.CustomerName == "" {
		return nil, invalidInput("customer name is required")
	}
	if in.CustomerEmail == "" || !strings.Contains(in.CustomerEmail, "@") {
		return nil, invalidInput("a valid customer email is required")
	}
	if len(in.Seats) == 0 {
		return nil, invalidInput("at least one seat is required")
	}

	seen := make(map[model.SeatPosition]struct{}, len(in.Seats))
	out := make([]model.SeatPosition, 0, len(in.Seats))
	for _, p := range in.Seats {
		p = p.Normalize()
		if p.Row == "" || p.Number <= 0 {
			return nil, invalidInput("invalid seat %q", p.Label())
		}
		if _, dup := seen[p]; dup {
			return nil, invalidInput("seat %s requested twice", p.Label())
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func labels(ps []model.SeatPosition) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Label()
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
