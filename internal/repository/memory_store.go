package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/movie-ticketing/internal/booking"
	"github.com/iliyamo/movie-ticketing/internal/model"
)

// MemoryStore keeps the whole catalog in process memory.  It offers the
// same semantics as SQLStore: units of work on a showtime are serialized by
// a per-showtime mutex, writes are staged and applied only on commit, and
// every read returns copies.
type MemoryStore struct {
	mu        sync.RWMutex
	movies    map[uint64]model.Movie
	showtimes map[uint64]model.Showtime
	seats     map[uint64][]model.Seat // by showtime, ordered by row then number
	bookings  map[string]memBooking
	lastID    struct{ movie, showtime, seat uint64 }

	locksMu sync.Mutex
	locks   map[uint64]*sync.Mutex

	now func() time.Time
}

type memBooking struct {
	booking model.Booking // without seats
	seatIDs []uint64
}

// NewMemoryStore returns an empty store.  A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		movies:    make(map[uint64]model.Movie),
		showtimes: make(map[uint64]model.Showtime),
		seats:     make(map[uint64][]model.Seat),
		bookings:  make(map[string]memBooking),
		locks:     make(map[uint64]*sync.Mutex),
		now:       now,
	}
}

func (s *MemoryStore) showtimeLock(id uint64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// WithShowtimeLock runs fn while holding the showtime's mutex.  Writes made
// through the ledger are applied only if fn returns nil.
func (s *MemoryStore) WithShowtimeLock(ctx context.Context, showtimeID uint64, fn booking.LockedFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := s.showtimeLock(showtimeID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	st, ok := s.showtimes[showtimeID]
	s.mu.RUnlock()
	if !ok {
		return booking.ShowtimeNotFound(showtimeID)
	}

	tx := &memTx{store: s, showtimeID: showtimeID, available: st.AvailableSeats, staged: map[uint64]bool{}}
	if err := fn(ctx, tx, &st); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

// memTx stages the writes of one unit of work.
type memTx struct {
	store      *MemoryStore
	showtimeID uint64
	available  int
	staged     map[uint64]bool // seat ids flipped to booked
	booking    *model.Booking
	links      []uint64
}

func (t *memTx) overlay(seats []model.Seat) []model.Seat {
	out := make([]model.Seat, len(seats))
	copy(out, seats)
	for i := range out {
		if t.staged[out[i].ID] {
			out[i].IsBooked = true
		}
	}
	return out
}

// current is the showtime's seat map with staged writes applied.
func (t *memTx) current() []model.Seat {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.overlay(t.store.seats[t.showtimeID])
}

func (t *memTx) SeatsAt(ctx context.Context, positions []model.SeatPosition) ([]model.Seat, error) {
	want := make(map[model.SeatPosition]struct{}, len(positions))
	for _, p := range positions {
		want[p] = struct{}{}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	out := []model.Seat{}
	for _, seat := range t.overlay(t.store.seats[t.showtimeID]) {
		if _, ok := want[seat.Position()]; ok {
			out = append(out, seat)
		}
	}
	return out, nil
}

func (t *memTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	t.store.mu.RLock()
	_, dup := t.store.bookings[b.ID]
	t.store.mu.RUnlock()
	if dup || t.booking != nil {
		return ErrConflict
	}
	cp := *b
	cp.Seats = nil
	t.booking = &cp
	return nil
}

func (t *memTx) MarkBooked(ctx context.Context, bookingID string, seatIDs []uint64) (int, error) {
	current := t.current()
	free := make(map[uint64]bool, len(current))
	for _, seat := range current {
		free[seat.ID] = !seat.IsBooked
	}
	changed := 0
	for _, id := range seatIDs {
		if free[id] {
			changed++
		}
	}
	if changed != len(seatIDs) {
		return changed, nil
	}
	for _, id := range seatIDs {
		t.staged[id] = true
	}
	t.links = append(t.links, seatIDs...)
	return changed, nil
}

func (t *memTx) DecrementAvailable(ctx context.Context, n int) (int, error) {
	if t.available < n {
		return t.available, booking.InsufficientSeats(t.showtimeID, n, t.available)
	}
	t.available -= n
	return t.available, nil
}

func (t *memTx) Seats(ctx context.Context) ([]model.Seat, error) {
	return t.current(), nil
}

// commit applies staged writes under the store's write lock.
func (t *memTx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.showtimes[t.showtimeID]
	if !ok {
		return booking.ShowtimeNotFound(t.showtimeID)
	}
	seats := s.seats[t.showtimeID]
	for i := range seats {
		if t.staged[seats[i].ID] {
			seats[i].IsBooked = true
		}
	}
	st.AvailableSeats = t.available
	st.UpdatedAt = s.now().UTC()
	s.showtimes[t.showtimeID] = st
	if t.booking != nil {
		s.bookings[t.booking.ID] = memBooking{booking: *t.booking, seatIDs: append([]uint64(nil), t.links...)}
	}
	return nil
}

// InsertSeats adds the missing positions of a showtime's layout.  The
// layout must cover the showtime's capacity exactly and may not grow the
// inventory past it.
func (s *MemoryStore) InsertSeats(ctx context.Context, showtimeID uint64, positions []model.SeatPosition) error {
	lock := s.showtimeLock(showtimeID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.showtimes[showtimeID]
	if !ok {
		return booking.ShowtimeNotFound(showtimeID)
	}
	if len(positions) != st.TotalSeats {
		return booking.InvalidInput("layout of %d seats does not match showtime %d capacity of %d", len(positions), showtimeID, st.TotalSeats)
	}
	existing := s.seats[showtimeID]
	have := make(map[model.SeatPosition]struct{}, len(existing)+len(positions))
	for _, seat := range existing {
		have[seat.Position()] = struct{}{}
	}
	for _, p := range positions {
		have[p] = struct{}{}
	}
	if len(have) != st.TotalSeats {
		return booking.InvalidInput("layout would give showtime %d %d seats, capacity is %d", showtimeID, len(have), st.TotalSeats)
	}
	s.insertSeatsLocked(showtimeID, positions)
	return nil
}

func (s *MemoryStore) insertSeatsLocked(showtimeID uint64, positions []model.SeatPosition) {
	seats := s.seats[showtimeID]
	have := make(map[model.SeatPosition]struct{}, len(seats))
	for _, seat := range seats {
		have[seat.Position()] = struct{}{}
	}
	for _, p := range positions {
		if _, ok := have[p]; ok {
			continue
		}
		have[p] = struct{}{}
		s.lastID.seat++
		seats = append(seats, model.Seat{ID: s.lastID.seat, ShowtimeID: showtimeID, Row: p.Row, Number: p.Number})
	}
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].Row != seats[j].Row {
			return seats[i].Row < seats[j].Row
		}
		return seats[i].Number < seats[j].Number
	})
	s.seats[showtimeID] = seats
}

// ListSeats returns a copy of the showtime's seat map.
func (s *MemoryStore) ListSeats(ctx context.Context, showtimeID uint64) ([]model.Seat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.showtimes[showtimeID]; !ok {
		return nil, booking.ShowtimeNotFound(showtimeID)
	}
	return append([]model.Seat{}, s.seats[showtimeID]...), nil
}

func (s *MemoryStore) seatsOfLocked(mb memBooking) []model.Seat {
	ids := make(map[uint64]struct{}, len(mb.seatIDs))
	for _, id := range mb.seatIDs {
		ids[id] = struct{}{}
	}
	out := []model.Seat{}
	for _, seat := range s.seats[mb.booking.ShowtimeID] {
		if _, ok := ids[seat.ID]; ok {
			out = append(out, seat)
		}
	}
	return out
}

// ListBookings returns bookings newest first.
func (s *MemoryStore) ListBookings(ctx context.Context, movieID *uint64) ([]model.BookingSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.BookingSummary{}
	for _, mb := range s.bookings {
		if movieID != nil && mb.booking.MovieID != *movieID {
			continue
		}
		sum := model.BookingSummary{Booking: mb.booking}
		sum.Seats = s.seatsOfLocked(mb)
		sum.Movie = model.MovieRef{ID: mb.booking.MovieID, Title: s.movies[mb.booking.MovieID].Title}
		sum.Showtime = s.showtimes[mb.booking.ShowtimeID].Ref()
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BookingDate.Equal(out[j].BookingDate) {
			return out[i].BookingDate.After(out[j].BookingDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetBookingDetail returns one booking with its movie and showtime.
func (s *MemoryStore) GetBookingDetail(ctx context.Context, bookingID string) (*model.BookingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mb, ok := s.bookings[bookingID]
	if !ok {
		return nil, booking.BookingNotFound(bookingID)
	}
	d := &model.BookingDetail{
		Booking:  mb.booking,
		Movie:    s.movies[mb.booking.MovieID],
		Showtime: s.showtimes[mb.booking.ShowtimeID],
	}
	d.Seats = s.seatsOfLocked(mb)
	return d, nil
}

func (s *MemoryStore) CountMovies(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.movies), nil
}

func (s *MemoryStore) CountBookings(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bookings), nil
}

func (s *MemoryStore) TotalRevenue(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for _, mb := range s.bookings {
		sum += mb.booking.TotalPriceCents
	}
	return sum, nil
}

func (s *MemoryStore) UpcomingShowtimes(ctx context.Context, fromDate string, limit int) ([]model.Showtime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Showtime{}
	for _, st := range s.showtimes {
		if st.Date >= fromDate {
			out = append(out, st)
		}
	}
	sortShowtimes(out)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortShowtimes(list []model.Showtime) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.ID < b.ID
	})
}

func (s *MemoryStore) showtimesOfLocked(movieID uint64) []model.Showtime {
	var out []model.Showtime
	for _, st := range s.showtimes {
		if st.MovieID == movieID {
			out = append(out, st)
		}
	}
	sortShowtimes(out)
	return out
}

// ListMovies returns every movie, newest first, with its showtimes.
func (s *MemoryStore) ListMovies(ctx context.Context) ([]model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		m.Showtimes = s.showtimesOfLocked(m.ID)
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetMovie(ctx context.Context, id uint64) (*model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movies[id]
	if !ok {
		return nil, booking.MovieNotFound(id)
	}
	m.Showtimes = s.showtimesOfLocked(id)
	return &m, nil
}

func (s *MemoryStore) CreateMovie(ctx context.Context, m *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID.movie++
	now := s.now().UTC()
	m.ID = s.lastID.movie
	m.CreatedAt, m.UpdatedAt = now, now
	stored := *m
	stored.Showtimes = nil
	s.movies[m.ID] = stored
	return nil
}

func (s *MemoryStore) UpdateMovie(ctx context.Context, m *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.movies[m.ID]
	if !ok {
		return booking.MovieNotFound(m.ID)
	}
	cur.Title, cur.Director, cur.Year, cur.Genre, cur.PosterURL = m.Title, m.Director, m.Year, m.Genre, m.PosterURL
	cur.UpdatedAt = s.now().UTC()
	s.movies[m.ID] = cur
	*m = cur
	return nil
}

// DeleteMovie removes a movie with its showtimes, seats and bookings.
func (s *MemoryStore) DeleteMovie(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[id]; !ok {
		return booking.MovieNotFound(id)
	}
	for bid, mb := range s.bookings {
		if mb.booking.MovieID == id {
			delete(s.bookings, bid)
		}
	}
	for sid, st := range s.showtimes {
		if st.MovieID == id {
			delete(s.seats, sid)
			delete(s.showtimes, sid)
		}
	}
	delete(s.movies, id)
	return nil
}

// CreateShowtime stores a showtime with its generated seat layout.
func (s *MemoryStore) CreateShowtime(ctx context.Context, st *model.Showtime) error {
	layout, err := booking.GenerateLayout(st.TotalSeats)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[st.MovieID]; !ok {
		return booking.MovieNotFound(st.MovieID)
	}
	s.lastID.showtime++
	now := s.now().UTC()
	st.ID = s.lastID.showtime
	st.AvailableSeats = st.TotalSeats
	st.CreatedAt, st.UpdatedAt = now, now
	s.showtimes[st.ID] = *st
	s.insertSeatsLocked(st.ID, layout)
	return nil
}

func (s *MemoryStore) GetShowtime(ctx context.Context, movieID, showtimeID uint64) (*model.Showtime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.showtimes[showtimeID]
	if !ok || st.MovieID != movieID {
		return nil, booking.ShowtimeNotFound(showtimeID)
	}
	return &st, nil
}
