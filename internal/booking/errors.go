package booking

import (
	"errors"
	"fmt"
)

// Kind groups error codes by how callers are expected to react.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: the caller referenced an entity that does not exist.
	KindNotFound
	// KindConflict: a legitimate outcome of concurrent use; pick other seats.
	KindConflict
	// KindIntegrity: an invariant was about to be broken; nothing was committed.
	KindIntegrity
	// KindValidation: the request itself is malformed.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindIntegrity:
		return "integrity"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Code identifies a specific failure.
type Code string

const (
	CodeMovieNotFound     Code = "movie_not_found"
	CodeShowtimeNotFound  Code = "showtime_not_found"
	CodeSeatNotFound      Code = "seat_not_found"
	CodeBookingNotFound   Code = "booking_not_found"
	CodeSeatAlreadyBooked Code = "seat_already_booked"
	CodeInsufficientSeats Code = "insufficient_seats"
	CodeIntegrity         Code = "integrity_violation"
	CodeInvalidInput      Code = "invalid_input"
)

// Kind reports the group a code belongs to.
func (c Code) Kind() Kind {
	switch c {
	case CodeMovieNotFound, CodeShowtimeNotFound, CodeSeatNotFound, CodeBookingNotFound:
		return KindNotFound
	case CodeSeatAlreadyBooked, CodeInsufficientSeats:
		return KindConflict
	case CodeIntegrity:
		return KindIntegrity
	case CodeInvalidInput:
		return KindValidation
	default:
		return KindUnknown
	}
}

// Error is the failure type of every booking operation.  It carries the
// showtime and seat involved so callers can render a precise message.
// Two errors match under errors.Is when their codes are equal, which lets
// callers compare against the exported sentinels below.
type Error struct {
	Code       Code
	ShowtimeID uint64
	BookingID  string
	Seat       string
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Kind reports the error group.
func (e *Error) Kind() Kind { return e.Code.Kind() }

// Sentinels for errors.Is comparisons.
var (
	ErrMovieNotFound     = &Error{Code: CodeMovieNotFound}
	ErrShowtimeNotFound  = &Error{Code: CodeShowtimeNotFound}
	ErrSeatNotFound      = &Error{Code: CodeSeatNotFound}
	ErrBookingNotFound   = &Error{Code: CodeBookingNotFound}
	ErrSeatAlreadyBooked = &Error{Code: CodeSeatAlreadyBooked}
	ErrInsufficientSeats = &Error{Code: CodeInsufficientSeats}
	ErrIntegrity         = &Error{Code: CodeIntegrity}
	ErrInvalidInput      = &Error{Code: CodeInvalidInput}
)

// ErrLockConflict marks a transient storage failure (deadlock, lock wait
// timeout).  Storage implementations wrap it; the manager retries on it.
var ErrLockConflict = errors.New("booking: lock conflict")

// KindOf returns the kind of err, or KindUnknown when err is not a booking error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind()
	}
	return KindUnknown
}

// MovieNotFound builds the not-found error for a movie.
func MovieNotFound(movieID uint64) error {
	return &Error{Code: CodeMovieNotFound, Msg: fmt.Sprintf("movie %d not found", movieID)}
}

// ShowtimeNotFound builds the not-found error for a showtime.
func ShowtimeNotFound(showtimeID uint64) error {
	return &Error{
		Code:       CodeShowtimeNotFound,
		ShowtimeID: showtimeID,
		Msg:        fmt.Sprintf("showtime %d not found", showtimeID),
	}
}

// BookingNotFound builds the not-found error for a booking.
func BookingNotFound(bookingID string) error {
	return &Error{
		Code:      CodeBookingNotFound,
		BookingID: bookingID,
		Msg:       fmt.Sprintf("booking %s not found", bookingID),
	}
}

// SeatNotFound builds the error for a seat missing from a showtime's inventory.
func SeatNotFound(showtimeID uint64, seat string) error {
	return &Error{
		Code:       CodeSeatNotFound,
		ShowtimeID: showtimeID,
		Seat:       seat,
		Msg:        fmt.Sprintf("seat %s not found in showtime %d", seat, showtimeID),
	}
}

// SeatAlreadyBooked builds the conflict error for a seat held by another booking.
func SeatAlreadyBooked(showtimeID uint64, seat string) error {
	msg := fmt.Sprintf("seat %s is already booked for showtime %d", seat, showtimeID)
	if seat == "" {
		msg = fmt.Sprintf("one or more seats are already booked for showtime %d", showtimeID)
	}
	return &Error{
		Code:       CodeSeatAlreadyBooked,
		ShowtimeID: showtimeID,
		Seat:       seat,
		Msg:        msg,
	}
}

// InsufficientSeats builds the conflict error for a request larger than
// the showtime's remaining capacity.
func InsufficientSeats(showtimeID uint64, requested, available int) error {
	return &Error{
		Code:       CodeInsufficientSeats,
		ShowtimeID: showtimeID,
		Msg:        fmt.Sprintf("requested %d seats but only %d available for showtime %d", requested, available, showtimeID),
	}
}

func integrityViolation(showtimeID uint64, format string, args ...any) error {
	return &Error{
		Code:       CodeIntegrity,
		ShowtimeID: showtimeID,
		Msg:        "integrity violation: " + fmt.Sprintf(format, args...),
	}
}

// InvalidInput builds a validation error.
func InvalidInput(format string, args ...any) error {
	return invalidInput(format, args...)
}

func invalidInput(format string, args ...any) error {
	return &Error{Code: CodeInvalidInput, Msg: fmt.Sprintf(format, args...)}
}
