package booking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesCode(t *testing.T) {
	err := SeatAlreadyBooked(7, "A1")
	assert.ErrorIs(t, err, ErrSeatAlreadyBooked)
	assert.NotErrorIs(t, err, ErrSeatNotFound)

	wrapped := fmt.Errorf("reserve: %w", err)
	assert.ErrorIs(t, wrapped, ErrSeatAlreadyBooked)

	var be *Error
	assert.True(t, errors.As(wrapped, &be))
	assert.Equal(t, uint64(7), be.ShowtimeID)
	assert.Equal(t, "A1", be.Seat)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{MovieNotFound(1), KindNotFound},
		{ShowtimeNotFound(1), KindNotFound},
		{SeatNotFound(1, "Z9"), KindNotFound},
		{BookingNotFound("x"), KindNotFound},
		{SeatAlreadyBooked(1, ""), KindConflict},
		{InsufficientSeats(1, 3, 2), KindConflict},
		{integrityViolation(1, "boom"), KindIntegrity},
		{InvalidInput("bad"), KindValidation},
		{errors.New("plain"), KindUnknown},
		{ErrLockConflict, KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), tt.err.Error())
	}
}

func TestError_Messages(t *testing.T) {
	assert.Equal(t, "seat Z9 not found in showtime 4", SeatNotFound(4, "Z9").Error())
	assert.Equal(t, "one or more seats are already booked for showtime 4", SeatAlreadyBooked(4, "").Error())
	assert.Equal(t, "requested 3 seats but only 1 available for showtime 4", InsufficientSeats(4, 3, 1).Error())

	e := &Error{Code: CodeIntegrity, Err: errors.New("disk")}
	assert.Equal(t, "integrity_violation: disk", e.Error())
	assert.Equal(t, "conflict", KindConflict.String())
}
