package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStatus_Next(t *testing.T) {
	tests := []struct {
		from    BookingStatus
		event   BookingEvent
		want    BookingStatus
		wantErr error
	}{
		{StatusPendingPayment, EventPaymentCompleted, StatusConfirmed, nil},
		{StatusPendingPayment, EventPaymentFailed, StatusFailed, nil},
		{StatusPendingPayment, EventHoldExpired, StatusFailed, nil},
		{StatusPendingPayment, EventCancel, StatusCancelled, nil},
		{StatusPendingPayment, EventStart, StatusPendingPayment, ErrIllegalTransition},
		{StatusConfirmed, EventStart, StatusInProgress, nil},
		{StatusConfirmed, EventCancel, StatusCancelled, nil},
		{StatusConfirmed, EventPaymentCompleted, StatusConfirmed, ErrIllegalTransition},
		{StatusInProgress, EventComplete, StatusCompleted, nil},
		{StatusInProgress, EventCancel, StatusInProgress, ErrIllegalTransition},
		{StatusCompleted, EventCancel, StatusCompleted, ErrTerminalStatus},
		{StatusCancelled, EventPaymentCompleted, StatusCancelled, ErrTerminalStatus},
		{StatusFailed, EventPaymentCompleted, StatusFailed, ErrTerminalStatus},
		{BookingStatus("bogus"), EventCancel, BookingStatus("bogus"), ErrUnknownStatus},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			got, err := tt.from.Next(tt.event)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBookingStatus_Sets(t *testing.T) {
	for _, s := range AllBookingStatuses {
		assert.False(t, s.IsBlocking() && s.IsTerminal(), "status %s cannot be both blocking and terminal", s)
	}
	assert.ElementsMatch(t, BlockingStatuses, []BookingStatus{StatusPendingPayment, StatusConfirmed, StatusInProgress})

	_, err := ParseBookingStatus("confirmed")
	assert.NoError(t, err)
	_, err = ParseBookingStatus("cancelled_by_user")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestBooking_ApplyTerminalIsNoOp(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	for _, terminal := range []BookingStatus{StatusCompleted, StatusCancelled, StatusFailed} {
		b := &Booking{ID: 1, Status: terminal, UpdatedAt: now.Add(-time.Hour)}

		for _, event := range []BookingEvent{EventPaymentCompleted, EventPaymentFailed, EventHoldExpired, EventStart, EventComplete, EventCancel} {
			res, err := b.Apply(event, now)
			require.NoError(t, err)
			assert.False(t, res.Applied)
			assert.Equal(t, terminal, res.To)
			assert.Equal(t, terminal, b.Status)
		}
		assert.Equal(t, now.Add(-time.Hour), b.UpdatedAt)
	}
}

func TestBooking_ApplyCancelSetsCancelledAt(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	b := &Booking{Status: StatusConfirmed}

	res, err := b.Apply(EventCancel, now)

	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, StatusConfirmed, res.From)
	assert.Equal(t, StatusCancelled, res.To)
	require.NotNil(t, b.CancelledAt)
	assert.Equal(t, now, *b.CancelledAt)
}

func TestBooking_HoldExpiry(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	expires := now.Add(-time.Second)
	b := &Booking{Status: StatusPendingPayment, HoldExpiresAt: &expires}

	assert.True(t, b.IsHoldExpired(now))
	assert.Equal(t, StatusFailed, b.EffectiveStatus(now))
	assert.False(t, b.BlocksSlot(now))
	assert.Equal(t, StatusPendingPayment, b.Status, "reads never mutate the booking")

	snapshot := b.Snapshot(now)
	assert.Equal(t, StatusFailed, snapshot.Status)

	future := now.Add(time.Minute)
	b.HoldExpiresAt = &future
	assert.False(t, b.IsHoldExpired(now))
	assert.True(t, b.BlocksSlot(now))

	b.Status = StatusConfirmed
	b.HoldExpiresAt = &expires
	assert.False(t, b.IsHoldExpired(now), "only pending holds expire")
}

func TestTimeSlot_Overlaps(t *testing.T) {
	slot := TimeSlot{Start: "10:00", End: "11:00"}

	assert.True(t, slot.Overlaps(TimeSlot{Start: "10:30", End: "11:30"}))
	assert.True(t, slot.Overlaps(TimeSlot{Start: "10:00", End: "11:00"}))
	assert.False(t, slot.Overlaps(TimeSlot{Start: "11:00", End: "12:00"}))
	assert.False(t, slot.Overlaps(TimeSlot{Start: "09:00", End: "10:00"}))

	assert.NoError(t, slot.Validate())
	assert.ErrorIs(t, TimeSlot{Start: "11:00", End: "10:00"}.Validate(), ErrInvalidTimeSlot)
}
