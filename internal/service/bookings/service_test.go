package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/internal/infra/cache"
	"github.com/m04kA/SMC-GarageBooking/internal/infra/storage/memory"
	"github.com/m04kA/SMC-GarageBooking/internal/service/bookings/models"
	"github.com/m04kA/SMC-GarageBooking/internal/service/lifecycle"
	"github.com/m04kA/SMC-GarageBooking/pkg/logger"
	"github.com/m04kA/SMC-GarageBooking/pkg/ptr"
	"github.com/m04kA/SMC-GarageBooking/pkg/types"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

var (
	customer = domain.Principal{UserID: 10, Role: domain.RoleCustomer}
	stranger = domain.Principal{UserID: 11, Role: domain.RoleCustomer}
	staff    = domain.Principal{UserID: 1, Role: domain.RoleStaff}
	day      = time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
)

func setup(t *testing.T) (*Service, *memory.Store, *fixedClock) {
	t.Helper()

	store := memory.NewStore()
	clock := &fixedClock{now: time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)}
	log := logger.NewNop()
	machine := lifecycle.NewMachine(store.Bookings(), store.Payments(), store.Outbox(), cache.NopCache{}, store.TxManager(), clock, log)

	return NewService(store.Bookings(), machine, clock, log), store, clock
}

func insert(t *testing.T, store *memory.Store, clock *fixedClock, key, start, end string, status domain.BookingStatus) *domain.Booking {
	t.Helper()

	booking := &domain.Booking{
		CustomerID:     customer.UserID,
		ServiceID:      3,
		BookingDate:    day,
		TimeSlot:       domain.TimeSlot{Start: types.TimeString(start), End: types.TimeString(end)},
		Status:         status,
		ServiceName:    "Wheel alignment",
		ServicePrice:   decimal.RequireFromString("1999.50"),
		HoldExpiresAt:  ptr.Ptr(clock.now.Add(15 * time.Minute)),
		IdempotencyKey: key,
		CreatedAt:      clock.now,
		UpdatedAt:      clock.now,
	}
	created, err := store.Bookings().Insert(context.Background(), booking)
	require.NoError(t, err)
	require.True(t, created)
	return booking
}

func TestGetByID_Access(t *testing.T) {
	svc, store, clock := setup(t)
	booking := insert(t, store, clock, "k1", "10:00", "11:00", domain.StatusConfirmed)

	resp, err := svc.GetByID(context.Background(), booking.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", resp.Status)
	assert.Equal(t, "1999.50", resp.ServicePrice)
	assert.Equal(t, "2026-11-02", resp.BookingDate)
	assert.Nil(t, resp.HoldExpiresAt)

	_, err = svc.GetByID(context.Background(), booking.ID, staff)
	require.NoError(t, err)

	_, err = svc.GetByID(context.Background(), booking.ID, stranger)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.GetByID(context.Background(), 999, customer)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestGetByID_ExpiredHoldReadsAsFailed(t *testing.T) {
	svc, store, clock := setup(t)
	booking := insert(t, store, clock, "k1", "10:00", "11:00", domain.StatusPendingPayment)

	clock.now = clock.now.Add(20 * time.Minute)

	resp, err := svc.GetByID(context.Background(), booking.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, "failed", resp.Status)
}

func TestGetCustomerBookings_FiltersByEffectiveStatus(t *testing.T) {
	svc, store, clock := setup(t)
	insert(t, store, clock, "k1", "10:00", "11:00", domain.StatusPendingPayment)
	insert(t, store, clock, "k2", "11:00", "12:00", domain.StatusConfirmed)
	clock.now = clock.now.Add(time.Hour)

	resp, err := svc.GetCustomerBookings(context.Background(), &models.GetCustomerBookingsRequest{
		CustomerID: customer.UserID,
		Status:     ptr.Ptr("failed"),
	}, customer)
	require.NoError(t, err)
	require.Len(t, resp.Bookings, 1)
	assert.Equal(t, "10:00", resp.Bookings[0].StartTime)

	_, err = svc.GetCustomerBookings(context.Background(), &models.GetCustomerBookingsRequest{CustomerID: customer.UserID}, stranger)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.GetCustomerBookings(context.Background(), &models.GetCustomerBookingsRequest{
		CustomerID: customer.UserID,
		Status:     ptr.Ptr("cancelled_by_user"),
	}, customer)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestGetBookingsByDate_StaffOnly(t *testing.T) {
	svc, store, clock := setup(t)
	insert(t, store, clock, "k2", "11:00", "12:00", domain.StatusConfirmed)
	insert(t, store, clock, "k1", "09:00", "10:00", domain.StatusConfirmed)

	resp, err := svc.GetBookingsByDate(context.Background(), day, staff)
	require.NoError(t, err)
	require.Len(t, resp.Bookings, 2)
	assert.Equal(t, "09:00", resp.Bookings[0].StartTime)

	_, err = svc.GetBookingsByDate(context.Background(), day, customer)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestCancel(t *testing.T) {
	svc, store, clock := setup(t)
	ctx := context.Background()
	booking := insert(t, store, clock, "k1", "10:00", "11:00", domain.StatusConfirmed)

	_, err := svc.Cancel(ctx, booking.ID, &models.CancelBookingRequest{}, stranger)
	assert.ErrorIs(t, err, ErrAccessDenied)

	resp, err := svc.Cancel(ctx, booking.ID, &models.CancelBookingRequest{Reason: ptr.Ptr("sick")}, customer)
	require.NoError(t, err)
	assert.True(t, resp.Applied)
	assert.Equal(t, "cancelled", resp.Booking.Status)
	assert.Equal(t, "sick", *resp.Booking.CancellationReason)

	// повторная отмена ничего не меняет
	resp, err = svc.Cancel(ctx, booking.ID, &models.CancelBookingRequest{}, customer)
	require.NoError(t, err)
	assert.False(t, resp.Applied)
	assert.Equal(t, "cancelled", resp.Booking.Status)
}

func TestCancel_InProgressIsRejected(t *testing.T) {
	svc, store, clock := setup(t)
	booking := insert(t, store, clock, "k1", "10:00", "11:00", domain.StatusInProgress)

	_, err := svc.Cancel(context.Background(), booking.ID, &models.CancelBookingRequest{}, staff)
	assert.ErrorIs(t, err, ErrCannotCancel)
}

func TestUpdateStatus(t *testing.T) {
	svc, store, clock := setup(t)
	ctx := context.Background()
	booking := insert(t, store, clock, "k1", "10:00", "11:00", domain.StatusConfirmed)

	_, err := svc.UpdateStatus(ctx, booking.ID, &models.UpdateStatusRequest{Status: "in_progress"}, customer)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.UpdateStatus(ctx, booking.ID, &models.UpdateStatusRequest{Status: "confirmed"}, staff)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateStatus(ctx, booking.ID, &models.UpdateStatusRequest{Status: "completed"}, staff)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	resp, err := svc.UpdateStatus(ctx, booking.ID, &models.UpdateStatusRequest{Status: "in_progress"}, staff)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", resp.Booking.Status)

	resp, err = svc.UpdateStatus(ctx, booking.ID, &models.UpdateStatusRequest{Status: "completed"}, staff)
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Booking.Status)
	assert.True(t, resp.Applied)
}

func TestAssignStaff(t *testing.T) {
	svc, store, clock := setup(t)
	ctx := context.Background()
	active := insert(t, store, clock, "k1", "10:00", "11:00", domain.StatusConfirmed)
	closed := insert(t, store, clock, "k2", "12:00", "13:00", domain.StatusCompleted)

	resp, err := svc.AssignStaff(ctx, active.ID, &models.AssignStaffRequest{StaffID: 42}, staff)
	require.NoError(t, err)
	require.NotNil(t, resp.StaffID)
	assert.Equal(t, int64(42), *resp.StaffID)

	_, err = svc.AssignStaff(ctx, closed.ID, &models.AssignStaffRequest{StaffID: 42}, staff)
	assert.ErrorIs(t, err, ErrBookingClosed)

	_, err = svc.AssignStaff(ctx, active.ID, &models.AssignStaffRequest{StaffID: 42}, customer)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.AssignStaff(ctx, active.ID, &models.AssignStaffRequest{StaffID: 0}, staff)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
