package payments

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/internal/infra/storage/memory"
	"github.com/m04kA/SMC-GarageBooking/pkg/logger"
)

func TestService_Access(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)

	booking := &domain.Booking{
		CustomerID:     5,
		BookingDate:    now,
		TimeSlot:       domain.TimeSlot{Start: "10:00", End: "11:00"},
		Status:         domain.StatusPendingPayment,
		IdempotencyKey: "k",
	}
	_, err := store.Bookings().Insert(ctx, booking)
	require.NoError(t, err)

	payment, _, err := domain.NewPayment(booking.ID, 5, decimal.NewFromInt(1200), "+254 712 345 678", now)
	require.NoError(t, err)
	require.NoError(t, store.Payments().Create(ctx, payment))

	svc := NewService(store.Payments(), store.Bookings(), logger.NewNop())

	resp, err := svc.GetByID(ctx, payment.ID, domain.Principal{UserID: 5, Role: domain.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, "1200.00", resp.Amount)
	assert.Equal(t, "2547******78", resp.Phone)
	assert.Equal(t, "pending", resp.Status)

	_, err = svc.GetByID(ctx, payment.ID, domain.Principal{UserID: 6, Role: domain.RoleCustomer})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.GetByID(ctx, 999, domain.Principal{UserID: 1, Role: domain.RoleAdmin})
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	list, err := svc.ListByBooking(ctx, booking.ID, domain.Principal{UserID: 1, Role: domain.RoleStaff})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListByBooking(ctx, 999, domain.Principal{UserID: 1, Role: domain.RoleStaff})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
