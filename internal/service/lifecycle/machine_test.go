package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/internal/infra/storage/memory"
	"github.com/m04kA/SMC-GarageBooking/pkg/logger"
	"github.com/m04kA/SMC-GarageBooking/pkg/ptr"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingCache struct {
	invalidations int32
}

func (c *countingCache) Invalidate(context.Context, time.Time) error {
	atomic.AddInt32(&c.invalidations, 1)
	return nil
}

type fixture struct {
	store   *memory.Store
	clock   *fakeClock
	cache   *countingCache
	machine *Machine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	clock := &fakeClock{now: time.Date(2026, 11, 2, 8, 0, 0, 0, time.UTC)}
	cache := &countingCache{}
	machine := NewMachine(store.Bookings(), store.Payments(), store.Outbox(), cache, store.TxManager(), clock, logger.NewNop())

	return &fixture{store: store, clock: clock, cache: cache, machine: machine}
}

func (f *fixture) pendingBooking(t *testing.T) *domain.Booking {
	t.Helper()

	now := f.clock.Now()
	booking := &domain.Booking{
		CustomerID:     7,
		ServiceID:      1,
		BookingDate:    time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		TimeSlot:       domain.TimeSlot{Start: "10:00", End: "11:00"},
		Status:         domain.StatusPendingPayment,
		ServiceName:    "Oil change",
		ServicePrice:   decimal.NewFromInt(2500),
		HoldExpiresAt:  ptr.Ptr(now.Add(15 * time.Minute)),
		IdempotencyKey: "key-1",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	created, err := f.store.Bookings().Insert(context.Background(), booking)
	require.NoError(t, err)
	require.True(t, created)

	payment, _, err := domain.NewPayment(booking.ID, booking.CustomerID, booking.ServicePrice, "0712345678", now)
	require.NoError(t, err)
	require.NoError(t, f.store.Payments().Create(context.Background(), payment))

	return booking
}

func (f *fixture) events() []*domain.OutboxEvent {
	return f.store.Outbox().All(context.Background())
}

func TestApply_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.pendingBooking(t)

	steps := []struct {
		event domain.BookingEvent
		want  domain.BookingStatus
	}{
		{domain.EventPaymentCompleted, domain.StatusConfirmed},
		{domain.EventStart, domain.StatusInProgress},
		{domain.EventComplete, domain.StatusCompleted},
	}

	for _, step := range steps {
		result, err := f.machine.Apply(ctx, booking.ID, step.event, Meta{})
		require.NoError(t, err)
		assert.True(t, result.Applied)
		assert.False(t, result.Expired)
		assert.Equal(t, step.want, result.To)
		assert.Equal(t, step.want, result.Booking.Status)
	}

	events := f.events()
	require.Len(t, events, 3)
	assert.Equal(t, "booking.confirmed", events[0].EventType)
	assert.Equal(t, "booking.in_progress", events[1].EventType)
	assert.Equal(t, "booking.completed", events[2].EventType)
	assert.Equal(t, int32(3), f.cache.invalidations)
}

func TestApply_TerminalIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.pendingBooking(t)

	_, err := f.machine.Apply(ctx, booking.ID, domain.EventPaymentFailed, Meta{})
	require.NoError(t, err)
	eventsBefore := len(f.events())

	for _, event := range []domain.BookingEvent{
		domain.EventPaymentCompleted,
		domain.EventCancel,
		domain.EventStart,
		domain.EventHoldExpired,
	} {
		result, err := f.machine.Apply(ctx, booking.ID, event, Meta{})
		require.NoError(t, err, event)
		assert.False(t, result.Applied, event)
		assert.Equal(t, domain.StatusFailed, result.To)
	}

	assert.Len(t, f.events(), eventsBefore)
	stored, err := f.store.Bookings().GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
}

func TestApply_IllegalTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.pendingBooking(t)

	_, err := f.machine.Apply(ctx, booking.ID, domain.EventStart, Meta{})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = f.machine.Apply(ctx, booking.ID, domain.EventPaymentCompleted, Meta{})
	require.NoError(t, err)

	_, err = f.machine.Apply(ctx, booking.ID, domain.EventComplete, Meta{})
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestApply_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.machine.Apply(context.Background(), 404, domain.EventCancel, Meta{})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestApply_ExpiredHoldIsMaterializedFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.pendingBooking(t)

	f.clock.Advance(16 * time.Minute)

	result, err := f.machine.Apply(ctx, booking.ID, domain.EventPaymentCompleted, Meta{})
	require.NoError(t, err)
	assert.True(t, result.Expired)
	assert.False(t, result.Applied)
	assert.Equal(t, domain.StatusPendingPayment, result.From)
	assert.Equal(t, domain.StatusFailed, result.To)

	payments, err := f.store.Payments().ListByBooking(ctx, booking.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, domain.PaymentCancelled, payments[0].Status)

	events := f.events()
	require.Len(t, events, 1)
	assert.Equal(t, "booking.failed", events[0].EventType)
}

func TestApply_HoldExpiredEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.pendingBooking(t)

	f.clock.Advance(15 * time.Minute)

	result, err := f.machine.Apply(ctx, booking.ID, domain.EventHoldExpired, Meta{})
	require.NoError(t, err)
	assert.True(t, result.Expired)
	assert.True(t, result.Applied)
	assert.Equal(t, domain.StatusFailed, result.To)
}

func TestApply_CancelStoresReasonAndCancelsPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.pendingBooking(t)

	result, err := f.machine.Apply(ctx, booking.ID, domain.EventCancel, Meta{
		Reason: ptr.Ptr("customer changed plans"),
		Actor:  ptr.Ptr(int64(7)),
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)

	stored, err := f.store.Bookings().GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
	require.NotNil(t, stored.CancellationReason)
	assert.Equal(t, "customer changed plans", *stored.CancellationReason)
	assert.NotNil(t, stored.CancelledAt)

	payments, err := f.store.Payments().ListByBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCancelled, payments[0].Status)

	// слот освобождён
	again := &domain.Booking{
		BookingDate:    booking.BookingDate,
		TimeSlot:       booking.TimeSlot,
		Status:         domain.StatusPendingPayment,
		IdempotencyKey: "key-2",
	}
	created, err := f.store.Bookings().Insert(ctx, again)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestApply_ConcurrentEventsSingleTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking := f.pendingBooking(t)

	const workers = 8
	var applied int32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			result, err := f.machine.Apply(ctx, booking.ID, domain.EventCancel, Meta{})
			if !assert.NoError(t, err) {
				return
			}
			if result.Applied {
				atomic.AddInt32(&applied, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), applied)
	assert.Len(t, f.events(), 1)
}
