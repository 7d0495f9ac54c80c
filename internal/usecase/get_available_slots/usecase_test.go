package get_available_slots

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/internal/infra/cache"
	"github.com/m04kA/SMC-GarageBooking/internal/infra/storage/memory"
	"github.com/m04kA/SMC-GarageBooking/internal/service/schedule"
	"github.com/m04kA/SMC-GarageBooking/pkg/logger"
	"github.com/m04kA/SMC-GarageBooking/pkg/types"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type mapCache struct {
	entries     map[string][]domain.Slot
	generations map[string]int64
	sets        int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]domain.Slot), generations: make(map[string]int64)}
}

func cacheKey(day string, generation int64) string {
	return fmt.Sprintf("%s#%d", day, generation)
}

func (c *mapCache) Generation(_ context.Context, date time.Time) (int64, error) {
	return c.generations[date.Format(domain.DateFormat)], nil
}

func (c *mapCache) Get(_ context.Context, date time.Time, generation int64) ([]domain.Slot, error) {
	slots, ok := c.entries[cacheKey(date.Format(domain.DateFormat), generation)]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return slots, nil
}

func (c *mapCache) Set(_ context.Context, date time.Time, generation int64, slots []domain.Slot) error {
	c.sets++
	c.entries[cacheKey(date.Format(domain.DateFormat), generation)] = slots
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, date time.Time) error {
	c.generations[date.Format(domain.DateFormat)]++
	return nil
}

// racingRepo выполняет onList один раз сразу после чтения бронирований
type racingRepo struct {
	BookingRepository
	onList func()
}

func (r *racingRepo) List(ctx context.Context, filter domain.BookingFilter) ([]*domain.Booking, error) {
	bookings, err := r.BookingRepository.List(ctx, filter)
	if r.onList != nil {
		fn := r.onList
		r.onList = nil
		fn()
	}
	return bookings, err
}

type fixture struct {
	store  *memory.Store
	clock  *fixedClock
	cache  *mapCache
	policy schedule.Policy
	uc     *UseCase
	loc    *time.Location
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	weekly := make(map[time.Weekday]string, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		weekly[d] = "08:00-18:00"
	}
	policy, err := schedule.NewPolicy(schedule.Settings{
		Timezone:           "Africa/Nairobi",
		SlotMinutes:        60,
		AdvanceBookingDays: 30,
		HoldMinutes:        15,
		MinNoticeMinutes:   60,
		Weekly:             weekly,
		ClosedDates:        []string{"2026-11-20"},
	})
	require.NoError(t, err)

	clock := &fixedClock{now: now}
	store := memory.NewStore()
	mc := newMapCache()
	uc := NewUseCase(
		store.Bookings(),
		schedule.NewValidator(policy, clock),
		schedule.NewGenerator(policy),
		mc,
		policy.MinNotice,
		clock,
		logger.NewNop(),
	)

	return &fixture{store: store, clock: clock, cache: mc, policy: policy, uc: uc, loc: policy.Location}
}

func (f *fixture) insert(t *testing.T, day time.Time, start, end string, status domain.BookingStatus, holdUntil *time.Time) {
	t.Helper()
	created, err := f.store.Bookings().Insert(context.Background(), &domain.Booking{
		CustomerID:     7,
		ServiceID:      1,
		BookingDate:    day,
		TimeSlot:       domain.TimeSlot{Start: types.TimeString(start), End: types.TimeString(end)},
		Status:         status,
		ServiceName:    "Oil change",
		ServicePrice:   decimal.NewFromInt(2500),
		HoldExpiresAt:  holdUntil,
		IdempotencyKey: start + string(status),
	})
	require.NoError(t, err)
	require.True(t, created)
}

func TestExecute_EmptyDayIsFullyAvailable(t *testing.T) {
	f := newFixture(t, time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC))

	resp, err := f.uc.Execute(context.Background(), &Request{Date: "2026-11-02"})
	require.NoError(t, err)

	require.Len(t, resp.Slots, 10)
	assert.Equal(t, domain.Slot{Start: "08:00", End: "09:00", Available: true}, resp.Slots[0])
	assert.Equal(t, domain.Slot{Start: "17:00", End: "18:00", Available: true}, resp.Slots[9])
}

func TestExecute_ConfirmedBookingBlocksItsSlot(t *testing.T) {
	f := newFixture(t, time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC))
	day := time.Date(2026, 11, 2, 0, 0, 0, 0, f.loc)
	f.insert(t, day, "10:00", "11:00", domain.StatusConfirmed, nil)

	resp, err := f.uc.Execute(context.Background(), &Request{Date: "2026-11-02"})
	require.NoError(t, err)

	require.Len(t, resp.Slots, 10)
	for _, slot := range resp.Slots {
		assert.Equal(t, slot.Start != "10:00", slot.Available, "slot %s", slot.Start)
	}
}

func TestExecute_ExpiredHoldDoesNotBlock(t *testing.T) {
	now := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	day := time.Date(2026, 11, 2, 0, 0, 0, 0, f.loc)

	expired := now.Add(-time.Minute)
	active := now.Add(10 * time.Minute)
	f.insert(t, day, "09:00", "10:00", domain.StatusPendingPayment, &expired)
	f.insert(t, day, "11:00", "12:00", domain.StatusPendingPayment, &active)

	resp, err := f.uc.Execute(context.Background(), &Request{Date: "2026-11-02"})
	require.NoError(t, err)

	byStart := make(map[types.TimeString]bool)
	for _, slot := range resp.Slots {
		byStart[slot.Start] = slot.Available
	}
	assert.True(t, byStart["09:00"])
	assert.False(t, byStart["11:00"])

	// день с активным удержанием не кешируется
	assert.Equal(t, 0, f.cache.sets)
}

func TestExecute_MinNoticeToday(t *testing.T) {
	// 10:30 в Найроби
	f := newFixture(t, time.Date(2026, 11, 2, 7, 30, 0, 0, time.UTC))

	resp, err := f.uc.Execute(context.Background(), &Request{Date: "2026-11-02"})
	require.NoError(t, err)

	require.Len(t, resp.Slots, 10)
	for _, slot := range resp.Slots {
		// раньше 11:30 записаться нельзя
		expected := !slot.Start.IsBefore("11:30")
		assert.Equal(t, expected, slot.Available, "slot %s", slot.Start)
	}

	// в кеш попадает сетка без учёта времени до записи
	cached := f.cache.entries[cacheKey("2026-11-02", 0)]
	require.Len(t, cached, 10)
	for _, slot := range cached {
		assert.True(t, slot.Available)
	}
}

func TestExecute_UsesCache(t *testing.T) {
	f := newFixture(t, time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC))
	f.cache.entries[cacheKey("2026-11-03", 0)] = []domain.Slot{{Start: "08:00", End: "09:00", Available: false}}

	resp, err := f.uc.Execute(context.Background(), &Request{Date: "2026-11-03"})
	require.NoError(t, err)

	require.Len(t, resp.Slots, 1)
	assert.False(t, resp.Slots[0].Available)
}

func TestExecute_ClosedDay(t *testing.T) {
	f := newFixture(t, time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC))

	resp, err := f.uc.Execute(context.Background(), &Request{Date: "2026-11-20"})
	require.NoError(t, err)
	assert.Empty(t, resp.Slots)
}

func TestExecute_InvalidDate(t *testing.T) {
	f := newFixture(t, time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		date string
		err  error
	}{
		{name: "empty", date: " ", err: ErrInvalidInput},
		{name: "malformed", date: "02.11.2026", err: ErrInvalidDate},
		{name: "past", date: "2026-10-31", err: ErrInvalidDate},
		{name: "beyond horizon", date: "2027-01-15", err: ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Execute(context.Background(), &Request{Date: tt.date})
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestExecute_InvalidationDuringGenerationIsNotMasked(t *testing.T) {
	f := newFixture(t, time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC))
	day := time.Date(2026, 11, 2, 0, 0, 0, 0, f.loc)

	repo := &racingRepo{BookingRepository: f.store.Bookings()}
	repo.onList = func() {
		// параллельная бронь фиксируется после чтения, но до записи в кеш
		f.insert(t, day, "10:00", "11:00", domain.StatusConfirmed, nil)
		require.NoError(t, f.cache.Invalidate(context.Background(), day))
	}
	uc := NewUseCase(
		repo,
		schedule.NewValidator(f.policy, f.clock),
		schedule.NewGenerator(f.policy),
		f.cache,
		f.policy.MinNotice,
		f.clock,
		logger.NewNop(),
	)

	first, err := uc.Execute(context.Background(), &Request{Date: "2026-11-02"})
	require.NoError(t, err)
	for _, slot := range first.Slots {
		assert.True(t, slot.Available, "slot %s", slot.Start)
	}

	second, err := uc.Execute(context.Background(), &Request{Date: "2026-11-02"})
	require.NoError(t, err)
	require.Len(t, second.Slots, 10)
	for _, slot := range second.Slots {
		assert.Equal(t, slot.Start != "10:00", slot.Available, "slot %s", slot.Start)
	}
	assert.Equal(t, 2, f.cache.sets)

	third, err := uc.Execute(context.Background(), &Request{Date: "2026-11-02"})
	require.NoError(t, err)
	assert.Equal(t, second.Slots, third.Slots)
	assert.Equal(t, 2, f.cache.sets, "current generation is served from cache")
}
