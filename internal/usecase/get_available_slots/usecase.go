package get_available_slots

import (
	"context"
	"fmt"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

// UseCase use case для получения доступных слотов на дату
type UseCase struct {
	bookingRepo  BookingRepository
	validator    DateValidator
	generator    SlotGenerator
	cache        AvailabilityCache
	minNotice    time.Duration
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	validator DateValidator,
	generator SlotGenerator,
	cache AvailabilityCache,
	minNotice time.Duration,
	timeProvider TimeProvider,
	logger Logger,
) *UseCase {
	if timeProvider == nil {
		timeProvider = &RealTimeProvider{}
	}
	return &UseCase{
		bookingRepo:  bookingRepo,
		validator:    validator,
		generator:    generator,
		cache:        cache,
		minNotice:    minNotice,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Execute выполняет use case получения слотов.
// Результат только для отображения: допуск брони решает резервирование слота.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}

	// 2. Проверяем дату
	date, err := uc.validator.Validate(req.Date)
	if err != nil {
		uc.logger.Warn("GetAvailableSlots: date %s rejected: %v", req.Date, err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}

	now := uc.timeProvider.Now()

	// 3. Берём сетку из кеша или строим заново.
	// Поколение читается до загрузки бронирований: сетка, построенная до параллельной
	// инвалидации, сохранится в устаревшее поколение и не будет прочитана.
	generation, genErr := uc.cache.Generation(ctx, date)
	if genErr != nil {
		uc.logger.Warn("GetAvailableSlots: availability cache unavailable for %s: %v", date.Format(domain.DateFormat), genErr)
	}

	var slots []domain.Slot
	if genErr == nil {
		slots, err = uc.cache.Get(ctx, date, generation)
	}
	if genErr != nil || err != nil {
		var cacheable bool
		slots, cacheable, err = uc.generate(ctx, date, now)
		if err != nil {
			return nil, err
		}
		if cacheable && genErr == nil {
			if err := uc.cache.Set(ctx, date, generation, slots); err != nil {
				uc.logger.Warn("GetAvailableSlots: failed to cache slots for %s: %v", date.Format(domain.DateFormat), err)
			}
		}
	}

	// 4. Применяем минимальное время до записи
	slots = applyMinNotice(slots, date, now, uc.minNotice)

	uc.logger.Info("GetAvailableSlots: date=%s, %d slots", date.Format(domain.DateFormat), len(slots))

	return &Response{
		Date:  date,
		Slots: slots,
	}, nil
}

// generate строит сетку по бронированиям даты. cacheable=false, если на дату есть активные удержания:
// они истекают без записи в БД, и закешированная сетка пережила бы их.
func (uc *UseCase) generate(ctx context.Context, date time.Time, now time.Time) ([]domain.Slot, bool, error) {
	bookings, err := uc.bookingRepo.List(ctx, domain.BookingFilter{Date: &date})
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get bookings for %s: %v", date.Format(domain.DateFormat), err)
		return nil, false, fmt.Errorf("%w: failed to get bookings: %v", ErrInternal, err)
	}

	slots := uc.generator.Generate(date, snapshot(bookings, now))
	return slots, !hasPendingHolds(bookings, now), nil
}

// hasPendingHolds возвращает true, если на дату есть ещё не истёкшее удержание
func hasPendingHolds(bookings []*domain.Booking, now time.Time) bool {
	for _, booking := range bookings {
		if booking.Status == domain.StatusPendingPayment && !booking.IsHoldExpired(now) {
			return true
		}
	}
	return false
}
