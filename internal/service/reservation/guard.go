package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	bookingRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/booking"
	"github.com/m04kA/SMC-GarageBooking/internal/service/lifecycle"
	"github.com/m04kA/SMC-GarageBooking/pkg/tracing"
)

// Outcome результат попытки резервирования
type Outcome string

const (
	// OutcomeReserved слот занят новым бронированием
	OutcomeReserved Outcome = "reserved"
	// OutcomeReplayed повтор запроса с тем же ключом идемпотентности
	OutcomeReplayed Outcome = "replayed"
	// OutcomeConflict слот уже занят
	OutcomeConflict Outcome = "conflict"
)

// Result итог резервирования. При OutcomeConflict Booking == nil.
type Result struct {
	Booking *domain.Booking
	Outcome Outcome
}

// Guard атомарно занимает слот: из параллельных попыток на один интервал ровно одна
// получает OutcomeReserved, остальные OutcomeConflict. Конфликт является результатом, а не ошибкой.
type Guard struct {
	bookingRepo  BookingRepository
	lifecycle    Lifecycle
	cache        AvailabilityCache
	txManager    TransactionManager
	metrics      Metrics
	holdWindow   time.Duration
	timeProvider TimeProvider
	logger       Logger
}

// NewGuard создает guard резервирования
func NewGuard(
	bookingRepo BookingRepository,
	lifecycle Lifecycle,
	cache AvailabilityCache,
	txManager TransactionManager,
	metrics Metrics,
	holdWindow time.Duration,
	timeProvider TimeProvider,
	logger Logger,
) *Guard {
	if timeProvider == nil {
		timeProvider = &RealTimeProvider{}
	}
	return &Guard{
		bookingRepo:  bookingRepo,
		lifecycle:    lifecycle,
		cache:        cache,
		txManager:    txManager,
		metrics:      metrics,
		holdWindow:   holdWindow,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Reserve пытается занять слот черновиком draft.
//
// Черновик получает статус pending_payment и срок удержания now+holdWindow.
// Повтор с тем же ключом идемпотентности возвращает уже созданное бронирование (OutcomeReplayed).
// Истёкшие удержания на этом интервале сначала переводятся в failed и перестают занимать слот.
func (g *Guard) Reserve(ctx context.Context, draft *domain.Booking) (*Result, error) {
	ctx, span := tracing.Start(ctx, "reservation.Reserve")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking.date", draft.BookingDate.Format(domain.DateFormat)),
		attribute.String("booking.start", draft.TimeSlot.Start.String()),
	)

	if draft.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: empty idempotency key", ErrInvalidInput)
	}
	if err := draft.TimeSlot.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var result *Result
	err := g.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = g.reserve(ctx, draft)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.metrics.IncReservation("error")
		return nil, err
	}

	span.SetAttributes(attribute.String("reservation.outcome", string(result.Outcome)))
	g.metrics.IncReservation(string(result.Outcome))

	switch result.Outcome {
	case OutcomeReserved:
		if err := g.cache.Invalidate(ctx, draft.BookingDate); err != nil {
			g.logger.Warn("Reserve: failed to invalidate availability cache: %v", err)
		}
		g.logger.Info("Reserve: booking id=%d reserved %s %s-%s",
			result.Booking.ID, draft.BookingDate.Format(domain.DateFormat), draft.TimeSlot.Start, draft.TimeSlot.End)
	case OutcomeReplayed:
		g.logger.Info("Reserve: replay of key=%s, booking id=%d", draft.IdempotencyKey, result.Booking.ID)
	case OutcomeConflict:
		g.logger.Info("Reserve: conflict on %s %s-%s",
			draft.BookingDate.Format(domain.DateFormat), draft.TimeSlot.Start, draft.TimeSlot.End)
	}

	return result, nil
}

func (g *Guard) reserve(ctx context.Context, draft *domain.Booking) (*Result, error) {
	// 1. Повтор запроса
	existing, err := g.replay(ctx, draft)
	if err != nil || existing != nil {
		return existing, err
	}

	now := g.timeProvider.Now()

	// 2. Освобождаем интервал от истёкших удержаний
	expired, err := g.bookingRepo.FindExpiredHolds(ctx, draft.BookingDate, draft.TimeSlot, now)
	if err != nil {
		return nil, fmt.Errorf("%w: Reserve - find expired holds: %v", ErrInternal, err)
	}
	for _, id := range expired {
		if _, err := g.lifecycle.Apply(ctx, id, domain.EventHoldExpired, lifecycle.Meta{}); err != nil {
			return nil, fmt.Errorf("%w: Reserve - expire hold id=%d: %v", ErrInternal, id, err)
		}
	}

	// 3. Атомарная вставка
	booking := *draft
	booking.ID = 0
	booking.Status = domain.StatusPendingPayment
	holdExpiresAt := now.Add(g.holdWindow)
	booking.HoldExpiresAt = &holdExpiresAt
	booking.CreatedAt = now
	booking.UpdatedAt = now

	created, err := g.bookingRepo.Insert(ctx, &booking)
	if err != nil {
		return nil, fmt.Errorf("%w: Reserve - insert: %v", ErrInternal, err)
	}
	if created {
		return &Result{Booking: &booking, Outcome: OutcomeReserved}, nil
	}

	// 4. Вставка не прошла: параллельный повтор с тем же ключом или занятый слот
	existing, err = g.replay(ctx, draft)
	if err != nil || existing != nil {
		return existing, err
	}

	return &Result{Outcome: OutcomeConflict}, nil
}

// replay возвращает ранее созданное бронирование для ключа идемпотентности или nil
func (g *Guard) replay(ctx context.Context, draft *domain.Booking) (*Result, error) {
	existing, err := g.bookingRepo.GetByIdempotencyKey(ctx, draft.IdempotencyKey)
	if errors.Is(err, bookingRepo.ErrBookingNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Reserve - get by idempotency key: %v", ErrInternal, err)
	}

	if existing.CustomerID != draft.CustomerID ||
		existing.BookingDate.Format(domain.DateFormat) != draft.BookingDate.Format(domain.DateFormat) ||
		existing.TimeSlot != draft.TimeSlot {
		return nil, fmt.Errorf("%w: key=%s", ErrIdempotencyKeyReused, draft.IdempotencyKey)
	}

	return &Result{Booking: existing, Outcome: OutcomeReplayed}, nil
}
