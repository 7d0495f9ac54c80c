package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	bookingRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/booking"
)

// Meta сопровождающие данные перехода
type Meta struct {
	Reason *string
	Actor  *int64
}

// Result итог применения события.
// Applied=false без ошибки означает, что бронирование уже в терминальном статусе.
type Result struct {
	Booking *domain.Booking
	From    domain.BookingStatus
	To      domain.BookingStatus
	Applied bool
	Expired bool // удержание истекло и было материализовано в failed в этом вызове
}

// Machine единственный путь изменения статуса бронирования.
// Строка бронирования блокируется на время транзакции, поэтому переходы одного
// бронирования сериализуются; побочные эффекты пишутся в той же транзакции.
type Machine struct {
	bookingRepo  BookingRepository
	paymentRepo  PaymentRepository
	outboxRepo   OutboxRepository
	cache        AvailabilityCache
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
}

// NewMachine создает машину состояний бронирований
func NewMachine(
	bookingRepo BookingRepository,
	paymentRepo PaymentRepository,
	outboxRepo OutboxRepository,
	cache AvailabilityCache,
	txManager TransactionManager,
	timeProvider TimeProvider,
	logger Logger,
) *Machine {
	if timeProvider == nil {
		timeProvider = &RealTimeProvider{}
	}
	return &Machine{
		bookingRepo:  bookingRepo,
		paymentRepo:  paymentRepo,
		outboxRepo:   outboxRepo,
		cache:        cache,
		txManager:    txManager,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Apply применяет событие к бронированию.
//
// Истёкшее удержание сначала материализуется в failed, затем применяется событие.
// Событие для терминального статуса ничего не меняет. Недопустимое событие для
// нетерминального статуса возвращает ErrIllegalTransition.
func (m *Machine) Apply(ctx context.Context, bookingID int64, event domain.BookingEvent, meta Meta) (*Result, error) {
	var result *Result

	err := m.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = m.apply(ctx, bookingID, event, meta)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.Expired || result.Applied {
		if err := m.cache.Invalidate(ctx, result.Booking.BookingDate); err != nil {
			m.logger.Warn("Lifecycle: failed to invalidate availability cache for %s: %v",
				result.Booking.BookingDate.Format(domain.DateFormat), err)
		}
	}

	return result, nil
}

func (m *Machine) apply(ctx context.Context, bookingID int64, event domain.BookingEvent, meta Meta) (*Result, error) {
	// 1. Блокируем бронирование
	booking, err := m.bookingRepo.GetForUpdate(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			return nil, fmt.Errorf("%w: id=%d", ErrBookingNotFound, bookingID)
		}
		return nil, fmt.Errorf("%w: Apply - get booking: %v", ErrInternal, err)
	}

	now := m.timeProvider.Now()
	result := &Result{Booking: booking, From: booking.Status, To: booking.Status}

	// 2. Материализуем истёкшее удержание
	if booking.IsHoldExpired(now) {
		expiry, err := booking.Apply(domain.EventHoldExpired, now)
		if err != nil {
			return nil, fmt.Errorf("%w: Apply - expire hold: %v", ErrInternal, err)
		}
		if err := m.persist(ctx, booking, expiry, Meta{}); err != nil {
			return nil, err
		}
		result.Expired = true
		result.To = booking.Status

		m.logger.Info("Lifecycle: booking id=%d hold expired, %s -> %s", booking.ID, expiry.From, expiry.To)

		if event == domain.EventHoldExpired {
			result.Applied = true
			return result, nil
		}
	}

	// 3. Вычисляем переход
	transition, err := booking.Apply(event, now)
	if err != nil {
		if errors.Is(err, domain.ErrIllegalTransition) {
			return nil, fmt.Errorf("%w: %v", ErrIllegalTransition, err)
		}
		return nil, fmt.Errorf("%w: Apply - transition: %v", ErrInternal, err)
	}

	if !transition.Applied {
		m.logger.Info("Lifecycle: booking id=%d is %s, event %s ignored", booking.ID, booking.Status, event)
		return result, nil
	}

	if transition.To == domain.StatusCancelled && meta.Reason != nil {
		booking.CancellationReason = meta.Reason
	}

	// 4. Сохраняем статус и побочные эффекты
	if err := m.persist(ctx, booking, transition, meta); err != nil {
		return nil, err
	}

	result.To = transition.To
	result.Applied = true

	m.logger.Info("Lifecycle: booking id=%d %s -> %s (event=%s)", booking.ID, transition.From, transition.To, event)
	return result, nil
}

// persist сохраняет применённый переход, отменяет активные платежи, если слот освобождён,
// и пишет событие в outbox
func (m *Machine) persist(ctx context.Context, booking *domain.Booking, transition domain.TransitionResult, meta Meta) error {
	if err := m.bookingRepo.UpdateStatus(ctx, booking); err != nil {
		return fmt.Errorf("%w: persist - update status: %v", ErrInternal, err)
	}

	if transition.To == domain.StatusFailed || transition.To == domain.StatusCancelled {
		cancelled, err := m.paymentRepo.CancelActiveByBooking(ctx, booking.ID, booking.UpdatedAt)
		if err != nil {
			return fmt.Errorf("%w: persist - cancel active payments: %v", ErrInternal, err)
		}
		if cancelled > 0 {
			m.logger.Info("Lifecycle: cancelled %d active payment(s) of booking id=%d", cancelled, booking.ID)
		}
	}

	payload := domain.BookingStatusChangedPayload{
		BookingID:   booking.ID,
		CustomerID:  booking.CustomerID,
		BookingDate: booking.BookingDate.Format(domain.DateFormat),
		StartTime:   booking.TimeSlot.Start.String(),
		From:        string(transition.From),
		To:          string(transition.To),
		Reason:      meta.Reason,
		ActorID:     meta.Actor,
		OccurredAt:  booking.UpdatedAt,
	}

	event, err := domain.NewOutboxEvent(domain.AggregateBooking, booking.ID, domain.BookingEventType(transition.To), payload, booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: persist - build event: %v", ErrInternal, err)
	}
	if err := m.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("%w: persist - write outbox: %v", ErrInternal, err)
	}

	return nil
}
