package refund_payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	paymentRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/payment"
	"github.com/m04kA/SMC-GarageBooking/internal/service/lifecycle"
	"github.com/m04kA/SMC-GarageBooking/pkg/ptr"
)

// UseCase use case для возврата оплаты
type UseCase struct {
	paymentRepo  PaymentRepository
	bookingRepo  BookingRepository
	outboxRepo   OutboxRepository
	lifecycle    Lifecycle
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	paymentRepo PaymentRepository,
	bookingRepo BookingRepository,
	outboxRepo OutboxRepository,
	lifecycle Lifecycle,
	txManager TransactionManager,
	timeProvider TimeProvider,
	logger Logger,
) *UseCase {
	if timeProvider == nil {
		timeProvider = &RealTimeProvider{}
	}
	return &UseCase{
		paymentRepo:  paymentRepo,
		bookingRepo:  bookingRepo,
		outboxRepo:   outboxRepo,
		lifecycle:    lifecycle,
		txManager:    txManager,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Execute выполняет возврат.
//
// Платёж должен быть оплачен, сумма возврата не больше суммы платежа. Нетерминальное бронирование
// отменяется; бронирование в работе (in_progress) не меняется, возврат всё равно фиксируется.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("RefundPayment: user=%d, payment=%d, amount=%s", req.Principal.UserID, req.PaymentID, req.Amount.String())

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("RefundPayment: validation failed: %v", err)
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)

	// 2. Находим платёж, чтобы узнать бронирование
	found, err := uc.paymentRepo.GetByID(ctx, req.PaymentID)
	if err != nil {
		if errors.Is(err, paymentRepo.ErrPaymentNotFound) {
			uc.logger.Warn("RefundPayment: payment id=%d not found", req.PaymentID)
			return nil, ErrPaymentNotFound
		}
		uc.logger.Error("RefundPayment: failed to get payment id=%d: %v", req.PaymentID, err)
		return nil, fmt.Errorf("%w: failed to get payment: %v", ErrInternal, err)
	}

	resp := &Response{}

	// 3. Возврат и каскад на бронирование в одной транзакции
	err = uc.txManager.Do(ctx, func(ctx context.Context) error {
		// 3.1. Блокируем бронирование, затем платёж
		booking, err := uc.bookingRepo.GetForUpdate(ctx, found.BookingID)
		if err != nil {
			return fmt.Errorf("%w: Execute - lock booking: %v", ErrInternal, err)
		}
		payment, err := uc.paymentRepo.GetForUpdate(ctx, found.ID)
		if err != nil {
			return fmt.Errorf("%w: Execute - lock payment: %v", ErrInternal, err)
		}

		now := uc.timeProvider.Now()

		// 3.2. Проверяем и фиксируем возврат
		if err := payment.Refund(req.Amount, reason, now); err != nil {
			if errors.Is(err, domain.ErrInvalidRefundAmount) {
				return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
			}
			return fmt.Errorf("%w: %v", ErrNotRefundable, err)
		}
		if err := uc.paymentRepo.SaveRefund(ctx, payment); err != nil {
			if errors.Is(err, paymentRepo.ErrStatusChanged) {
				return fmt.Errorf("%w: payment id=%d changed concurrently", ErrNotRefundable, payment.ID)
			}
			return fmt.Errorf("%w: Execute - save refund: %v", ErrInternal, err)
		}

		event, err := domain.NewOutboxEvent(domain.AggregatePayment, payment.ID, domain.EventTypePaymentRefunded,
			domain.PaymentRefundedPayload{
				PaymentID:    payment.ID,
				BookingID:    payment.BookingID,
				CustomerID:   payment.CustomerID,
				RefundAmount: req.Amount.StringFixed(2),
				Currency:     payment.Currency,
				Reason:       reason,
				OccurredAt:   now,
			}, now)
		if err != nil {
			return fmt.Errorf("%w: Execute - build event: %v", ErrInternal, err)
		}
		if err := uc.outboxRepo.Create(ctx, event); err != nil {
			return fmt.Errorf("%w: Execute - write outbox: %v", ErrInternal, err)
		}

		resp.Payment = payment
		resp.Booking = booking.Snapshot(now)

		// 3.3. Отменяем бронирование, если оно ещё не завершено
		switch status := booking.EffectiveStatus(now); {
		case status.IsTerminal():
			return nil
		case status == domain.StatusInProgress:
			uc.logger.Warn("RefundPayment: booking id=%d is in progress, refund recorded without cancellation", booking.ID)
			return nil
		}

		result, err := uc.lifecycle.Apply(ctx, booking.ID, domain.EventCancel, lifecycle.Meta{
			Reason: ptr.Ptr("refund: " + reason),
			Actor:  ptr.Ptr(req.Principal.UserID),
		})
		if err != nil {
			return fmt.Errorf("%w: Execute - cancel booking: %v", ErrInternal, err)
		}
		resp.Booking = result.Booking
		resp.BookingCancelled = result.Applied
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInternal) {
			uc.logger.Error("RefundPayment: payment id=%d: %v", req.PaymentID, err)
		} else {
			uc.logger.Warn("RefundPayment: payment id=%d rejected: %v", req.PaymentID, err)
		}
		return nil, err
	}

	uc.logger.Info("RefundPayment: payment id=%d refunded %s, booking id=%d is %s",
		resp.Payment.ID, req.Amount.String(), resp.Booking.ID, resp.Booking.Status)

	return resp, nil
}
