package reconcile_payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	paymentRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/payment"
	"github.com/m04kA/SMC-GarageBooking/internal/service/lifecycle"
	"github.com/m04kA/SMC-GarageBooking/pkg/ptr"
	"github.com/m04kA/SMC-GarageBooking/pkg/tracing"
)

// UseCase сверка асинхронного уведомления платёжного шлюза с платежом и бронированием
type UseCase struct {
	paymentRepo  PaymentRepository
	bookingRepo  BookingRepository
	anomalyRepo  AnomalyRepository
	outboxRepo   OutboxRepository
	lifecycle    Lifecycle
	txManager    TransactionManager
	metrics      Metrics
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	paymentRepo PaymentRepository,
	bookingRepo BookingRepository,
	anomalyRepo AnomalyRepository,
	outboxRepo OutboxRepository,
	lifecycle Lifecycle,
	txManager TransactionManager,
	metrics Metrics,
	timeProvider TimeProvider,
	logger Logger,
) *UseCase {
	if timeProvider == nil {
		timeProvider = &RealTimeProvider{}
	}
	return &UseCase{
		paymentRepo:  paymentRepo,
		bookingRepo:  bookingRepo,
		anomalyRepo:  anomalyRepo,
		outboxRepo:   outboxRepo,
		lifecycle:    lifecycle,
		txManager:    txManager,
		metrics:      metrics,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Execute обрабатывает уведомление.
//
// Не найденный платёж фиксируется как orphan_notification. Повтор уведомления для платежа
// в терминальном статусе ничего не меняет. Успешная оплата бронирования, которое уже покинуло
// pending_payment, не восстанавливает его, а записывается как paid_for_unheld_slot.
// Ошибка возвращается только при сбое хранилища; во всех остальных случаях уведомление принято.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := tracing.Start(ctx, "reconcile_payment.Execute")
	defer span.End()

	if req == nil || req.Notification == nil || req.Notification.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: checkout request id is required", ErrInvalidInput)
	}
	n := req.Notification

	span.SetAttributes(
		attribute.String("mpesa.checkout_request_id", n.CheckoutRequestID),
		attribute.Int("mpesa.result_code", n.ResultCode),
	)

	uc.logger.Info("ReconcilePayment: checkout=%s, result=%d (%s)", n.CheckoutRequestID, n.ResultCode, n.ResultDesc)

	resp, err := uc.execute(ctx, n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.metrics.IncReconciliation("error")
		uc.logger.Error("ReconcilePayment: checkout=%s failed: %v", n.CheckoutRequestID, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("reconciliation.outcome", string(resp.Outcome)))
	uc.metrics.IncReconciliation(string(resp.Outcome))
	if resp.Anomaly != nil {
		uc.metrics.IncAnomaly(string(resp.Anomaly.Kind))
		uc.logger.Warn("ReconcilePayment: anomaly id=%d kind=%s checkout=%s: %s",
			resp.Anomaly.ID, resp.Anomaly.Kind, n.CheckoutRequestID, resp.Anomaly.Description)
	}

	return resp, nil
}

func (uc *UseCase) execute(ctx context.Context, n *domain.PaymentNotification) (*Response, error) {
	// 1. Ищем платёж без блокировок
	found, err := uc.paymentRepo.GetByCheckoutRequestID(ctx, n.CheckoutRequestID)
	if errors.Is(err, paymentRepo.ErrPaymentNotFound) {
		return uc.orphan(ctx, n)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Execute - get payment: %v", ErrInternal, err)
	}

	var resp *Response
	err = uc.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = uc.reconcile(ctx, found.ID, found.BookingID, n)
		return err
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (uc *UseCase) reconcile(ctx context.Context, paymentID, bookingID int64, n *domain.PaymentNotification) (*Response, error) {
	// 2. Блокируем бронирование, затем платёж и перечитываем их состояние
	booking, err := uc.bookingRepo.GetForUpdate(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: reconcile - lock booking id=%d: %v", ErrInternal, bookingID, err)
	}
	payment, err := uc.paymentRepo.GetForUpdate(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: reconcile - lock payment id=%d: %v", ErrInternal, paymentID, err)
	}

	now := uc.timeProvider.Now()

	// 3. Результат уже зафиксирован: повтор доставки
	if payment.Status.IsTerminal() {
		return uc.duplicate(ctx, payment, booking, n)
	}

	if n.IsSuccess() && n.Amount != nil && n.Amount.LessThan(payment.Amount.Ceil()) {
		uc.logger.Warn("ReconcilePayment: payment id=%d paid %s of %s", payment.ID, n.Amount.String(), payment.Amount.String())
	}

	// 4. Применяем результат к платежу при неизменном статусе
	payment.ApplyNotification(n, now)
	applied, err := uc.paymentRepo.ApplyNotification(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("%w: reconcile - apply notification: %v", ErrInternal, err)
	}
	if !applied {
		current, err := uc.paymentRepo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return nil, fmt.Errorf("%w: reconcile - reload payment: %v", ErrInternal, err)
		}
		return uc.duplicate(ctx, current, booking, n)
	}

	// 5. Переводим бронирование
	event := domain.EventPaymentFailed
	meta := lifecycle.Meta{Reason: ptr.Ptr(n.ResultDesc)}
	if n.IsSuccess() {
		event = domain.EventPaymentCompleted
		meta = lifecycle.Meta{}
	}

	transition, err := uc.lifecycle.Apply(ctx, booking.ID, event, meta)
	illegal := errors.Is(err, lifecycle.ErrIllegalTransition)
	if err != nil && !illegal {
		return nil, fmt.Errorf("%w: reconcile - booking transition: %v", ErrInternal, err)
	}

	bookingStatus := booking.Status
	if transition != nil {
		bookingStatus = transition.To
	}

	resp := &Response{
		Outcome:       OutcomeApplied,
		PaymentID:     ptr.Ptr(payment.ID),
		BookingID:     ptr.Ptr(booking.ID),
		PaymentStatus: ptr.Ptr(payment.Status),
		BookingStatus: ptr.Ptr(bookingStatus),
	}

	// 6. Оплата пришла, а слот уже не удерживается
	if n.IsSuccess() && (illegal || !transition.Applied) {
		anomaly, err := uc.record(ctx, domain.AnomalyPaidForUnheldSlot, payment, bookingStatus, n,
			fmt.Sprintf("payment completed with receipt %s while booking id=%d is %s; refund required",
				receiptOf(n), booking.ID, bookingStatus))
		if err != nil {
			return nil, err
		}
		resp.Outcome = OutcomeAnomaly
		resp.Anomaly = anomaly
		return resp, nil
	}

	uc.logger.Info("ReconcilePayment: payment id=%d -> %s, booking id=%d -> %s",
		payment.ID, payment.Status, booking.ID, bookingStatus)
	return resp, nil
}

// duplicate проверяет повтор уведомления для платежа с зафиксированным результатом
func (uc *UseCase) duplicate(ctx context.Context, payment *domain.Payment, booking *domain.Booking, n *domain.PaymentNotification) (*Response, error) {
	now := uc.timeProvider.Now()
	bookingStatus := booking.EffectiveStatus(now)

	resp := &Response{
		Outcome:       OutcomeDuplicate,
		PaymentID:     ptr.Ptr(payment.ID),
		BookingID:     ptr.Ptr(booking.ID),
		PaymentStatus: ptr.Ptr(payment.Status),
		BookingStatus: ptr.Ptr(bookingStatus),
	}

	var (
		kind        domain.AnomalyKind
		description string
	)
	switch {
	case n.IsDuplicateCharge(payment):
		kind = domain.AnomalyDuplicateCharge
		description = fmt.Sprintf("payment id=%d already paid with receipt %s, new receipt %s",
			payment.ID, ptr.Deref(payment.ReceiptNumber, ""), n.ReceiptNumber)
	case !n.IsConsistentWith(payment):
		kind = domain.AnomalyInconsistentDuplicate
		description = fmt.Sprintf("payment id=%d is %s, notification result %d (%s)",
			payment.ID, payment.Status, n.ResultCode, n.ResultDesc)
	default:
		uc.logger.Info("ReconcilePayment: duplicate notification for payment id=%d (%s)", payment.ID, payment.Status)
		return resp, nil
	}

	anomaly, err := uc.record(ctx, kind, payment, bookingStatus, n, description)
	if err != nil {
		return nil, err
	}
	resp.Outcome = OutcomeAnomaly
	resp.Anomaly = anomaly
	return resp, nil
}

// orphan фиксирует уведомление, для которого нет платежа.
// Повтор того же уведомления возвращает уже записанную аномалию без нового события
func (uc *UseCase) orphan(ctx context.Context, n *domain.PaymentNotification) (*Response, error) {
	anomaly := uc.newAnomaly(domain.AnomalyOrphanNotification, nil, "", n,
		fmt.Sprintf("no payment for checkout request %s (merchant request %s)", n.CheckoutRequestID, n.MerchantRequestID))

	err := uc.txManager.Do(ctx, func(ctx context.Context) error {
		created, err := uc.anomalyRepo.CreateOrphan(ctx, anomaly)
		if err != nil {
			return fmt.Errorf("%w: orphan - create anomaly: %v", ErrInternal, err)
		}
		if !created {
			uc.logger.Info("ReconcilePayment: orphan notification for checkout=%s already recorded as anomaly id=%d",
				n.CheckoutRequestID, anomaly.ID)
			return nil
		}
		return uc.publish(ctx, anomaly)
	})
	if err != nil {
		return nil, err
	}

	return &Response{Outcome: OutcomeOrphan, Anomaly: anomaly}, nil
}

// record сохраняет аномалию и событие о ней в текущей транзакции
func (uc *UseCase) record(
	ctx context.Context,
	kind domain.AnomalyKind,
	payment *domain.Payment,
	bookingStatus domain.BookingStatus,
	n *domain.PaymentNotification,
	description string,
) (*domain.ReconciliationAnomaly, error) {
	anomaly := uc.newAnomaly(kind, payment, bookingStatus, n, description)

	if err := uc.anomalyRepo.Create(ctx, anomaly); err != nil {
		return nil, fmt.Errorf("%w: record - create anomaly: %v", ErrInternal, err)
	}
	if err := uc.publish(ctx, anomaly); err != nil {
		return nil, err
	}

	return anomaly, nil
}

func (uc *UseCase) newAnomaly(
	kind domain.AnomalyKind,
	payment *domain.Payment,
	bookingStatus domain.BookingStatus,
	n *domain.PaymentNotification,
	description string,
) *domain.ReconciliationAnomaly {
	anomaly := &domain.ReconciliationAnomaly{
		Kind:              kind,
		CheckoutRequestID: ptr.Ptr(n.CheckoutRequestID),
		Description:       description,
		RawPayload:        n.RawPayload,
		CreatedAt:         uc.timeProvider.Now(),
	}
	if payment != nil {
		anomaly.PaymentID = ptr.Ptr(payment.ID)
		anomaly.BookingID = ptr.Ptr(payment.BookingID)
		anomaly.PaymentStatus = ptr.Ptr(payment.Status)
	}
	if bookingStatus != "" {
		anomaly.BookingStatus = ptr.Ptr(bookingStatus)
	}
	return anomaly
}

// publish пишет событие об аномалии в outbox текущей транзакции
func (uc *UseCase) publish(ctx context.Context, anomaly *domain.ReconciliationAnomaly) error {
	event, err := domain.NewOutboxEvent(domain.AggregateAnomaly, anomaly.ID, domain.EventTypeReconciliationAnomaly,
		domain.AnomalyRecordedPayload{
			AnomalyID:  anomaly.ID,
			Kind:       string(anomaly.Kind),
			PaymentID:  anomaly.PaymentID,
			BookingID:  anomaly.BookingID,
			OccurredAt: anomaly.CreatedAt,
		}, anomaly.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: publish - build event: %v", ErrInternal, err)
	}
	if err := uc.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("%w: publish - write outbox: %v", ErrInternal, err)
	}

	return nil
}

func receiptOf(n *domain.PaymentNotification) string {
	if strings.TrimSpace(n.ReceiptNumber) == "" {
		return "<none>"
	}
	return n.ReceiptNumber
}
