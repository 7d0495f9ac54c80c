package create_booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	paymentRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/payment"
	catalogClient "github.com/m04kA/SMC-GarageBooking/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-GarageBooking/internal/integrations/mpesa"
	"github.com/m04kA/SMC-GarageBooking/internal/service/lifecycle"
	"github.com/m04kA/SMC-GarageBooking/internal/service/reservation"
	"github.com/m04kA/SMC-GarageBooking/internal/service/schedule"
	"github.com/m04kA/SMC-GarageBooking/pkg/ptr"
)

const paymentDescription = "Garage booking"

// UseCase use case для создания бронирования с запросом оплаты
type UseCase struct {
	validator     DateValidator
	slots         SlotResolver
	catalogClient CatalogClient
	guard         ReservationGuard
	bookingRepo   BookingRepository
	paymentRepo   PaymentRepository
	gateway       PaymentGateway
	lifecycle     Lifecycle
	txManager     TransactionManager
	minNotice     time.Duration
	timeProvider  TimeProvider
	logger        Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	validator DateValidator,
	slots SlotResolver,
	catalogClient CatalogClient,
	guard ReservationGuard,
	bookingRepo BookingRepository,
	paymentRepo PaymentRepository,
	gateway PaymentGateway,
	lifecycle Lifecycle,
	txManager TransactionManager,
	minNotice time.Duration,
	timeProvider TimeProvider,
	logger Logger,
) *UseCase {
	if timeProvider == nil {
		timeProvider = &RealTimeProvider{}
	}
	return &UseCase{
		validator:     validator,
		slots:         slots,
		catalogClient: catalogClient,
		guard:         guard,
		bookingRepo:   bookingRepo,
		paymentRepo:   paymentRepo,
		gateway:       gateway,
		lifecycle:     lifecycle,
		txManager:     txManager,
		minNotice:     minNotice,
		timeProvider:  timeProvider,
		logger:        logger,
	}
}

// Execute выполняет use case создания бронирования.
//
// Слот занимается атомарно (pending_payment), затем создаётся платёж и отправляется STK push.
// Если шлюз не принял запрос, платёж и бронирование переводятся в failed, слот освобождается.
// Повтор с тем же ключом идемпотентности возвращает сохранённые бронирование и платёж без нового запроса в шлюз.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateBooking: user=%d, service=%d, date=%s, time=%s, key=%s",
		req.Principal.UserID, req.ServiceID, req.Date, req.StartTime, req.IdempotencyKey)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateBooking: validation failed: %v", err)
		return nil, err
	}

	customerID, err := resolveCustomer(req)
	if err != nil {
		uc.logger.Warn("CreateBooking: %v", err)
		return nil, err
	}

	// 2. Проверяем дату
	date, err := uc.validator.Validate(req.Date)
	if err != nil {
		uc.logger.Warn("CreateBooking: date %s rejected: %v", req.Date, err)
		if errors.Is(err, schedule.ErrDateTooFar) {
			return nil, fmt.Errorf("%w: %v", ErrDateTooFarInFuture, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}

	// 3. Проверяем слот по сетке и рабочим часам
	timeSlot, err := uc.slots.SlotAt(date, req.StartTime)
	if err != nil {
		uc.logger.Warn("CreateBooking: slot %s on %s rejected: %v", req.StartTime, req.Date, err)
		if errors.Is(err, schedule.ErrClosed) {
			return nil, fmt.Errorf("%w: %v", ErrGarageClosed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimeSlot, err)
	}

	// 4. Минимальное время до записи
	now := uc.timeProvider.Now()
	if err := validateBookingTime(date, req.StartTime, now, uc.minNotice); err != nil {
		uc.logger.Warn("CreateBooking: booking time validation failed: %v", err)
		return nil, err
	}

	// 5. Телефон проверяем до резервирования, чтобы не занимать слот зря
	if _, err := domain.NormalizePhone(req.Phone); err != nil {
		uc.logger.Warn("CreateBooking: invalid phone for user=%d", req.Principal.UserID)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// 6. Получаем услугу
	service, err := uc.catalogClient.GetService(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalogClient.ErrServiceNotFound) {
			uc.logger.Warn("CreateBooking: service id=%d not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("CreateBooking: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}
	if !service.IsActive {
		uc.logger.Warn("CreateBooking: service id=%d is not active", req.ServiceID)
		return nil, fmt.Errorf("%w: service id=%d is not active", ErrServiceNotFound, req.ServiceID)
	}

	// 7. Занимаем слот
	draft := &domain.Booking{
		CustomerID:     customerID,
		ServiceID:      service.ID,
		StaffID:        req.StaffID,
		BookingDate:    date,
		TimeSlot:       timeSlot,
		ServiceName:    service.Name,
		ServicePrice:   service.Price,
		Notes:          req.Notes,
		IdempotencyKey: req.IdempotencyKey,
	}

	reserved, err := uc.guard.Reserve(ctx, draft)
	if err != nil {
		if errors.Is(err, reservation.ErrIdempotencyKeyReused) {
			uc.logger.Warn("CreateBooking: %v", err)
			return nil, fmt.Errorf("%w: %v", ErrIdempotencyKeyReused, err)
		}
		uc.logger.Error("CreateBooking: failed to reserve slot: %v", err)
		return nil, fmt.Errorf("%w: failed to reserve slot: %v", ErrInternal, err)
	}

	switch reserved.Outcome {
	case reservation.OutcomeConflict:
		uc.logger.Warn("CreateBooking: slot %s %s is taken", req.Date, req.StartTime)
		return nil, ErrSlotNotAvailable
	case reservation.OutcomeReplayed:
		return uc.replay(ctx, reserved.Booking, req.Phone)
	}

	// 8. Запрашиваем оплату
	return uc.requestPayment(ctx, reserved.Booking, req.Phone, false)
}

// replay возвращает результат ранее выполненного запроса.
// Если исходный запрос прервался до создания платежа, а удержание ещё действует, оплата запрашивается сейчас.
func (uc *UseCase) replay(ctx context.Context, booking *domain.Booking, phone string) (*Response, error) {
	now := uc.timeProvider.Now()

	payment, err := uc.paymentRepo.GetLatestByBooking(ctx, booking.ID)
	if err == nil {
		uc.logger.Info("CreateBooking: replay of booking id=%d, payment id=%d (%s)", booking.ID, payment.ID, payment.Status)
		return &Response{Booking: booking.Snapshot(now), Payment: payment, Replayed: true}, nil
	}
	if !errors.Is(err, paymentRepo.ErrPaymentNotFound) {
		uc.logger.Error("CreateBooking: failed to get payment of booking id=%d: %v", booking.ID, err)
		return nil, fmt.Errorf("%w: failed to get payment: %v", ErrInternal, err)
	}

	if booking.EffectiveStatus(now) != domain.StatusPendingPayment {
		uc.logger.Info("CreateBooking: replay of booking id=%d in status %s without payment", booking.ID, booking.EffectiveStatus(now))
		return &Response{Booking: booking.Snapshot(now), Replayed: true}, nil
	}

	return uc.requestPayment(ctx, booking, phone, true)
}

// requestPayment создает платёж и отправляет STK push
func (uc *UseCase) requestPayment(ctx context.Context, booking *domain.Booking, phone string, replayed bool) (*Response, error) {
	now := uc.timeProvider.Now()

	// 1. Создаём платёж: в платеже сохраняются только маска и хеш телефона
	payment, msisdn, err := domain.NewPayment(booking.ID, booking.CustomerID, booking.ServicePrice, phone, now)
	if err != nil {
		uc.logger.Warn("CreateBooking: invalid payment for booking id=%d: %v", booking.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := uc.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, paymentRepo.ErrActivePaymentExists) {
			// Параллельный повтор уже создал платёж
			existing, getErr := uc.paymentRepo.GetLatestByBooking(ctx, booking.ID)
			if getErr != nil {
				return nil, fmt.Errorf("%w: failed to get payment: %v", ErrInternal, getErr)
			}
			return &Response{Booking: booking.Snapshot(now), Payment: existing, Replayed: true}, nil
		}
		uc.logger.Error("CreateBooking: failed to create payment for booking id=%d: %v", booking.ID, err)
		return nil, fmt.Errorf("%w: failed to create payment: %v", ErrInternal, err)
	}

	// 2. STK push вне транзакции
	push, err := uc.gateway.STKPush(ctx, &mpesa.STKPushRequest{
		PhoneNumber:      msisdn,
		Amount:           payment.Amount,
		AccountReference: fmt.Sprintf("BK%d", booking.ID),
		Description:      paymentDescription,
	})
	if err != nil {
		uc.logger.Error("CreateBooking: STK push for booking id=%d failed: %v", booking.ID, err)
		if failErr := uc.failPayment(ctx, booking, payment, err); failErr != nil {
			uc.logger.Error("CreateBooking: failed to release booking id=%d: %v", booking.ID, failErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	// 3. Сохраняем идентификаторы шлюза для сверки уведомления.
	// Идентификаторы пишутся при любом статусе платежа: запрос уже ушёл на телефон клиента.
	status, err := uc.paymentRepo.MarkProcessing(ctx, payment.ID, push.MerchantRequestID, push.CheckoutRequestID, now)
	if err != nil {
		uc.logger.Error("CreateBooking: failed to store checkout=%s for payment id=%d: %v", push.CheckoutRequestID, payment.ID, err)
		return nil, fmt.Errorf("%w: failed to mark payment processing: %v", ErrInternal, err)
	}

	payment.Status = status
	payment.MerchantRequestID = ptr.Ptr(push.MerchantRequestID)
	payment.CheckoutRequestID = ptr.Ptr(push.CheckoutRequestID)

	if status != domain.PaymentProcessing {
		// Бронирование изменилось, пока шёл STK push (отмена, истечение удержания)
		current, err := uc.bookingRepo.GetByID(ctx, booking.ID)
		if err != nil {
			uc.logger.Error("CreateBooking: failed to reload booking id=%d: %v", booking.ID, err)
			return nil, fmt.Errorf("%w: failed to reload booking: %v", ErrInternal, err)
		}
		uc.logger.Warn("CreateBooking: booking id=%d became %s during STK push, payment id=%d is %s, checkout=%s",
			current.ID, current.EffectiveStatus(now), payment.ID, status, push.CheckoutRequestID)
		return &Response{Booking: current.Snapshot(now), Payment: payment, Replayed: replayed}, nil
	}

	uc.logger.Info("CreateBooking: booking id=%d awaiting payment id=%d, checkout=%s",
		booking.ID, payment.ID, push.CheckoutRequestID)

	return &Response{Booking: booking.Snapshot(now), Payment: payment, Replayed: replayed}, nil
}

// failPayment переводит платёж и бронирование в failed после отказа шлюза.
// Блокировки берутся в том же порядке, что и при сверке: бронирование, затем платёж.
func (uc *UseCase) failPayment(ctx context.Context, booking *domain.Booking, payment *domain.Payment, cause error) error {
	now := uc.timeProvider.Now()

	return uc.txManager.Do(ctx, func(ctx context.Context) error {
		if _, err := uc.bookingRepo.GetForUpdate(ctx, booking.ID); err != nil {
			return err
		}

		err := uc.paymentRepo.MarkFailed(ctx, payment.ID, truncate(cause.Error(), 255), now)
		if err != nil && !errors.Is(err, paymentRepo.ErrStatusChanged) {
			return err
		}

		_, err = uc.lifecycle.Apply(ctx, booking.ID, domain.EventPaymentFailed, lifecycle.Meta{
			Reason: ptr.Ptr("payment initiation failed"),
		})
		return err
	})
}

// truncate обрезает строку до max символов, не разрывая руны
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
