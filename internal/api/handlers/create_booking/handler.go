package create_booking

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-GarageBooking/internal/api/handlers"
	"github.com/m04kA/SMC-GarageBooking/internal/api/middleware"
	createBooking "github.com/m04kA/SMC-GarageBooking/internal/usecase/create_booking"
)

// HeaderIdempotencyKey ключ повтора запроса; если клиент его не передал, генерируется новый
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidTime        = "некорректный формат времени начала, ожидается HH:MM"
	msgInvalidInput       = "некорректные данные бронирования"
	msgMissingUser        = "отсутствует пользователь"
	msgForbidden          = "нельзя создать бронирование для другого клиента"
	msgSlotNotAvailable   = "выбранный временной слот недоступен"
	msgKeyReused          = "ключ идемпотентности уже использован для другого бронирования"
	msgServiceNotFound    = "услуга не найдена"
	msgGarageClosed       = "гараж закрыт в выбранную дату"
	msgInvalidBookingDate = "некорректная дата бронирования"
	msgDateTooFar         = "дата бронирования слишком далеко в будущем"
	msgInvalidTimeSlot    = "некорректный временной слот"
	msgTooLateToBook      = "слишком поздно для бронирования этого слота"
	msgGateway            = "не удалось инициировать оплату, попробуйте позже"
)

type Handler struct {
	useCase CreateBookingUseCase
	logger  Logger
}

func NewHandler(useCase CreateBookingUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/bookings
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		h.logger.Warn("POST /bookings - Missing principal")
		handlers.RespondUnauthorized(w, msgMissingUser)
		return
	}

	var req CreateBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if key == "" {
		key = uuid.NewString()
	}

	useCaseReq, err := req.ToUseCaseRequest(principal, key)
	if err != nil {
		h.logger.Warn("POST /bookings - Invalid start time: user_id=%d, start_time=%q", principal.UserID, req.StartTime)
		handlers.RespondBadRequest(w, msgInvalidTime)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, createBooking.ErrSlotNotAvailable):
			h.logger.Warn("POST /bookings - Slot not available: user_id=%d, date=%s, start=%s", principal.UserID, req.Date, req.StartTime)
			handlers.RespondConflict(w, msgSlotNotAvailable)

		case errors.Is(err, createBooking.ErrIdempotencyKeyReused):
			h.logger.Warn("POST /bookings - Idempotency key reused: user_id=%d, key=%s", principal.UserID, key)
			handlers.RespondConflict(w, msgKeyReused)

		case errors.Is(err, createBooking.ErrAccessDenied):
			h.logger.Warn("POST /bookings - Access denied: user_id=%d", principal.UserID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, createBooking.ErrServiceNotFound):
			h.logger.Warn("POST /bookings - Service not found: service_id=%d", req.ServiceID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, createBooking.ErrGarageClosed):
			handlers.RespondBadRequest(w, msgGarageClosed)

		case errors.Is(err, createBooking.ErrInvalidDate):
			handlers.RespondBadRequest(w, msgInvalidBookingDate)

		case errors.Is(err, createBooking.ErrDateTooFarInFuture):
			handlers.RespondBadRequest(w, msgDateTooFar)

		case errors.Is(err, createBooking.ErrInvalidTimeSlot):
			handlers.RespondBadRequest(w, msgInvalidTimeSlot)

		case errors.Is(err, createBooking.ErrTooLateToBook):
			handlers.RespondBadRequest(w, msgTooLateToBook)

		case errors.Is(err, createBooking.ErrInvalidInput):
			h.logger.Warn("POST /bookings - Invalid input: user_id=%d, error=%v", principal.UserID, err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, createBooking.ErrGateway):
			h.logger.Error("POST /bookings - Payment initiation failed: user_id=%d, error=%v", principal.UserID, err)
			handlers.RespondBadGateway(w, msgGateway)

		default:
			h.logger.Error("POST /bookings - Failed to create booking: user_id=%d, error=%v", principal.UserID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	response := FromUseCaseResponse(result)

	if result.Replayed {
		h.logger.Info("POST /bookings - Replayed: booking_id=%d, key=%s", result.Booking.ID, key)
		handlers.RespondJSON(w, http.StatusOK, response)
		return
	}

	h.logger.Info("POST /bookings - Booking created: booking_id=%d, customer_id=%d, date=%s, start=%s",
		result.Booking.ID, result.Booking.CustomerID, req.Date, req.StartTime)
	handlers.RespondJSON(w, http.StatusCreated, response)
}
