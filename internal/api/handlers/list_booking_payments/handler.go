package list_booking_payments

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-GarageBooking/internal/api/handlers"
	"github.com/m04kA/SMC-GarageBooking/internal/api/middleware"
	"github.com/m04kA/SMC-GarageBooking/internal/service/payments"
	"github.com/m04kA/SMC-GarageBooking/internal/service/payments/models"
)

const (
	msgInvalidBookingID = "некорректный ID бронирования"
	msgMissingUser      = "отсутствует пользователь"
	msgNotFound         = "бронирование не найдено"
	msgForbidden        = "доступ запрещен"
)

// PaymentListResponse HTTP response model
type PaymentListResponse struct {
	Payments []*models.PaymentResponse `json:"payments"`
}

type Handler struct {
	service PaymentService
	logger  Logger
}

func NewHandler(service PaymentService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/bookings/{bookingId}/payments
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID, err := handlers.PathInt64(r, "bookingId")
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgMissingUser)
		return
	}

	result, err := h.service.ListByBooking(r.Context(), bookingID, principal)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrBookingNotFound):
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, payments.ErrAccessDenied):
			handlers.RespondForbidden(w, msgForbidden)

		default:
			h.logger.Error("GET /bookings/{id}/payments - Failed to list payments: booking_id=%d, error=%v", bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	if result == nil {
		result = []*models.PaymentResponse{}
	}

	h.logger.Info("GET /bookings/{id}/payments - Payments retrieved: booking_id=%d, count=%d", bookingID, len(result))
	handlers.RespondJSON(w, http.StatusOK, PaymentListResponse{Payments: result})
}
