package assign_staff

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-GarageBooking/internal/api/handlers"
	"github.com/m04kA/SMC-GarageBooking/internal/api/middleware"
	"github.com/m04kA/SMC-GarageBooking/internal/service/bookings"
	"github.com/m04kA/SMC-GarageBooking/internal/service/bookings/models"
)

const (
	msgInvalidBookingID   = "некорректный ID бронирования"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgMissingUser        = "отсутствует пользователь"
	msgNotFound           = "бронирование не найдено"
	msgForbidden          = "доступ запрещен"
	msgBookingClosed      = "бронирование не активно"
)

type Handler struct {
	service BookingService
	logger  Logger
}

func NewHandler(service BookingService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/bookings/{bookingId}/staff
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

	var req models.AssignStaffRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /bookings/{id}/staff - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	booking, err := h.service.AssignStaff(r.Context(), bookingID, &req, principal)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrBookingNotFound):
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, bookings.ErrAccessDenied):
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, bookings.ErrInvalidInput):
			handlers.RespondBadRequest(w, msgInvalidRequestBody)

		case errors.Is(err, bookings.ErrBookingClosed):
			h.logger.Warn("PATCH /bookings/{id}/staff - Booking closed: booking_id=%d", bookingID)
			handlers.RespondConflict(w, msgBookingClosed)

		default:
			h.logger.Error("PATCH /bookings/{id}/staff - Failed to assign staff: booking_id=%d, error=%v", bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /bookings/{id}/staff - Staff assigned: booking_id=%d, staff_id=%d", bookingID, req.StaffID)
	handlers.RespondJSON(w, http.StatusOK, booking)
}
