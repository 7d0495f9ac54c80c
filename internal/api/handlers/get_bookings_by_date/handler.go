package get_bookings_by_date

import (
	"errors"
	"net/http"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/api/handlers"
	"github.com/m04kA/SMC-GarageBooking/internal/api/middleware"
	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/internal/service/bookings"
)

const (
	msgInvalidDate = "некорректная дата, ожидается YYYY-MM-DD"
	msgMissingUser = "отсутствует пользователь"
	msgForbidden   = "доступ запрещен"
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

// Handle GET /api/v1/bookings?date=YYYY-MM-DD
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(domain.DateFormat, r.URL.Query().Get("date"))
	if err != nil {
		h.logger.Warn("GET /bookings - Invalid date: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDate)
		return
	}

	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgMissingUser)
		return
	}

	result, err := h.service.GetBookingsByDate(r.Context(), date, principal)
	if err != nil {
		if errors.Is(err, bookings.ErrAccessDenied) {
			handlers.RespondForbidden(w, msgForbidden)
			return
		}
		h.logger.Error("GET /bookings - Failed to get bookings: date=%s, error=%v", date.Format(domain.DateFormat), err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("GET /bookings - Bookings retrieved: date=%s, count=%d", date.Format(domain.DateFormat), len(result.Bookings))
	handlers.RespondJSON(w, http.StatusOK, result)
}
