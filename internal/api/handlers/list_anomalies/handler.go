package list_anomalies

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-GarageBooking/internal/api/handlers"
	"github.com/m04kA/SMC-GarageBooking/internal/api/middleware"
	"github.com/m04kA/SMC-GarageBooking/internal/service/anomalies"
)

const (
	msgInvalidParams = "некорректные параметры запроса"
	msgMissingUser   = "отсутствует пользователь"
	msgForbidden     = "доступ запрещен"
)

type Handler struct {
	service AnomalyService
	logger  Logger
}

func NewHandler(service AnomalyService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/anomalies
// Query params: resolved, kind, limit (опционально)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgMissingUser)
		return
	}

	serviceReq, err := ToServiceRequest(r.URL.Query())
	if err != nil {
		h.logger.Warn("GET /anomalies - Invalid parameters: %v", err)
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}

	result, err := h.service.List(r.Context(), serviceReq, principal)
	if err != nil {
		switch {
		case errors.Is(err, anomalies.ErrAccessDenied):
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, anomalies.ErrInvalidInput):
			handlers.RespondBadRequest(w, msgInvalidParams)

		default:
			h.logger.Error("GET /anomalies - Failed to list anomalies: %v", err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /anomalies - Anomalies retrieved: count=%d", len(result.Anomalies))
	handlers.RespondJSON(w, http.StatusOK, result)
}
