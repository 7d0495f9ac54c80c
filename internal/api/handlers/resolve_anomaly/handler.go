package resolve_anomaly

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-GarageBooking/internal/api/handlers"
	"github.com/m04kA/SMC-GarageBooking/internal/api/middleware"
	"github.com/m04kA/SMC-GarageBooking/internal/service/anomalies"
	"github.com/m04kA/SMC-GarageBooking/internal/service/anomalies/models"
)

const (
	msgInvalidAnomalyID   = "некорректный ID аномалии"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidNote        = "укажите комментарий к разбору"
	msgMissingUser        = "отсутствует пользователь"
	msgNotFound           = "аномалия не найдена"
	msgForbidden          = "доступ запрещен"
	msgAlreadyResolved    = "аномалия уже разобрана"
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

// Handle PATCH /api/v1/anomalies/{anomalyId}/resolve
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	anomalyID, err := handlers.PathInt64(r, "anomalyId")
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidAnomalyID)
		return
	}

	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgMissingUser)
		return
	}

	var req models.ResolveRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /anomalies/{id}/resolve - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	anomaly, err := h.service.Resolve(r.Context(), anomalyID, &req, principal)
	if err != nil {
		switch {
		case errors.Is(err, anomalies.ErrAccessDenied):
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, anomalies.ErrInvalidInput):
			handlers.RespondBadRequest(w, msgInvalidNote)

		case errors.Is(err, anomalies.ErrAnomalyNotFound):
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, anomalies.ErrAlreadyResolved):
			handlers.RespondConflict(w, msgAlreadyResolved)

		default:
			h.logger.Error("PATCH /anomalies/{id}/resolve - Failed to resolve: anomaly_id=%d, error=%v", anomalyID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /anomalies/{id}/resolve - Anomaly resolved: anomaly_id=%d, user_id=%d", anomalyID, principal.UserID)
	handlers.RespondJSON(w, http.StatusOK, anomaly)
}
