package mpesa_callback

import (
	"net/http"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/api/handlers"
	"github.com/m04kA/SMC-GarageBooking/internal/integrations/mpesa"
	reconcilePayment "github.com/m04kA/SMC-GarageBooking/internal/usecase/reconcile_payment"
)

type Handler struct {
	useCase  ReconcilePaymentUseCase
	location *time.Location
	logger   Logger
}

// NewHandler создает обработчик; location - часовой пояс, в котором шлюз передаёт TransactionDate
func NewHandler(useCase ReconcilePaymentUseCase, location *time.Location, logger Logger) *Handler {
	return &Handler{
		useCase:  useCase,
		location: location,
		logger:   logger,
	}
}

// Handle POST /api/v1/payments/mpesa/callback
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	raw, err := handlers.ReadBody(r)
	if err != nil {
		h.logger.Error("POST /payments/mpesa/callback - Failed to read body: %v", err)
		handlers.RespondJSON(w, http.StatusOK, accepted)
		return
	}

	notification, err := mpesa.ParseCallback(raw, h.location)
	if err != nil {
		h.logger.Warn("POST /payments/mpesa/callback - Malformed callback: %v, payload=%s", err, raw)
		handlers.RespondJSON(w, http.StatusOK, accepted)
		return
	}

	result, err := h.useCase.Execute(r.Context(), &reconcilePayment.Request{Notification: notification})
	if err != nil {
		h.logger.Error("POST /payments/mpesa/callback - Reconciliation failed: checkout_request_id=%s, error=%v",
			notification.CheckoutRequestID, err)
		handlers.RespondJSON(w, http.StatusOK, accepted)
		return
	}

	h.logger.Info("POST /payments/mpesa/callback - Reconciled: checkout_request_id=%s, result_code=%d, outcome=%s",
		notification.CheckoutRequestID, notification.ResultCode, result.Outcome)
	handlers.RespondJSON(w, http.StatusOK, accepted)
}
