package refund_payment

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-GarageBooking/internal/api/handlers"
	"github.com/m04kA/SMC-GarageBooking/internal/api/middleware"
	refundPayment "github.com/m04kA/SMC-GarageBooking/internal/usecase/refund_payment"
)

const (
	msgInvalidPaymentID   = "некорректный ID платежа"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidAmount      = "сумма возврата должна быть больше нуля и не больше суммы платежа"
	msgInvalidInput       = "укажите причину возврата"
	msgMissingUser        = "отсутствует пользователь"
	msgNotFound           = "платёж не найден"
	msgForbidden          = "возврат доступен только сотрудникам"
	msgNotRefundable      = "вернуть можно только оплаченный платёж"
)

type Handler struct {
	useCase RefundPaymentUseCase
	logger  Logger
}

func NewHandler(useCase RefundPaymentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/payments/{paymentId}/refund
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	paymentID, err := handlers.PathInt64(r, "paymentId")
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidPaymentID)
		return
	}

	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgMissingUser)
		return
	}

	var req RefundRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /payments/{id}/refund - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(principal, paymentID)
	if err != nil {
		h.logger.Warn("POST /payments/{id}/refund - Invalid amount %q: %v", req.Amount, err)
		handlers.RespondBadRequest(w, msgInvalidAmount)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, refundPayment.ErrAccessDenied):
			h.logger.Warn("POST /payments/{id}/refund - Access denied: user_id=%d", principal.UserID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, refundPayment.ErrPaymentNotFound):
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, refundPayment.ErrInvalidAmount):
			handlers.RespondBadRequest(w, msgInvalidAmount)

		case errors.Is(err, refundPayment.ErrInvalidInput):
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, refundPayment.ErrNotRefundable):
			h.logger.Warn("POST /payments/{id}/refund - Not refundable: payment_id=%d", paymentID)
			handlers.RespondConflict(w, msgNotRefundable)

		default:
			h.logger.Error("POST /payments/{id}/refund - Failed to refund: payment_id=%d, error=%v", paymentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /payments/{id}/refund - Refunded: payment_id=%d, amount=%s, booking_cancelled=%t",
		paymentID, useCaseReq.Amount.StringFixed(2), result.BookingCancelled)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
