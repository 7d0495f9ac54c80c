package refund_payment

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if !req.Principal.IsStaff() {
		return fmt.Errorf("%w: role %s cannot refund payments", ErrAccessDenied, req.Principal.Role)
	}

	if req.PaymentID <= 0 {
		return fmt.Errorf("%w: paymentID must be positive", ErrInvalidInput)
	}

	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(reason) > domain.MaxRefundReasonLength {
		return fmt.Errorf("%w: reason must be at most %d characters", ErrInvalidInput, domain.MaxRefundReasonLength)
	}

	return nil
}
