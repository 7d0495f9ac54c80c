package cancel_booking

import (
	"strings"

	"github.com/m04kA/SMC-GarageBooking/internal/service/bookings/models"
)

// CancelBookingRequest HTTP request model
type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// ToServiceRequest конвертирует HTTP запрос в модель сервиса; пустая причина не сохраняется
func (r *CancelBookingRequest) ToServiceRequest() *models.CancelBookingRequest {
	if r.Reason == nil {
		return &models.CancelBookingRequest{}
	}

	reason := strings.TrimSpace(*r.Reason)
	if reason == "" {
		return &models.CancelBookingRequest{}
	}
	return &models.CancelBookingRequest{Reason: &reason}
}
