package create_booking

import (
	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	bookingModels "github.com/m04kA/SMC-GarageBooking/internal/service/bookings/models"
	paymentModels "github.com/m04kA/SMC-GarageBooking/internal/service/payments/models"
	createBooking "github.com/m04kA/SMC-GarageBooking/internal/usecase/create_booking"
	"github.com/m04kA/SMC-GarageBooking/pkg/types"
)

// CreateBookingRequest HTTP request model
type CreateBookingRequest struct {
	CustomerID *int64  `json:"customerId,omitempty"` // только для сотрудников
	ServiceID  int64   `json:"serviceId"`
	Date       string  `json:"date"`      // "2026-11-02"
	StartTime  string  `json:"startTime"` // "10:00"
	StaffID    *int64  `json:"staffId,omitempty"`
	Phone      string  `json:"phone"`
	Notes      *string `json:"notes,omitempty"`
}

// CreateBookingResponse HTTP response model
type CreateBookingResponse struct {
	Booking  *bookingModels.BookingResponse `json:"booking"`
	Payment  *paymentModels.PaymentResponse `json:"payment,omitempty"`
	Replayed bool                           `json:"replayed"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CreateBookingRequest) ToUseCaseRequest(principal domain.Principal, idempotencyKey string) (*createBooking.Request, error) {
	startTime, err := types.NewTimeStringFromString(r.StartTime)
	if err != nil {
		return nil, err
	}

	return &createBooking.Request{
		Principal:      principal,
		CustomerID:     r.CustomerID,
		ServiceID:      r.ServiceID,
		Date:           r.Date,
		StartTime:      startTime,
		StaffID:        r.StaffID,
		Phone:          r.Phone,
		Notes:          r.Notes,
		IdempotencyKey: idempotencyKey,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createBooking.Response) *CreateBookingResponse {
	return &CreateBookingResponse{
		Booking:  bookingModels.FromDomainBooking(resp.Booking),
		Payment:  paymentModels.FromDomainPayment(resp.Payment),
		Replayed: resp.Replayed,
	}
}
