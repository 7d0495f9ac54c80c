package refund_payment

import (
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	bookingModels "github.com/m04kA/SMC-GarageBooking/internal/service/bookings/models"
	paymentModels "github.com/m04kA/SMC-GarageBooking/internal/service/payments/models"
	refundPayment "github.com/m04kA/SMC-GarageBooking/internal/usecase/refund_payment"
)

// RefundRequest HTTP request model; сумма передаётся строкой ("1500.00"), чтобы не терять точность
type RefundRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

// RefundResponse HTTP response model
type RefundResponse struct {
	Payment          *paymentModels.PaymentResponse `json:"payment"`
	Booking          *bookingModels.BookingResponse `json:"booking"`
	BookingCancelled bool                           `json:"bookingCancelled"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *RefundRequest) ToUseCaseRequest(principal domain.Principal, paymentID int64) (*refundPayment.Request, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, err
	}

	return &refundPayment.Request{
		Principal: principal,
		PaymentID: paymentID,
		Amount:    amount,
		Reason:    r.Reason,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *refundPayment.Response) *RefundResponse {
	return &RefundResponse{
		Payment:          paymentModels.FromDomainPayment(resp.Payment),
		Booking:          bookingModels.FromDomainBooking(resp.Booking),
		BookingCancelled: resp.BookingCancelled,
	}
}
