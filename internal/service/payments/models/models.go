package models

import (
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

// PaymentResponse ответ с данными платежа. Телефон отдаётся только в маскированном виде.
type PaymentResponse struct {
	ID                int64      `json:"id"`
	BookingID         int64      `json:"bookingId"`
	CustomerID        int64      `json:"customerId"`
	Amount            string     `json:"amount"`
	Currency          string     `json:"currency"`
	Phone             string     `json:"phone"`
	Status            string     `json:"status"`
	CheckoutRequestID *string    `json:"checkoutRequestId,omitempty"`
	ReceiptNumber     *string    `json:"receiptNumber,omitempty"`
	TransactionDate   *time.Time `json:"transactionDate,omitempty"`
	ResultCode        *int       `json:"resultCode,omitempty"`
	ResultDesc        *string    `json:"resultDesc,omitempty"`
	RefundAmount      *string    `json:"refundAmount,omitempty"`
	RefundReason      *string    `json:"refundReason,omitempty"`
	RefundedAt        *time.Time `json:"refundedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// FromDomainPayment конвертирует domain модель в DTO
func FromDomainPayment(p *domain.Payment) *PaymentResponse {
	if p == nil {
		return nil
	}

	resp := &PaymentResponse{
		ID:                p.ID,
		BookingID:         p.BookingID,
		CustomerID:        p.CustomerID,
		Amount:            p.Amount.StringFixed(2),
		Currency:          p.Currency,
		Phone:             p.PhoneMasked,
		Status:            string(p.Status),
		CheckoutRequestID: p.CheckoutRequestID,
		ReceiptNumber:     p.ReceiptNumber,
		TransactionDate:   p.TransactionDate,
		ResultCode:        p.ResultCode,
		ResultDesc:        p.ResultDesc,
		RefundReason:      p.RefundReason,
		RefundedAt:        p.RefundedAt,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}

	if p.RefundAmount != nil {
		amount := p.RefundAmount.StringFixed(2)
		resp.RefundAmount = &amount
	}

	return resp
}
