package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentNotification асинхронное уведомление платёжного шлюза о результате оплаты
type PaymentNotification struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string

	// Заполняются только при успешной оплате
	ReceiptNumber   string
	TransactionDate *time.Time
	Amount          *decimal.Decimal
	PhoneNumber     string

	RawPayload []byte
}

// IsSuccess возвращает true, если шлюз сообщил об успешной оплате
func (n *PaymentNotification) IsSuccess() bool {
	return n.ResultCode == ResultCodeSuccess
}

// IsConsistentWith проверяет, что повторное уведомление совпадает с уже зафиксированным результатом
func (n *PaymentNotification) IsConsistentWith(p *Payment) bool {
	switch p.Status {
	case PaymentCompleted, PaymentRefunded:
		if !n.IsSuccess() {
			return false
		}
		return n.ReceiptNumber == "" || p.ReceiptNumber == nil || *p.ReceiptNumber == n.ReceiptNumber
	case PaymentFailed:
		return !n.IsSuccess()
	default:
		return true
	}
}

// IsDuplicateCharge возвращает true, если уже оплаченный платёж получил
// успешное уведомление с другим номером квитанции
func (n *PaymentNotification) IsDuplicateCharge(p *Payment) bool {
	if !n.IsSuccess() || n.ReceiptNumber == "" || p.ReceiptNumber == nil {
		return false
	}
	if p.Status != PaymentCompleted && p.Status != PaymentRefunded {
		return false
	}
	return *p.ReceiptNumber != n.ReceiptNumber
}
