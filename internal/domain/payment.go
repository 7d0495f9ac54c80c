package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus статус платежа
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentRefunded   PaymentStatus = "refunded"
)

// ResultCodeSuccess код успешной оплаты в уведомлении шлюза
const ResultCodeSuccess = 0

var (
	// ErrInvalidPhone номер телефона плательщика некорректен
	ErrInvalidPhone = errors.New("domain: invalid payer phone number")

	// ErrInvalidAmount сумма платежа некорректна
	ErrInvalidAmount = errors.New("domain: invalid payment amount")

	// ErrInvalidRefundAmount сумма возврата вне диапазона (0, amount]
	ErrInvalidRefundAmount = errors.New("domain: invalid refund amount")

	// ErrPaymentNotRefundable возврат возможен только для оплаченного платежа
	ErrPaymentNotRefundable = errors.New("domain: payment is not refundable")
)

// ActivePaymentStatuses статусы, в которых по бронированию ожидается оплата
var ActivePaymentStatuses = []PaymentStatus{PaymentPending, PaymentProcessing}

// NotifiablePaymentStatuses статусы, к которым ещё применим результат уведомления шлюза.
// cancelled сюда входит: шлюз мог списать деньги уже после отмены.
var NotifiablePaymentStatuses = []PaymentStatus{PaymentPending, PaymentProcessing, PaymentCancelled}

// IsTerminal возвращает true, если результат шлюза уже зафиксирован
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentRefunded
}

// IsActive возвращает true, если платёж ещё ожидает результата
func (s PaymentStatus) IsActive() bool {
	return s == PaymentPending || s == PaymentProcessing
}

// Payment платёж по бронированию (никогда не удаляется)
type Payment struct {
	ID         int64
	BookingID  int64
	CustomerID int64
	Amount     decimal.Decimal
	Currency   string

	// Телефон хранится только в маскированном виде и как SHA-256 хеш
	PhoneMasked string
	PhoneHash   string

	MerchantRequestID *string
	CheckoutRequestID *string
	ReceiptNumber     *string
	TransactionDate   *time.Time

	Status     PaymentStatus
	ResultCode *int
	ResultDesc *string

	RefundAmount *decimal.Decimal
	RefundReason *string
	RefundedAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPayment создает платёж в статусе pending.
// Возвращает нормализованный номер телефона для запроса в шлюз; в платеже он не сохраняется.
func NewPayment(bookingID, customerID int64, amount decimal.Decimal, rawPhone string, now time.Time) (*Payment, string, error) {
	if !amount.IsPositive() {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidAmount, amount.String())
	}

	msisdn, err := NormalizePhone(rawPhone)
	if err != nil {
		return nil, "", err
	}

	return &Payment{
		BookingID:   bookingID,
		CustomerID:  customerID,
		Amount:      amount,
		Currency:    DefaultCurrency,
		PhoneMasked: MaskPhone(msisdn),
		PhoneHash:   HashPhone(msisdn),
		Status:      PaymentPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, msisdn, nil
}

// ApplyNotification применяет результат уведомления шлюза
func (p *Payment) ApplyNotification(n *PaymentNotification, now time.Time) {
	code := n.ResultCode
	desc := n.ResultDesc
	p.ResultCode = &code
	p.ResultDesc = &desc
	p.UpdatedAt = now

	if n.IsSuccess() {
		p.Status = PaymentCompleted
		if n.ReceiptNumber != "" {
			receipt := n.ReceiptNumber
			p.ReceiptNumber = &receipt
		}
		p.TransactionDate = n.TransactionDate
		return
	}

	p.Status = PaymentFailed
}

// Refund фиксирует возврат. Сумма возврата не может превышать сумму платежа.
func (p *Payment) Refund(amount decimal.Decimal, reason string, now time.Time) error {
	if p.Status != PaymentCompleted {
		return fmt.Errorf("%w: status %s", ErrPaymentNotRefundable, p.Status)
	}
	if !amount.IsPositive() || amount.GreaterThan(p.Amount) {
		return fmt.Errorf("%w: %s of %s", ErrInvalidRefundAmount, amount.String(), p.Amount.String())
	}

	p.Status = PaymentRefunded
	p.RefundAmount = &amount
	p.RefundReason = &reason
	p.RefundedAt = &now
	p.UpdatedAt = now
	return nil
}

// NormalizePhone приводит кенийский номер к формату 2547XXXXXXXX / 2541XXXXXXXX
func NormalizePhone(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		if r == ' ' || r == '-' || r == '+' {
			return -1
		}
		return 'x'
	}, strings.TrimSpace(raw))

	if strings.ContainsRune(digits, 'x') {
		return "", ErrInvalidPhone
	}

	switch {
	case len(digits) == 10 && digits[0] == '0':
		digits = "254" + digits[1:]
	case len(digits) == 9 && (digits[0] == '7' || digits[0] == '1'):
		digits = "254" + digits
	}

	if len(digits) != 12 || !strings.HasPrefix(digits, "254") || (digits[3] != '7' && digits[3] != '1') {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// MaskPhone оставляет видимыми код страны с оператором и две последние цифры
func MaskPhone(msisdn string) string {
	if len(msisdn) < 6 {
		return strings.Repeat("*", len(msisdn))
	}
	return msisdn[:4] + strings.Repeat("*", len(msisdn)-6) + msisdn[len(msisdn)-2:]
}

// HashPhone возвращает hex SHA-256 нормализованного номера
func HashPhone(msisdn string) string {
	sum := sha256.Sum256([]byte(msisdn))
	return hex.EncodeToString(sum[:])
}
