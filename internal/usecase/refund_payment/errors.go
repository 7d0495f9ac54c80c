package refund_payment

import "errors"

var (
	// ErrPaymentNotFound возвращается, когда платёж не найден
	ErrPaymentNotFound = errors.New("refund_payment: payment not found")

	// ErrNotRefundable возврат возможен только для оплаченного платежа
	ErrNotRefundable = errors.New("refund_payment: payment is not refundable")

	// ErrInvalidAmount сумма возврата вне диапазона (0, amount]
	ErrInvalidAmount = errors.New("refund_payment: invalid refund amount")

	// ErrAccessDenied возврат доступен только сотрудникам
	ErrAccessDenied = errors.New("refund_payment: access denied")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("refund_payment: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("refund_payment: internal error")
)
