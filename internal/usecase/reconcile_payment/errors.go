package reconcile_payment

import "errors"

var (
	// ErrInvalidInput уведомление без идентификатора запроса
	ErrInvalidInput = errors.New("reconcile_payment: invalid notification")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("reconcile_payment: internal error")
)
