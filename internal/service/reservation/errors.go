package reservation

import "errors"

var (
	// ErrIdempotencyKeyReused ключ уже использован для другого бронирования
	ErrIdempotencyKeyReused = errors.New("reservation: idempotency key reused for a different booking")

	// ErrInvalidInput некорректный черновик бронирования
	ErrInvalidInput = errors.New("reservation: invalid input")

	// ErrInternal возвращается при внутренних ошибках
	ErrInternal = errors.New("reservation: internal error")
)
