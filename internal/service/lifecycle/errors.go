package lifecycle

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("lifecycle: booking not found")

	// ErrIllegalTransition событие недопустимо для текущего статуса
	ErrIllegalTransition = errors.New("lifecycle: illegal transition")

	// ErrInternal возвращается при внутренних ошибках
	ErrInternal = errors.New("lifecycle: internal error")
)
