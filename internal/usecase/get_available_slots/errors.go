package get_available_slots

import "errors"

var (
	// ErrInvalidDate возвращается при некорректной дате (формат, прошлое, горизонт записи)
	ErrInvalidDate = errors.New("invalid booking date")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("usecase: internal error")
)
