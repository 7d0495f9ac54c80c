package create_booking

import "errors"

var (
	// ErrServiceNotFound возвращается, когда услуга не найдена в каталоге или выключена
	ErrServiceNotFound = errors.New("create_booking: service not found")

	// ErrInvalidDate возвращается при некорректной дате бронирования
	ErrInvalidDate = errors.New("create_booking: invalid booking date")

	// ErrDateTooFarInFuture возвращается, когда дата превышает горизонт записи
	ErrDateTooFarInFuture = errors.New("create_booking: date is too far in the future")

	// ErrGarageClosed возвращается, когда гараж закрыт в указанную дату
	ErrGarageClosed = errors.New("create_booking: garage is closed on this date")

	// ErrSlotNotAvailable возвращается, когда выбранный слот уже занят
	ErrSlotNotAvailable = errors.New("create_booking: slot is not available")

	// ErrInvalidTimeSlot возвращается, когда время слота не на сетке или вне рабочих часов
	ErrInvalidTimeSlot = errors.New("create_booking: invalid time slot")

	// ErrTooLateToBook возвращается, когда до начала слота меньше минимального времени записи
	ErrTooLateToBook = errors.New("create_booking: too late to book this slot")

	// ErrIdempotencyKeyReused ключ идемпотентности уже использован для другого запроса
	ErrIdempotencyKeyReused = errors.New("create_booking: idempotency key reused")

	// ErrAccessDenied клиент пытается записать другого клиента
	ErrAccessDenied = errors.New("create_booking: access denied")

	// ErrGateway платёжный шлюз не принял запрос на оплату
	ErrGateway = errors.New("create_booking: payment gateway error")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("create_booking: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_booking: internal error")
)
