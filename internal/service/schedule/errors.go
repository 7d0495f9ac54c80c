package schedule

import "errors"

var (
	// ErrMalformedDate дата не в формате YYYY-MM-DD
	ErrMalformedDate = errors.New("schedule: malformed date")

	// ErrDateInPast дата раньше сегодняшнего дня в часовом поясе гаража
	ErrDateInPast = errors.New("schedule: date is in the past")

	// ErrDateTooFar дата дальше горизонта предварительной записи
	ErrDateTooFar = errors.New("schedule: date is beyond the booking horizon")

	// ErrClosed гараж не работает в указанную дату
	ErrClosed = errors.New("schedule: garage is closed on this date")

	// ErrInvalidTimeSlot время не совпадает с сеткой слотов или вне рабочих часов
	ErrInvalidTimeSlot = errors.New("schedule: invalid time slot")

	// ErrTooLateToBook до начала слота осталось меньше минимального времени записи
	ErrTooLateToBook = errors.New("schedule: too late to book this slot")

	// ErrInvalidPolicy некорректные параметры расписания
	ErrInvalidPolicy = errors.New("schedule: invalid policy")
)
