package domain

import (
	"errors"
	"fmt"
)

// BookingStatus статус бронирования
type BookingStatus string

const (
	StatusPendingPayment BookingStatus = "pending_payment"
	StatusConfirmed      BookingStatus = "confirmed"
	StatusInProgress     BookingStatus = "in_progress"
	StatusCompleted      BookingStatus = "completed"
	StatusCancelled      BookingStatus = "cancelled"
	StatusFailed         BookingStatus = "failed"
)

// BookingEvent событие, переводящее бронирование в другой статус
type BookingEvent string

const (
	EventPaymentCompleted BookingEvent = "payment_completed"
	EventPaymentFailed    BookingEvent = "payment_failed"
	EventHoldExpired      BookingEvent = "hold_expired"
	EventStart            BookingEvent = "start"
	EventComplete         BookingEvent = "complete"
	EventCancel           BookingEvent = "cancel"
)

var (
	// ErrIllegalTransition событие недопустимо для текущего (нетерминального) статуса
	ErrIllegalTransition = errors.New("domain: illegal booking transition")

	// ErrTerminalStatus бронирование уже в терминальном статусе
	ErrTerminalStatus = errors.New("domain: booking is in a terminal status")

	// ErrUnknownStatus неизвестное значение статуса
	ErrUnknownStatus = errors.New("domain: unknown booking status")
)

// BlockingStatuses статусы, при которых бронирование занимает слот
var BlockingStatuses = []BookingStatus{
	StatusPendingPayment,
	StatusConfirmed,
	StatusInProgress,
}

// AllBookingStatuses все допустимые статусы
var AllBookingStatuses = []BookingStatus{
	StatusPendingPayment,
	StatusConfirmed,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusFailed,
}

// ParseBookingStatus парсит статус из строки
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return status, nil
}

// IsValid проверяет, что статус известен
func (s BookingStatus) IsValid() bool {
	for _, known := range AllBookingStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsBlocking возвращает true, если бронирование в этом статусе занимает слот
func (s BookingStatus) IsBlocking() bool {
	return s == StatusPendingPayment || s == StatusConfirmed || s == StatusInProgress
}

// IsTerminal возвращает true для статусов, из которых нет переходов
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// Next вычисляет статус после события.
// Единственное место, где определяются допустимые переходы:
//
//	pending_payment -> confirmed | failed | cancelled
//	confirmed       -> in_progress | cancelled
//	in_progress     -> completed
//
// Для терминального статуса возвращает текущий статус и ErrTerminalStatus.
func (s BookingStatus) Next(event BookingEvent) (BookingStatus, error) {
	if s.IsTerminal() {
		return s, ErrTerminalStatus
	}

	switch s {
	case StatusPendingPayment:
		switch event {
		case EventPaymentCompleted:
			return StatusConfirmed, nil
		case EventPaymentFailed, EventHoldExpired:
			return StatusFailed, nil
		case EventCancel:
			return StatusCancelled, nil
		}
	case StatusConfirmed:
		switch event {
		case EventStart:
			return StatusInProgress, nil
		case EventCancel:
			return StatusCancelled, nil
		}
	case StatusInProgress:
		if event == EventComplete {
			return StatusCompleted, nil
		}
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}

	return s, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, event, s)
}
