package create_booking

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/pkg/types"
)

const maxIdempotencyKeyLength = 100

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.ServiceID <= 0 {
		return fmt.Errorf("%w: serviceID must be positive", ErrInvalidInput)
	}

	if strings.TrimSpace(req.Date) == "" {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	// Проверяем, что время начала указано
	if req.StartTime.IsZero() {
		return fmt.Errorf("%w: startTime is required", ErrInvalidInput)
	}

	// Валидируем формат времени
	if err := req.StartTime.Validate(); err != nil {
		return fmt.Errorf("%w: invalid startTime format: %v", ErrInvalidInput, err)
	}

	if strings.TrimSpace(req.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrInvalidInput)
	}

	if req.CustomerID != nil && *req.CustomerID <= 0 {
		return fmt.Errorf("%w: customerID must be positive", ErrInvalidInput)
	}

	if req.StaffID != nil && *req.StaffID <= 0 {
		return fmt.Errorf("%w: staffID must be positive", ErrInvalidInput)
	}

	if req.Notes != nil && utf8.RuneCountInString(*req.Notes) > domain.MaxNotesLength {
		return fmt.Errorf("%w: notes must be at most %d characters", ErrInvalidInput, domain.MaxNotesLength)
	}

	if req.IdempotencyKey == "" || len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		return fmt.Errorf("%w: idempotency key must be 1..%d characters", ErrInvalidInput, maxIdempotencyKeyLength)
	}

	return nil
}

// resolveCustomer возвращает клиента бронирования. Клиент может записать только себя.
func resolveCustomer(req *Request) (int64, error) {
	if req.CustomerID == nil || *req.CustomerID == req.Principal.UserID {
		return req.Principal.UserID, nil
	}
	if !req.Principal.IsStaff() {
		return 0, fmt.Errorf("%w: user %d cannot book for customer %d", ErrAccessDenied, req.Principal.UserID, *req.CustomerID)
	}
	return *req.CustomerID, nil
}

// validateBookingTime проверяет, что до начала слота не меньше minNotice
func validateBookingTime(date time.Time, startTime types.TimeString, now time.Time, minNotice time.Duration) error {
	start, err := startTime.On(date)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTimeSlot, err)
	}

	if start.Before(now.Add(minNotice)) {
		return fmt.Errorf("%w: must book at least %d minutes in advance", ErrTooLateToBook, int(minNotice.Minutes()))
	}

	return nil
}
