package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-GarageBooking/pkg/types"
)

// ErrInvalidTimeSlot интервал слота некорректен (конец не позже начала)
var ErrInvalidTimeSlot = errors.New("domain: invalid time slot")

// TimeSlot интервал [Start, End) внутри одного дня
type TimeSlot struct {
	Start types.TimeString
	End   types.TimeString
}

// Validate проверяет формат и порядок границ
func (t TimeSlot) Validate() error {
	if err := t.Start.Validate(); err != nil {
		return ErrInvalidTimeSlot
	}
	if err := t.End.Validate(); err != nil {
		return ErrInvalidTimeSlot
	}
	if !t.Start.IsBefore(t.End) {
		return ErrInvalidTimeSlot
	}
	return nil
}

// Overlaps возвращает true при реальном пересечении интервалов.
// Граничащие интервалы (10:00-11:00 и 11:00-12:00) не пересекаются.
func (t TimeSlot) Overlaps(other TimeSlot) bool {
	return t.Start.IsBefore(other.End) && other.Start.IsBefore(t.End)
}

// Booking бронирование слота в гараже
type Booking struct {
	ID          int64
	CustomerID  int64
	ServiceID   int64
	StaffID     *int64
	BookingDate time.Time
	TimeSlot    TimeSlot
	Status      BookingStatus

	// Denormalized data for history
	ServiceName  string
	ServicePrice decimal.Decimal
	Notes        *string

	// Удержание слота до оплаты
	HoldExpiresAt  *time.Time
	IdempotencyKey string

	CancellationReason *string
	CancelledAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransitionResult результат применения события к бронированию
type TransitionResult struct {
	From    BookingStatus
	To      BookingStatus
	Applied bool
}

// IsHoldExpired возвращает true, если неоплаченное удержание истекло к моменту now
func (b *Booking) IsHoldExpired(now time.Time) bool {
	return b.Status == StatusPendingPayment &&
		b.HoldExpiresAt != nil &&
		!now.Before(*b.HoldExpiresAt)
}

// EffectiveStatus статус с учётом истечения удержания
func (b *Booking) EffectiveStatus(now time.Time) BookingStatus {
	if b.IsHoldExpired(now) {
		return StatusFailed
	}
	return b.Status
}

// BlocksSlot возвращает true, если бронирование занимает слот в момент now
func (b *Booking) BlocksSlot(now time.Time) bool {
	return b.EffectiveStatus(now).IsBlocking()
}

// BelongsTo возвращает true, если бронирование принадлежит клиенту
func (b *Booking) BelongsTo(customerID int64) bool {
	return b.CustomerID == customerID
}

// Apply применяет событие.
// Из терминального статуса событие ничего не меняет и возвращает Applied=false без ошибки.
func (b *Booking) Apply(event BookingEvent, now time.Time) (TransitionResult, error) {
	result := TransitionResult{From: b.Status, To: b.Status}

	next, err := b.Status.Next(event)
	if errors.Is(err, ErrTerminalStatus) {
		return result, nil
	}
	if err != nil {
		return result, err
	}

	b.Status = next
	b.UpdatedAt = now
	if next == StatusCancelled {
		b.CancelledAt = &now
	}

	result.To = next
	result.Applied = true
	return result, nil
}

// Snapshot возвращает копию бронирования с материализованным статусом на момент now
func (b *Booking) Snapshot(now time.Time) *Booking {
	copied := *b
	copied.Status = b.EffectiveStatus(now)
	return &copied
}

// BookingFilter фильтр для выборки бронирований
type BookingFilter struct {
	CustomerID *int64
	StaffID    *int64
	Date       *time.Time
	Status     *BookingStatus
}
