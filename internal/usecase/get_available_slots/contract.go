package get_available_slots

import (
	"context"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	List(ctx context.Context, filter domain.BookingFilter) ([]*domain.Booking, error)
}

// DateValidator проверяет дату записи
type DateValidator interface {
	Validate(raw string) (time.Time, error)
}

// SlotGenerator строит сетку слотов дня
type SlotGenerator interface {
	Generate(date time.Time, bookings []*domain.Booking) []domain.Slot
}

// AvailabilityCache кеш доступности слотов по датам с поколениями записей
type AvailabilityCache interface {
	Generation(ctx context.Context, date time.Time) (int64, error)
	Get(ctx context.Context, date time.Time, generation int64) ([]domain.Slot, error)
	Set(ctx context.Context, date time.Time, generation int64, slots []domain.Slot) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
