package reservation

import (
	"context"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/internal/service/lifecycle"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	Insert(ctx context.Context, booking *domain.Booking) (bool, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error)
	FindExpiredHolds(ctx context.Context, date time.Time, slot domain.TimeSlot, now time.Time) ([]int64, error)
}

// Lifecycle машина состояний бронирований
type Lifecycle interface {
	Apply(ctx context.Context, bookingID int64, event domain.BookingEvent, meta lifecycle.Meta) (*lifecycle.Result, error)
}

// AvailabilityCache кеш доступности слотов по датам
type AvailabilityCache interface {
	Invalidate(ctx context.Context, date time.Time) error
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics счётчики резервирований
type Metrics interface {
	IncReservation(result string)
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
