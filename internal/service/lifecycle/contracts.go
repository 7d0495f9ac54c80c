package lifecycle

import (
	"context"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, booking *domain.Booking) error
}

// PaymentRepository интерфейс репозитория платежей
type PaymentRepository interface {
	CancelActiveByBooking(ctx context.Context, bookingID int64, now time.Time) (int64, error)
}

// OutboxRepository интерфейс записи событий
type OutboxRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
}

// AvailabilityCache кеш доступности слотов по датам
type AvailabilityCache interface {
	Invalidate(ctx context.Context, date time.Time) error
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
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
