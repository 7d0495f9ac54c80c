package reconcile_payment

import (
	"context"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/internal/service/lifecycle"
)

// PaymentRepository интерфейс репозитория платежей
type PaymentRepository interface {
	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.Payment, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Payment, error)
	ApplyNotification(ctx context.Context, payment *domain.Payment) (bool, error)
}

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error)
}

// AnomalyRepository интерфейс журнала аномалий сверки
type AnomalyRepository interface {
	Create(ctx context.Context, anomaly *domain.ReconciliationAnomaly) error
	CreateOrphan(ctx context.Context, anomaly *domain.ReconciliationAnomaly) (bool, error)
}

// OutboxRepository интерфейс записи событий
type OutboxRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
}

// Lifecycle машина состояний бронирований
type Lifecycle interface {
	Apply(ctx context.Context, bookingID int64, event domain.BookingEvent, meta lifecycle.Meta) (*lifecycle.Result, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics счётчики сверки
type Metrics interface {
	IncReconciliation(outcome string)
	IncAnomaly(kind string)
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
