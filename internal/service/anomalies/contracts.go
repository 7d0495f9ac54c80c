package anomalies

import (
	"context"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

// AnomalyRepository интерфейс журнала аномалий
type AnomalyRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.ReconciliationAnomaly, error)
	List(ctx context.Context, filter domain.AnomalyFilter) ([]*domain.ReconciliationAnomaly, error)
	Resolve(ctx context.Context, id int64, note string, resolvedBy int64, now time.Time) error
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
