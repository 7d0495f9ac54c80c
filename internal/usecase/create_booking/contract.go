package create_booking

import (
	"context"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-GarageBooking/internal/integrations/mpesa"
	"github.com/m04kA/SMC-GarageBooking/internal/service/lifecycle"
	"github.com/m04kA/SMC-GarageBooking/internal/service/reservation"
	"github.com/m04kA/SMC-GarageBooking/pkg/types"
)

// DateValidator проверяет дату записи
type DateValidator interface {
	Validate(raw string) (time.Time, error)
}

// SlotResolver находит слот сетки по времени начала
type SlotResolver interface {
	SlotAt(date time.Time, start types.TimeString) (domain.TimeSlot, error)
}

// CatalogClient интерфейс клиента каталога услуг
type CatalogClient interface {
	GetService(ctx context.Context, serviceID int64) (*catalogservice.Service, error)
}

// ReservationGuard атомарно занимает слот
type ReservationGuard interface {
	Reserve(ctx context.Context, draft *domain.Booking) (*reservation.Result, error)
}

// PaymentRepository интерфейс репозитория платежей
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetLatestByBooking(ctx context.Context, bookingID int64) (*domain.Payment, error)
	MarkProcessing(ctx context.Context, id int64, merchantRequestID, checkoutRequestID string, now time.Time) (domain.PaymentStatus, error)
	MarkFailed(ctx context.Context, id int64, resultDesc string, now time.Time) error
}

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error)
}

// PaymentGateway интерфейс платёжного шлюза
type PaymentGateway interface {
	STKPush(ctx context.Context, req *mpesa.STKPushRequest) (*mpesa.STKPushResponse, error)
}

// Lifecycle машина состояний бронирований
type Lifecycle interface {
	Apply(ctx context.Context, bookingID int64, event domain.BookingEvent, meta lifecycle.Meta) (*lifecycle.Result, error)
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
