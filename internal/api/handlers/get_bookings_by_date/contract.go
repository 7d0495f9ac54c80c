package get_bookings_by_date

import (
	"context"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/internal/service/bookings/models"
)

type BookingService interface {
	GetBookingsByDate(ctx context.Context, date time.Time, principal domain.Principal) (*models.BookingListResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
