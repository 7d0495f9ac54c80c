package refund_payment

import (
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

// Request модель запроса на возврат
type Request struct {
	Principal domain.Principal
	PaymentID int64
	Amount    decimal.Decimal
	Reason    string
}

// Response модель результата возврата
type Response struct {
	Payment          *domain.Payment
	Booking          *domain.Booking
	BookingCancelled bool // бронирование отменено этим возвратом
}
