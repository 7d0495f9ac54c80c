package create_booking

import (
	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/pkg/types"
)

// Request модель запроса на создание бронирования
type Request struct {
	Principal      domain.Principal // Кто создаёт бронирование
	CustomerID     *int64           // Для кого (только staff/admin может указать другого клиента)
	ServiceID      int64            // ID услуги из каталога
	Date           string           // YYYY-MM-DD
	StartTime      types.TimeString // Время начала слота (например, "10:00")
	StaffID        *int64           // Мастер (опционально)
	Phone          string           // Телефон для оплаты M-Pesa
	Notes          *string          // Дополнительные заметки (опционально)
	IdempotencyKey string           // Ключ повтора запроса
}

// Response модель ответа с созданным бронированием и платежом
type Response struct {
	Booking  *domain.Booking
	Payment  *domain.Payment // nil, если по повтору платёж уже не создаётся
	Replayed bool            // true, если запрос уже выполнялся с этим ключом
}
