package get_available_slots

import (
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

// Request модель запроса на получение слотов
type Request struct {
	Date string // YYYY-MM-DD в часовом поясе гаража
}

// Response модель ответа со списком слотов дня
type Response struct {
	Date  time.Time     // Дата, на которую запрашивались слоты
	Slots []domain.Slot // Все слоты рабочего окна по порядку; пустой список, если гараж закрыт
}
