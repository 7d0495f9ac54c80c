package get_available_slots

import (
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

// applyMinNotice помечает недоступными слоты, начинающиеся раньше now+minNotice.
// Исходный срез не изменяется: он может лежать в кеше.
func applyMinNotice(slots []domain.Slot, date time.Time, now time.Time, minNotice time.Duration) []domain.Slot {
	result := make([]domain.Slot, len(slots))
	copy(result, slots)

	earliest := now.Add(minNotice)
	for i, slot := range result {
		if !slot.Available {
			continue
		}
		start, err := slot.Start.On(date)
		if err != nil || start.Before(earliest) {
			result[i].Available = false
		}
	}

	return result
}

// snapshot материализует истёкшие удержания, чтобы они не занимали слоты при отображении
func snapshot(bookings []*domain.Booking, now time.Time) []*domain.Booking {
	result := make([]*domain.Booking, 0, len(bookings))
	for _, booking := range bookings {
		result = append(result, booking.Snapshot(now))
	}
	return result
}
