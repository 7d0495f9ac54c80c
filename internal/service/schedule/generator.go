package schedule

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/pkg/types"
)

// Generator строит сетку слотов дня.
// Чистая функция от (дата, бронирования): не читает часы и не берёт блокировок,
// поэтому её результат никогда не используется для допуска брони.
type Generator struct {
	policy Policy
}

// NewGenerator создает генератор слотов
func NewGenerator(policy Policy) *Generator {
	return &Generator{policy: policy}
}

// Window возвращает рабочее окно на дату. false, если гараж закрыт.
func (g *Generator) Window(date time.Time) (DayHours, bool) {
	day := g.policy.StartOfDay(date)
	if _, closed := g.policy.ClosedDates[day.Format(domain.DateFormat)]; closed {
		return DayHours{}, false
	}
	hours, ok := g.policy.Weekly[day.Weekday()]
	return hours, ok
}

// Generate возвращает упорядоченные, смежные и непересекающиеся слоты от открытия до закрытия.
// Policy.Validate гарантирует, что окно делится на слоты без остатка; последний слот заканчивается в момент закрытия.
// Слот недоступен, если пересекается с бронированием в блокирующем статусе.
// Статусы бронирований должны быть материализованы вызывающей стороной (см. Booking.Snapshot).
func (g *Generator) Generate(date time.Time, bookings []*domain.Booking) []domain.Slot {
	hours, open := g.Window(date)
	if !open {
		return []domain.Slot{}
	}

	slots := make([]domain.Slot, 0)
	current := hours.Open

	for current.IsBefore(hours.Close) {
		end, err := current.AddMinutes(g.policy.SlotMinutes)
		if err != nil || end.IsAfter(hours.Close) {
			break
		}

		interval := domain.TimeSlot{Start: current, End: end}
		slots = append(slots, domain.Slot{
			Start:     current,
			End:       end,
			Available: !isOccupied(interval, date, bookings),
		})

		current = end
	}

	return slots
}

// SlotAt возвращает слот сетки, начинающийся в start
func (g *Generator) SlotAt(date time.Time, start types.TimeString) (domain.TimeSlot, error) {
	hours, open := g.Window(date)
	if !open {
		return domain.TimeSlot{}, fmt.Errorf("%w: %s", ErrClosed, date.Format(domain.DateFormat))
	}

	if err := start.Validate(); err != nil {
		return domain.TimeSlot{}, fmt.Errorf("%w: %v", ErrInvalidTimeSlot, err)
	}

	openMin, err := hours.Open.Minutes()
	if err != nil {
		return domain.TimeSlot{}, fmt.Errorf("%w: %v", ErrInvalidTimeSlot, err)
	}
	startMin, err := start.Minutes()
	if err != nil {
		return domain.TimeSlot{}, fmt.Errorf("%w: %v", ErrInvalidTimeSlot, err)
	}

	if startMin < openMin || (startMin-openMin)%g.policy.SlotMinutes != 0 {
		return domain.TimeSlot{}, fmt.Errorf("%w: %s is not on the %d-minute grid from %s",
			ErrInvalidTimeSlot, start, g.policy.SlotMinutes, hours.Open)
	}

	end, err := start.AddMinutes(g.policy.SlotMinutes)
	if err != nil || end.IsAfter(hours.Close) {
		return domain.TimeSlot{}, fmt.Errorf("%w: %s ends after closing %s", ErrInvalidTimeSlot, start, hours.Close)
	}

	return domain.TimeSlot{Start: start, End: end}, nil
}

// isOccupied проверяет пересечение интервала с блокирующими бронированиями той же даты
func isOccupied(interval domain.TimeSlot, date time.Time, bookings []*domain.Booking) bool {
	for _, booking := range bookings {
		if !booking.Status.IsBlocking() {
			continue
		}
		if !sameDay(booking.BookingDate, date) {
			continue
		}
		if booking.TimeSlot.Overlaps(interval) {
			return true
		}
	}
	return false
}

// sameDay сравнивает календарные даты без учёта часового пояса хранения
func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
