package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/pkg/types"
)

// DayHours рабочее окно одного дня
type DayHours struct {
	Open  types.TimeString
	Close types.TimeString
}

// Policy правила расписания гаража
type Policy struct {
	Location           *time.Location
	SlotMinutes        int
	AdvanceBookingDays int // 0 = без ограничения
	HoldWindow         time.Duration
	MinNotice          time.Duration
	Weekly             map[time.Weekday]DayHours // отсутствие дня = выходной
	ClosedDates        map[string]struct{}       // YYYY-MM-DD
}

// Settings сырые параметры расписания из конфигурации
type Settings struct {
	Timezone           string
	SlotMinutes        int
	AdvanceBookingDays int
	HoldMinutes        int
	MinNoticeMinutes   int
	Weekly             map[time.Weekday]string // "08:00-18:00", пустая строка = выходной
	ClosedDates        []string
}

// NewPolicy собирает и проверяет Policy
func NewPolicy(s Settings) (Policy, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return Policy{}, fmt.Errorf("%w: timezone %q: %v", ErrInvalidPolicy, s.Timezone, err)
	}

	policy := Policy{
		Location:           loc,
		SlotMinutes:        s.SlotMinutes,
		AdvanceBookingDays: s.AdvanceBookingDays,
		HoldWindow:         time.Duration(s.HoldMinutes) * time.Minute,
		MinNotice:          time.Duration(s.MinNoticeMinutes) * time.Minute,
		Weekly:             make(map[time.Weekday]DayHours),
		ClosedDates:        make(map[string]struct{}),
	}

	for weekday, raw := range s.Weekly {
		hours, open, err := ParseDayHours(raw)
		if err != nil {
			return Policy{}, fmt.Errorf("%w: %s: %v", ErrInvalidPolicy, weekday, err)
		}
		if open {
			policy.Weekly[weekday] = hours
		}
	}

	for _, raw := range s.ClosedDates {
		date, err := time.ParseInLocation(domain.DateFormat, raw, loc)
		if err != nil {
			return Policy{}, fmt.Errorf("%w: closed date %q", ErrInvalidPolicy, raw)
		}
		policy.ClosedDates[date.Format(domain.DateFormat)] = struct{}{}
	}

	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// ParseDayHours парсит "08:00-18:00". Пустая строка или "closed" означает выходной.
func ParseDayHours(raw string) (DayHours, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "closed") {
		return DayHours{}, false, nil
	}

	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return DayHours{}, false, fmt.Errorf("expected HH:MM-HH:MM, got %q", raw)
	}

	open, err := types.NewTimeStringFromString(strings.TrimSpace(parts[0]))
	if err != nil {
		return DayHours{}, false, err
	}
	closeAt, err := types.NewTimeStringFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return DayHours{}, false, err
	}
	if !open.IsBefore(closeAt) {
		return DayHours{}, false, fmt.Errorf("opening %s is not before closing %s", open, closeAt)
	}

	return DayHours{Open: open, Close: closeAt}, true, nil
}

// Validate проверяет ограничения на параметры
func (p Policy) Validate() error {
	if p.Location == nil {
		return fmt.Errorf("%w: location is required", ErrInvalidPolicy)
	}
	if p.SlotMinutes < domain.MinSlotMinutes || p.SlotMinutes > domain.MaxSlotMinutes {
		return fmt.Errorf("%w: slot minutes %d out of range [%d, %d]",
			ErrInvalidPolicy, p.SlotMinutes, domain.MinSlotMinutes, domain.MaxSlotMinutes)
	}
	if p.AdvanceBookingDays < 0 || p.AdvanceBookingDays > domain.MaxAdvanceBookingDays {
		return fmt.Errorf("%w: advance booking days %d out of range", ErrInvalidPolicy, p.AdvanceBookingDays)
	}
	if p.HoldWindow <= 0 {
		return fmt.Errorf("%w: hold window must be positive", ErrInvalidPolicy)
	}
	if p.MinNotice < 0 {
		return fmt.Errorf("%w: min notice must not be negative", ErrInvalidPolicy)
	}
	// Рабочее окно должно делиться на целое число слотов, иначе хвост дня не попадёт в сетку
	for weekday, hours := range p.Weekly {
		openMin, err := hours.Open.Minutes()
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidPolicy, weekday, err)
		}
		closeMin, err := hours.Close.Minutes()
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidPolicy, weekday, err)
		}
		if (closeMin-openMin)%p.SlotMinutes != 0 {
			return fmt.Errorf("%w: %s window %s-%s is not a whole number of %d-minute slots",
				ErrInvalidPolicy, weekday, hours.Open, hours.Close, p.SlotMinutes)
		}
	}
	return nil
}

// Today возвращает начало текущего дня в часовом поясе гаража
func (p Policy) Today(now time.Time) time.Time {
	return p.StartOfDay(now)
}

// StartOfDay приводит момент времени к полуночи того же календарного дня в часовом поясе гаража
func (p Policy) StartOfDay(t time.Time) time.Time {
	local := t.In(p.Location)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.Location)
}
