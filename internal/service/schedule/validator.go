package schedule

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

// Validator проверяет дату записи. Не имеет состояния и безопасен для параллельного использования.
type Validator struct {
	policy       Policy
	timeProvider TimeProvider
}

// NewValidator создает валидатор. timeProvider может быть nil.
func NewValidator(policy Policy, timeProvider TimeProvider) *Validator {
	if timeProvider == nil {
		timeProvider = &RealTimeProvider{}
	}
	return &Validator{policy: policy, timeProvider: timeProvider}
}

// Validate парсит дату YYYY-MM-DD в часовом поясе гаража и проверяет её
func (v *Validator) Validate(raw string) (time.Time, error) {
	date, err := time.ParseInLocation(domain.DateFormat, raw, v.policy.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, raw)
	}
	if err := v.ValidateDate(date); err != nil {
		return time.Time{}, err
	}
	return date, nil
}

// ValidateDate проверяет, что дата не в прошлом и не дальше горизонта записи
func (v *Validator) ValidateDate(date time.Time) error {
	today := v.policy.Today(v.timeProvider.Now())
	day := v.policy.StartOfDay(date)

	if day.Before(today) {
		return fmt.Errorf("%w: %s", ErrDateInPast, day.Format(domain.DateFormat))
	}

	if v.policy.AdvanceBookingDays > 0 {
		horizon := today.AddDate(0, 0, v.policy.AdvanceBookingDays)
		if day.After(horizon) {
			return fmt.Errorf("%w: %s is after %s",
				ErrDateTooFar, day.Format(domain.DateFormat), horizon.Format(domain.DateFormat))
		}
	}

	return nil
}
