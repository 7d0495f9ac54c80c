package domain

import "github.com/m04kA/SMC-GarageBooking/pkg/types"

// Slot вычисляемый временной слот, в БД не хранится
type Slot struct {
	Start     types.TimeString
	End       types.TimeString
	Available bool
}

// TimeSlot возвращает интервал слота
func (s Slot) TimeSlot() TimeSlot {
	return TimeSlot{Start: s.Start, End: s.End}
}
