package get_available_slots

import (
	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	getAvailableSlots "github.com/m04kA/SMC-GarageBooking/internal/usecase/get_available_slots"
)

// AvailableSlotsResponse HTTP response model
type AvailableSlotsResponse struct {
	Date           string          `json:"date"`
	Closed         bool            `json:"closed"`
	AvailableCount int             `json:"availableCount"`
	Slots          []AvailableSlot `json:"slots"`
}

// AvailableSlot модель временного слота
type AvailableSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getAvailableSlots.Response) *AvailableSlotsResponse {
	slots := make([]AvailableSlot, len(resp.Slots))
	available := 0
	for i, slot := range resp.Slots {
		slots[i] = AvailableSlot{
			StartTime: slot.Start.String(),
			EndTime:   slot.End.String(),
			Available: slot.Available,
		}
		if slot.Available {
			available++
		}
	}

	return &AvailableSlotsResponse{
		Date:           resp.Date.Format(domain.DateFormat),
		Closed:         len(slots) == 0,
		AvailableCount: available,
		Slots:          slots,
	}
}
