package models

import (
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

// Request модели

// CancelBookingRequest запрос на отмену бронирования
type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// UpdateStatusRequest запрос на обновление статуса бронирования сотрудником
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AssignStaffRequest запрос на назначение сотрудника
type AssignStaffRequest struct {
	StaffID int64 `json:"staffId"`
}

// GetCustomerBookingsRequest запрос на получение бронирований клиента
type GetCustomerBookingsRequest struct {
	CustomerID int64
	Status     *string
}

// Response модели

// BookingResponse ответ с данными бронирования
type BookingResponse struct {
	ID          int64  `json:"id"`
	CustomerID  int64  `json:"customerId"`
	ServiceID   int64  `json:"serviceId"`
	StaffID     *int64 `json:"staffId,omitempty"`
	BookingDate string `json:"bookingDate"` // "2026-11-02"
	StartTime   string `json:"startTime"`   // "10:00"
	EndTime     string `json:"endTime"`     // "11:00"
	Status      string `json:"status"`

	// Денормализованные данные
	ServiceName  string  `json:"serviceName"`
	ServicePrice string  `json:"servicePrice"`
	Notes        *string `json:"notes,omitempty"`

	HoldExpiresAt      *time.Time `json:"holdExpiresAt,omitempty"`
	CancellationReason *string    `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BookingListResponse ответ со списком бронирований
type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
}

// TransitionResponse результат изменения статуса.
// Applied=false означает, что бронирование уже было в терминальном статусе.
type TransitionResponse struct {
	Booking *BookingResponse `json:"booking"`
	Applied bool             `json:"applied"`
}

// Методы конвертации

// FromDomainBooking конвертирует domain модель в DTO
func FromDomainBooking(b *domain.Booking) *BookingResponse {
	if b == nil {
		return nil
	}

	resp := &BookingResponse{
		ID:                 b.ID,
		CustomerID:         b.CustomerID,
		ServiceID:          b.ServiceID,
		StaffID:            b.StaffID,
		BookingDate:        b.BookingDate.Format(domain.DateFormat),
		StartTime:          b.TimeSlot.Start.String(),
		EndTime:            b.TimeSlot.End.String(),
		Status:             string(b.Status),
		ServiceName:        b.ServiceName,
		ServicePrice:       b.ServicePrice.StringFixed(2),
		Notes:              b.Notes,
		CancellationReason: b.CancellationReason,
		CancelledAt:        b.CancelledAt,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}

	// Срок удержания имеет смысл только до оплаты
	if b.Status == domain.StatusPendingPayment {
		resp.HoldExpiresAt = b.HoldExpiresAt
	}

	return resp
}

// FromDomainBookingList конвертирует список domain моделей в DTO
func FromDomainBookingList(bookings []*domain.Booking) *BookingListResponse {
	resp := &BookingListResponse{
		Bookings: make([]BookingResponse, 0, len(bookings)),
	}

	for _, b := range bookings {
		resp.Bookings = append(resp.Bookings, *FromDomainBooking(b))
	}

	return resp
}

// ToDomainBookingStatus конвертирует строку в domain.BookingStatus
func ToDomainBookingStatus(s string) (domain.BookingStatus, error) {
	return domain.ParseBookingStatus(s)
}
