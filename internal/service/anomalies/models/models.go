package models

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

// ListRequest фильтр списка аномалий
type ListRequest struct {
	Resolved *bool
	Kind     *string
	Limit    int
}

// ResolveRequest запрос на отметку аномалии разобранной
type ResolveRequest struct {
	Note string `json:"note"`
}

// AnomalyResponse аномалия сверки
type AnomalyResponse struct {
	ID                int64           `json:"id"`
	Kind              string          `json:"kind"`
	PaymentID         *int64          `json:"paymentId,omitempty"`
	BookingID         *int64          `json:"bookingId,omitempty"`
	CheckoutRequestID *string         `json:"checkoutRequestId,omitempty"`
	PaymentStatus     *string         `json:"paymentStatus,omitempty"`
	BookingStatus     *string         `json:"bookingStatus,omitempty"`
	Description       string          `json:"description"`
	RawPayload        json.RawMessage `json:"rawPayload,omitempty"`
	RawPayloadText    *string         `json:"rawPayloadText,omitempty"`
	Resolved          bool            `json:"resolved"`
	ResolutionNote    *string         `json:"resolutionNote,omitempty"`
	ResolvedBy        *int64          `json:"resolvedBy,omitempty"`
	ResolvedAt        *time.Time      `json:"resolvedAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// AnomalyListResponse список аномалий
type AnomalyListResponse struct {
	Anomalies []AnomalyResponse `json:"anomalies"`
}

// FromDomainAnomaly конвертирует domain модель в DTO.
// Сырой payload отдаётся как JSON, если он валиден, иначе строкой.
func FromDomainAnomaly(a *domain.ReconciliationAnomaly) *AnomalyResponse {
	resp := &AnomalyResponse{
		ID:                a.ID,
		Kind:              string(a.Kind),
		PaymentID:         a.PaymentID,
		BookingID:         a.BookingID,
		CheckoutRequestID: a.CheckoutRequestID,
		Description:       a.Description,
		Resolved:          a.Resolved,
		ResolutionNote:    a.ResolutionNote,
		ResolvedBy:        a.ResolvedBy,
		ResolvedAt:        a.ResolvedAt,
		CreatedAt:         a.CreatedAt,
	}

	if a.PaymentStatus != nil {
		status := string(*a.PaymentStatus)
		resp.PaymentStatus = &status
	}
	if a.BookingStatus != nil {
		status := string(*a.BookingStatus)
		resp.BookingStatus = &status
	}

	if len(a.RawPayload) > 0 {
		if json.Valid(a.RawPayload) {
			resp.RawPayload = json.RawMessage(a.RawPayload)
		} else if utf8.Valid(a.RawPayload) {
			text := string(a.RawPayload)
			resp.RawPayloadText = &text
		}
	}

	return resp
}

// FromDomainAnomalyList конвертирует список
func FromDomainAnomalyList(anomalies []*domain.ReconciliationAnomaly) *AnomalyListResponse {
	resp := &AnomalyListResponse{Anomalies: make([]AnomalyResponse, 0, len(anomalies))}
	for _, a := range anomalies {
		resp.Anomalies = append(resp.Anomalies, *FromDomainAnomaly(a))
	}
	return resp
}
