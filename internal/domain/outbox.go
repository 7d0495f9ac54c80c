package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus статус события в outbox
type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxSent    OutboxStatus = "sent"
)

// Aggregate types
const (
	AggregateBooking = "booking"
	AggregatePayment = "payment"
	AggregateAnomaly = "anomaly"
)

// Event types
const (
	EventTypePaymentRefunded       = "payment.refunded"
	EventTypeReconciliationAnomaly = "reconciliation.anomaly"
)

// BookingEventType возвращает тип события перехода бронирования в статус
func BookingEventType(status BookingStatus) string {
	return "booking." + string(status)
}

// OutboxEvent событие, записанное в одной транзакции с изменением состояния
type OutboxEvent struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   int64
	EventType     string
	Payload       []byte
	Status        OutboxStatus
	CreatedAt     time.Time
	SentAt        *time.Time
}

// NewOutboxEvent сериализует payload в JSON и создает событие в статусе pending
func NewOutboxEvent(aggregateType string, aggregateID int64, eventType string, payload interface{}, now time.Time) (*OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("domain: failed to marshal %s payload: %w", eventType, err)
	}

	return &OutboxEvent{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
		Status:        OutboxPending,
		CreatedAt:     now,
	}, nil
}

// BookingStatusChangedPayload payload события изменения статуса бронирования
type BookingStatusChangedPayload struct {
	BookingID   int64     `json:"booking_id"`
	CustomerID  int64     `json:"customer_id"`
	BookingDate string    `json:"booking_date"`
	StartTime   string    `json:"start_time"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Reason      *string   `json:"reason,omitempty"`
	ActorID     *int64    `json:"actor_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// PaymentRefundedPayload payload события возврата
type PaymentRefundedPayload struct {
	PaymentID    int64     `json:"payment_id"`
	BookingID    int64     `json:"booking_id"`
	CustomerID   int64     `json:"customer_id"`
	RefundAmount string    `json:"refund_amount"`
	Currency     string    `json:"currency"`
	Reason       string    `json:"reason"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// AnomalyRecordedPayload payload события аномалии сверки
type AnomalyRecordedPayload struct {
	AnomalyID  int64     `json:"anomaly_id"`
	Kind       string    `json:"kind"`
	PaymentID  *int64    `json:"payment_id,omitempty"`
	BookingID  *int64    `json:"booking_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
