package domain

import "time"

// AnomalyKind вид аномалии сверки платежей
type AnomalyKind string

const (
	// AnomalyOrphanNotification уведомление не сопоставлено ни с одним платежом
	AnomalyOrphanNotification AnomalyKind = "orphan_notification"
	// AnomalyInconsistentDuplicate повторное уведомление противоречит зафиксированному результату
	AnomalyInconsistentDuplicate AnomalyKind = "inconsistent_duplicate"
	// AnomalyPaidForUnheldSlot оплата пришла после того, как бронирование покинуло pending_payment
	AnomalyPaidForUnheldSlot AnomalyKind = "paid_for_unheld_slot"
	// AnomalyDuplicateCharge повторное списание по уже оплаченному платежу
	AnomalyDuplicateCharge AnomalyKind = "duplicate_charge"
)

// ReconciliationAnomaly запись для ручного разбора (например, ручного возврата).
// Никогда не удаляется.
type ReconciliationAnomaly struct {
	ID                int64
	Kind              AnomalyKind
	PaymentID         *int64
	BookingID         *int64
	CheckoutRequestID *string
	PaymentStatus     *PaymentStatus
	BookingStatus     *BookingStatus
	Description       string
	RawPayload        []byte

	Resolved       bool
	ResolutionNote *string
	ResolvedBy     *int64
	ResolvedAt     *time.Time

	CreatedAt time.Time
}

// AnomalyFilter фильтр для выборки аномалий
type AnomalyFilter struct {
	Resolved *bool
	Kind     *AnomalyKind
	Limit    int
}
