package reconcile_payment

import "github.com/m04kA/SMC-GarageBooking/internal/domain"

// Outcome результат обработки уведомления
type Outcome string

const (
	// OutcomeApplied результат применён к платежу и бронированию
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate повтор уже учтённого уведомления, ничего не изменено
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeOrphan платёж не найден
	OutcomeOrphan Outcome = "orphan"
	// OutcomeAnomaly зафиксирована аномалия для ручного разбора
	OutcomeAnomaly Outcome = "anomaly"
)

// Request модель уведомления шлюза
type Request struct {
	Notification *domain.PaymentNotification
}

// Response модель результата сверки
type Response struct {
	Outcome       Outcome
	PaymentID     *int64
	BookingID     *int64
	PaymentStatus *domain.PaymentStatus
	BookingStatus *domain.BookingStatus
	Anomaly       *domain.ReconciliationAnomaly
}
