package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	paymentRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/payment"
)

// PaymentRepository платежи в памяти
type PaymentRepository struct {
	store *Store
}

// Create сохраняет платёж; второй активный платёж по бронированию запрещён
func (r *PaymentRepository) Create(_ context.Context, payment *domain.Payment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.payments {
		if existing.BookingID == payment.BookingID && existing.Status.IsActive() {
			return paymentRepo.ErrActivePaymentExists
		}
	}

	s.nextPaymentID++
	payment.ID = s.nextPaymentID

	stored := *payment
	s.payments[stored.ID] = &stored
	return nil
}

func (r *PaymentRepository) GetByID(_ context.Context, id int64) (*domain.Payment, error) {
	return r.get(id)
}

// GetForUpdate внутри транзакции блокирует платёж до её завершения
func (r *PaymentRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Payment, error) {
	r.store.lockRow(ctx, fmt.Sprintf("payment:%d", id))
	return r.get(id)
}

func (r *PaymentRepository) GetByCheckoutRequestID(_ context.Context, checkoutRequestID string) (*domain.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, payment := range s.payments {
		if payment.CheckoutRequestID != nil && *payment.CheckoutRequestID == checkoutRequestID {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, paymentRepo.ErrPaymentNotFound
}

func (r *PaymentRepository) GetLatestByBooking(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	payments, err := r.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, paymentRepo.ErrPaymentNotFound
	}
	return payments[len(payments)-1], nil
}

func (r *PaymentRepository) ListByBooking(_ context.Context, bookingID int64) ([]*domain.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.Payment, 0)
	for _, payment := range s.payments {
		if payment.BookingID == bookingID {
			copied := *payment
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// MarkProcessing записывает идентификаторы шлюза один раз при любом статусе; pending -> processing
func (r *PaymentRepository) MarkProcessing(_ context.Context, id int64, merchantRequestID, checkoutRequestID string, now time.Time) (domain.PaymentStatus, error) {
	var status domain.PaymentStatus
	err := r.update(id, func(p *domain.Payment) bool {
		if p.CheckoutRequestID != nil {
			return false
		}
		if p.Status == domain.PaymentPending {
			p.Status = domain.PaymentProcessing
		}
		p.MerchantRequestID = &merchantRequestID
		p.CheckoutRequestID = &checkoutRequestID
		p.UpdatedAt = now
		status = p.Status
		return true
	})
	return status, err
}

func (r *PaymentRepository) MarkFailed(_ context.Context, id int64, resultDesc string, now time.Time) error {
	return r.update(id, func(p *domain.Payment) bool {
		if !p.Status.IsActive() {
			return false
		}
		p.Status = domain.PaymentFailed
		p.ResultDesc = &resultDesc
		p.UpdatedAt = now
		return true
	})
}

// ApplyNotification применяется только к платежу в статусе, допускающем уведомление
func (r *PaymentRepository) ApplyNotification(_ context.Context, payment *domain.Payment) (bool, error) {
	err := r.update(payment.ID, func(p *domain.Payment) bool {
		if !isNotifiable(p.Status) {
			return false
		}
		p.Status = payment.Status
		p.ResultCode = payment.ResultCode
		p.ResultDesc = payment.ResultDesc
		p.ReceiptNumber = payment.ReceiptNumber
		p.TransactionDate = payment.TransactionDate
		p.UpdatedAt = payment.UpdatedAt
		return true
	})
	if errors.Is(err, paymentRepo.ErrStatusChanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PaymentRepository) CancelActiveByBooking(_ context.Context, bookingID int64, now time.Time) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var cancelled int64
	for _, payment := range s.payments {
		if payment.BookingID == bookingID && payment.Status.IsActive() {
			payment.Status = domain.PaymentCancelled
			payment.UpdatedAt = now
			cancelled++
		}
	}
	return cancelled, nil
}

func (r *PaymentRepository) SaveRefund(_ context.Context, payment *domain.Payment) error {
	return r.update(payment.ID, func(p *domain.Payment) bool {
		if p.Status != domain.PaymentCompleted {
			return false
		}
		p.Status = domain.PaymentRefunded
		p.RefundAmount = payment.RefundAmount
		p.RefundReason = payment.RefundReason
		p.RefundedAt = payment.RefundedAt
		p.UpdatedAt = payment.UpdatedAt
		return true
	})
}

func (r *PaymentRepository) get(id int64) (*domain.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.payments[id]
	if !ok {
		return nil, paymentRepo.ErrPaymentNotFound
	}
	copied := *stored
	return &copied, nil
}

// update применяет mutate к сохранённому платежу; false от mutate означает, что условие не выполнено
func (r *PaymentRepository) update(id int64, mutate func(p *domain.Payment) bool) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.payments[id]
	if !ok {
		return paymentRepo.ErrPaymentNotFound
	}
	if !mutate(stored) {
		return paymentRepo.ErrStatusChanged
	}
	return nil
}

func isNotifiable(status domain.PaymentStatus) bool {
	for _, s := range domain.NotifiablePaymentStatuses {
		if s == status {
			return true
		}
	}
	return false
}
