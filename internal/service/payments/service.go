package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	bookingRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/booking"
	paymentRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/payment"
	"github.com/m04kA/SMC-GarageBooking/internal/service/payments/models"
)

// Service чтение платежей
type Service struct {
	paymentRepo PaymentRepository
	bookingRepo BookingRepository
	logger      Logger
}

func NewService(paymentRepo PaymentRepository, bookingRepo BookingRepository, logger Logger) *Service {
	return &Service{
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		logger:      logger,
	}
}

// GetByID получает платёж; клиент видит только свои платежи
func (s *Service) GetByID(ctx context.Context, id int64, principal domain.Principal) (*models.PaymentResponse, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, paymentRepo.ErrPaymentNotFound) {
			s.logger.Warn("GetPayment: payment id=%d not found", id)
			return nil, ErrPaymentNotFound
		}
		s.logger.Error("GetPayment: repository error for payment id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	if !principal.CanAccessCustomer(payment.CustomerID) {
		s.logger.Warn("GetPayment: access denied for user=%d to payment id=%d", principal.UserID, id)
		return nil, ErrAccessDenied
	}

	return models.FromDomainPayment(payment), nil
}

// ListByBooking получает все платежи бронирования
func (s *Service) ListByBooking(ctx context.Context, bookingID int64, principal domain.Principal) ([]*models.PaymentResponse, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("ListBookingPayments: repository error for booking id=%d: %v", bookingID, err)
		return nil, fmt.Errorf("%w: ListByBooking - get booking: %v", ErrInternal, err)
	}

	if !principal.CanAccessCustomer(booking.CustomerID) {
		s.logger.Warn("ListBookingPayments: access denied for user=%d to booking id=%d", principal.UserID, bookingID)
		return nil, ErrAccessDenied
	}

	payments, err := s.paymentRepo.ListByBooking(ctx, bookingID)
	if err != nil {
		s.logger.Error("ListBookingPayments: repository error for booking id=%d: %v", bookingID, err)
		return nil, fmt.Errorf("%w: ListByBooking - list payments: %v", ErrInternal, err)
	}

	result := make([]*models.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		result = append(result, models.FromDomainPayment(p))
	}
	return result, nil
}
