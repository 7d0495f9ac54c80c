package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	bookingRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/booking"
	"github.com/m04kA/SMC-GarageBooking/internal/service/bookings/models"
	"github.com/m04kA/SMC-GarageBooking/internal/service/lifecycle"
)

// Service сервис для чтения бронирований и операций сотрудников
type Service struct {
	bookingRepo  BookingRepository
	lifecycle    Lifecycle
	timeProvider TimeProvider
	logger       Logger
}

// NewService создает новый экземпляр сервиса бронирований
func NewService(
	bookingRepo BookingRepository,
	lifecycle Lifecycle,
	timeProvider TimeProvider,
	logger Logger,
) *Service {
	if timeProvider == nil {
		timeProvider = &RealTimeProvider{}
	}
	return &Service{
		bookingRepo:  bookingRepo,
		lifecycle:    lifecycle,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// GetByID получает бронирование по ID.
// Клиент видит только свои бронирования, сотрудник любые.
// Истёкшее удержание отображается как failed.
func (s *Service) GetByID(ctx context.Context, id int64, principal domain.Principal) (*models.BookingResponse, error) {
	s.logger.Info("GetByID: fetching booking id=%d for user=%d", id, principal.UserID)

	booking, err := s.load(ctx, "GetByID", id)
	if err != nil {
		return nil, err
	}

	if !principal.CanAccessCustomer(booking.CustomerID) {
		s.logger.Warn("GetByID: access denied for user=%d to booking id=%d", principal.UserID, id)
		return nil, ErrAccessDenied
	}

	return models.FromDomainBooking(booking.Snapshot(s.timeProvider.Now())), nil
}

// GetCustomerBookings получает историю бронирований клиента.
// Фильтр по статусу применяется к статусу с учётом истёкших удержаний.
func (s *Service) GetCustomerBookings(ctx context.Context, req *models.GetCustomerBookingsRequest, principal domain.Principal) (*models.BookingListResponse, error) {
	s.logger.Info("GetCustomerBookings: fetching bookings for customer=%d, status=%v", req.CustomerID, req.Status)

	if !principal.CanAccessCustomer(req.CustomerID) {
		s.logger.Warn("GetCustomerBookings: access denied for user=%d to customer=%d", principal.UserID, req.CustomerID)
		return nil, ErrAccessDenied
	}

	var status *domain.BookingStatus
	if req.Status != nil {
		parsed, err := models.ToDomainBookingStatus(*req.Status)
		if err != nil {
			s.logger.Warn("GetCustomerBookings: invalid status=%s", *req.Status)
			return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
		}
		status = &parsed
	}

	bookings, err := s.bookingRepo.List(ctx, domain.BookingFilter{CustomerID: &req.CustomerID})
	if err != nil {
		s.logger.Error("GetCustomerBookings: repository error for customer=%d: %v", req.CustomerID, err)
		return nil, fmt.Errorf("%w: GetCustomerBookings - repository error: %v", ErrInternal, err)
	}

	snapshots := s.snapshots(bookings, status)

	s.logger.Info("GetCustomerBookings: fetched %d bookings for customer=%d", len(snapshots), req.CustomerID)
	return models.FromDomainBookingList(snapshots), nil
}

// GetBookingsByDate получает бронирования на дату (только сотрудники)
func (s *Service) GetBookingsByDate(ctx context.Context, date time.Time, principal domain.Principal) (*models.BookingListResponse, error) {
	s.logger.Info("GetBookingsByDate: fetching bookings for date=%s by user=%d", date.Format(domain.DateFormat), principal.UserID)

	if !principal.IsStaff() {
		s.logger.Warn("GetBookingsByDate: user=%d is not staff", principal.UserID)
		return nil, ErrAccessDenied
	}

	bookings, err := s.bookingRepo.List(ctx, domain.BookingFilter{Date: &date})
	if err != nil {
		s.logger.Error("GetBookingsByDate: repository error for date=%s: %v", date.Format(domain.DateFormat), err)
		return nil, fmt.Errorf("%w: GetBookingsByDate - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainBookingList(s.snapshots(bookings, nil)), nil
}

// Cancel отменяет бронирование.
// Клиент может отменить своё бронирование, сотрудник любое.
// Отмена уже завершённого/отменённого/неоплаченного бронирования ничего не меняет (Applied=false).
func (s *Service) Cancel(ctx context.Context, id int64, req *models.CancelBookingRequest, principal domain.Principal) (*models.TransitionResponse, error) {
	s.logger.Info("Cancel: cancelling booking id=%d by user=%d", id, principal.UserID)

	if req.Reason != nil && len(*req.Reason) > domain.MaxCancellationReasonLength {
		return nil, fmt.Errorf("%w: reason exceeds %d characters", ErrInvalidInput, domain.MaxCancellationReasonLength)
	}

	booking, err := s.load(ctx, "Cancel", id)
	if err != nil {
		return nil, err
	}

	if !principal.CanAccessCustomer(booking.CustomerID) {
		s.logger.Warn("Cancel: access denied for user=%d to booking id=%d", principal.UserID, id)
		return nil, ErrAccessDenied
	}

	result, err := s.lifecycle.Apply(ctx, id, domain.EventCancel, lifecycle.Meta{Reason: req.Reason, Actor: &principal.UserID})
	if err != nil {
		if errors.Is(err, lifecycle.ErrIllegalTransition) {
			s.logger.Warn("Cancel: booking id=%d cannot be cancelled: %v", id, err)
			return nil, ErrCannotCancel
		}
		return nil, s.wrapLifecycleError("Cancel", id, err)
	}

	s.logger.Info("Cancel: booking id=%d status=%s applied=%t", id, result.To, result.Applied)
	return &models.TransitionResponse{Booking: models.FromDomainBooking(result.Booking), Applied: result.Applied}, nil
}

// UpdateStatus переводит бронирование сотрудником: in_progress, completed или cancelled
func (s *Service) UpdateStatus(ctx context.Context, id int64, req *models.UpdateStatusRequest, principal domain.Principal) (*models.TransitionResponse, error) {
	s.logger.Info("UpdateStatus: updating booking id=%d to status=%s by user=%d", id, req.Status, principal.UserID)

	if !principal.IsStaff() {
		s.logger.Warn("UpdateStatus: user=%d is not staff", principal.UserID)
		return nil, ErrAccessDenied
	}

	status, err := models.ToDomainBookingStatus(req.Status)
	if err != nil {
		s.logger.Warn("UpdateStatus: invalid status=%s for booking id=%d", req.Status, id)
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	event, ok := staffEvents[status]
	if !ok {
		s.logger.Warn("UpdateStatus: status=%s cannot be set manually", status)
		return nil, fmt.Errorf("%w: %s cannot be set manually", ErrInvalidStatus, status)
	}

	result, err := s.lifecycle.Apply(ctx, id, event, lifecycle.Meta{Actor: &principal.UserID})
	if err != nil {
		if errors.Is(err, lifecycle.ErrIllegalTransition) {
			s.logger.Warn("UpdateStatus: booking id=%d: %v", id, err)
			return nil, fmt.Errorf("%w: %v", ErrIllegalTransition, err)
		}
		return nil, s.wrapLifecycleError("UpdateStatus", id, err)
	}

	s.logger.Info("UpdateStatus: booking id=%d status=%s applied=%t", id, result.To, result.Applied)
	return &models.TransitionResponse{Booking: models.FromDomainBooking(result.Booking), Applied: result.Applied}, nil
}

// AssignStaff назначает сотрудника на активное бронирование
func (s *Service) AssignStaff(ctx context.Context, id int64, req *models.AssignStaffRequest, principal domain.Principal) (*models.BookingResponse, error) {
	s.logger.Info("AssignStaff: booking id=%d staff=%d by user=%d", id, req.StaffID, principal.UserID)

	if !principal.IsStaff() {
		s.logger.Warn("AssignStaff: user=%d is not staff", principal.UserID)
		return nil, ErrAccessDenied
	}
	if req.StaffID <= 0 {
		return nil, fmt.Errorf("%w: staffId must be positive", ErrInvalidInput)
	}

	booking, err := s.load(ctx, "AssignStaff", id)
	if err != nil {
		return nil, err
	}

	now := s.timeProvider.Now()
	if !booking.BlocksSlot(now) {
		s.logger.Warn("AssignStaff: booking id=%d is %s", id, booking.EffectiveStatus(now))
		return nil, ErrBookingClosed
	}

	if err := s.bookingRepo.AssignStaff(ctx, id, req.StaffID, now); err != nil {
		s.logger.Error("AssignStaff: repository error for booking id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: AssignStaff - repository error: %v", ErrInternal, err)
	}

	booking.StaffID = &req.StaffID
	booking.UpdatedAt = now

	return models.FromDomainBooking(booking.Snapshot(now)), nil
}

// staffEvents статусы, которые сотрудник может выставить вручную
var staffEvents = map[domain.BookingStatus]domain.BookingEvent{
	domain.StatusInProgress: domain.EventStart,
	domain.StatusCompleted:  domain.EventComplete,
	domain.StatusCancelled:  domain.EventCancel,
}

// Вспомогательные методы

func (s *Service) load(ctx context.Context, op string, id int64) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			s.logger.Warn("%s: booking id=%d not found", op, id)
			return nil, ErrBookingNotFound
		}
		s.logger.Error("%s: repository error for booking id=%d: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}
	return booking, nil
}

func (s *Service) snapshots(bookings []*domain.Booking, status *domain.BookingStatus) []*domain.Booking {
	now := s.timeProvider.Now()
	result := make([]*domain.Booking, 0, len(bookings))
	for _, b := range bookings {
		snapshot := b.Snapshot(now)
		if status != nil && snapshot.Status != *status {
			continue
		}
		result = append(result, snapshot)
	}
	return result
}

func (s *Service) wrapLifecycleError(op string, id int64, err error) error {
	if errors.Is(err, lifecycle.ErrBookingNotFound) {
		return ErrBookingNotFound
	}
	s.logger.Error("%s: lifecycle error for booking id=%d: %v", op, id, err)
	return fmt.Errorf("%w: %s - lifecycle error: %v", ErrInternal, op, err)
}
