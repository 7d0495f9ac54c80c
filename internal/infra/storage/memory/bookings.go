package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	bookingRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/booking"
)

// BookingRepository бронирования в памяти
type BookingRepository struct {
	store *Store
}

// Insert атомарно проверяет ключ идемпотентности и пересечение с блокирующими
// бронированиями той же даты, затем вставляет. При конфликте возвращает false без ошибки.
func (r *BookingRepository) Insert(ctx context.Context, booking *domain.Booking) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if booking.IdempotencyKey != "" {
		if _, exists := s.bookingsByKey[booking.IdempotencyKey]; exists {
			return false, nil
		}
	}

	day := booking.BookingDate.Format(domain.DateFormat)
	for _, existing := range s.bookings {
		if !existing.Status.IsBlocking() {
			continue
		}
		if existing.BookingDate.Format(domain.DateFormat) != day {
			continue
		}
		if existing.TimeSlot.Overlaps(booking.TimeSlot) {
			return false, nil
		}
	}

	s.nextBookingID++
	booking.ID = s.nextBookingID
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now()
	}
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = booking.CreatedAt
	}

	stored := *booking
	s.bookings[stored.ID] = &stored
	if stored.IdempotencyKey != "" {
		s.bookingsByKey[stored.IdempotencyKey] = stored.ID
	}

	return true, nil
}

func (r *BookingRepository) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	return r.get(id)
}

// GetForUpdate внутри транзакции блокирует бронирование до её завершения
func (r *BookingRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	r.store.lockRow(ctx, bookingLockKey(id))
	return r.get(id)
}

func (r *BookingRepository) GetByIdempotencyKey(_ context.Context, key string) (*domain.Booking, error) {
	s := r.store
	s.mu.Lock()
	id, ok := s.bookingsByKey[key]
	s.mu.Unlock()

	if !ok {
		return nil, bookingRepo.ErrBookingNotFound
	}
	return r.get(id)
}

func (r *BookingRepository) List(_ context.Context, filter domain.BookingFilter) ([]*domain.Booking, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.Booking, 0)
	for _, booking := range s.bookings {
		if filter.CustomerID != nil && booking.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.StaffID != nil && (booking.StaffID == nil || *booking.StaffID != *filter.StaffID) {
			continue
		}
		if filter.Date != nil && booking.BookingDate.Format(domain.DateFormat) != filter.Date.Format(domain.DateFormat) {
			continue
		}
		if filter.Status != nil && booking.Status != *filter.Status {
			continue
		}
		copied := *booking
		result = append(result, &copied)
	}

	if filter.Date != nil {
		sort.Slice(result, func(i, j int) bool {
			if result[i].TimeSlot.Start == result[j].TimeSlot.Start {
				return result[i].ID < result[j].ID
			}
			return result[i].TimeSlot.Start.IsBefore(result[j].TimeSlot.Start)
		})
	} else {
		sort.Slice(result, func(i, j int) bool {
			di := result[i].BookingDate.Format(domain.DateFormat)
			dj := result[j].BookingDate.Format(domain.DateFormat)
			if di != dj {
				return di > dj
			}
			return result[j].TimeSlot.Start.IsBefore(result[i].TimeSlot.Start)
		})
	}

	return result, nil
}

func (r *BookingRepository) FindExpiredHolds(_ context.Context, date time.Time, slot domain.TimeSlot, now time.Time) ([]int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	day := date.Format(domain.DateFormat)
	ids := make([]int64, 0)
	for _, booking := range s.bookings {
		if booking.BookingDate.Format(domain.DateFormat) != day {
			continue
		}
		if !booking.IsHoldExpired(now) || !booking.TimeSlot.Overlaps(slot) {
			continue
		}
		ids = append(ids, booking.ID)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *BookingRepository) UpdateStatus(_ context.Context, booking *domain.Booking) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bookings[booking.ID]
	if !ok {
		return fmt.Errorf("%w: id=%d", bookingRepo.ErrBookingNotFound, booking.ID)
	}

	stored.Status = booking.Status
	stored.CancellationReason = booking.CancellationReason
	stored.CancelledAt = booking.CancelledAt
	stored.UpdatedAt = booking.UpdatedAt
	return nil
}

func (r *BookingRepository) AssignStaff(_ context.Context, id int64, staffID int64, now time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bookings[id]
	if !ok {
		return fmt.Errorf("%w: id=%d", bookingRepo.ErrBookingNotFound, id)
	}

	stored.StaffID = &staffID
	stored.UpdatedAt = now
	return nil
}

func (r *BookingRepository) get(id int64) (*domain.Booking, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrBookingNotFound
	}
	copied := *stored
	return &copied, nil
}

func bookingLockKey(id int64) string {
	return fmt.Sprintf("booking:%d", id)
}
