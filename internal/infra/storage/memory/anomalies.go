package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	anomalyRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/anomaly"
)

const defaultAnomalyLimit = 100

// AnomalyRepository журнал аномалий в памяти
type AnomalyRepository struct {
	store *Store
}

func (r *AnomalyRepository) Create(_ context.Context, anomaly *domain.ReconciliationAnomaly) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAnomalyID++
	anomaly.ID = s.nextAnomalyID

	stored := *anomaly
	s.anomalies[stored.ID] = &stored
	return nil
}

// CreateOrphan повторяет уникальный индекс orphan_notification по checkout_request_id
func (r *AnomalyRepository) CreateOrphan(_ context.Context, anomaly *domain.ReconciliationAnomaly) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if anomaly.CheckoutRequestID != nil {
		for _, stored := range s.anomalies {
			if stored.Kind == domain.AnomalyOrphanNotification &&
				stored.CheckoutRequestID != nil && *stored.CheckoutRequestID == *anomaly.CheckoutRequestID {
				*anomaly = *stored
				return false, nil
			}
		}
	}

	s.nextAnomalyID++
	anomaly.ID = s.nextAnomalyID
	anomaly.Kind = domain.AnomalyOrphanNotification

	stored := *anomaly
	s.anomalies[stored.ID] = &stored
	return true, nil
}

func (r *AnomalyRepository) GetByID(_ context.Context, id int64) (*domain.ReconciliationAnomaly, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.anomalies[id]
	if !ok {
		return nil, anomalyRepo.ErrAnomalyNotFound
	}
	copied := *stored
	return &copied, nil
}

// List возвращает аномалии по фильтру, новые первыми
func (r *AnomalyRepository) List(_ context.Context, filter domain.AnomalyFilter) ([]*domain.ReconciliationAnomaly, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.ReconciliationAnomaly, 0)
	for _, anomaly := range s.anomalies {
		if filter.Resolved != nil && anomaly.Resolved != *filter.Resolved {
			continue
		}
		if filter.Kind != nil && anomaly.Kind != *filter.Kind {
			continue
		}
		copied := *anomaly
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAnomalyLimit
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *AnomalyRepository) Resolve(_ context.Context, id int64, note string, resolvedBy int64, now time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.anomalies[id]
	if !ok {
		return anomalyRepo.ErrAnomalyNotFound
	}
	if stored.Resolved {
		return anomalyRepo.ErrAlreadyResolved
	}

	stored.Resolved = true
	stored.ResolutionNote = &note
	stored.ResolvedBy = &resolvedBy
	stored.ResolvedAt = &now
	return nil
}
