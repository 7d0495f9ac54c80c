package anomalies

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	anomalyRepo "github.com/m04kA/SMC-GarageBooking/internal/infra/storage/anomaly"
	"github.com/m04kA/SMC-GarageBooking/internal/service/anomalies/models"
)

const maxListLimit = 500

var knownKinds = map[domain.AnomalyKind]struct{}{
	domain.AnomalyOrphanNotification:    {},
	domain.AnomalyInconsistentDuplicate: {},
	domain.AnomalyPaidForUnheldSlot:     {},
	domain.AnomalyDuplicateCharge:       {},
}

// Service очередь аномалий сверки для ручного разбора (только сотрудники)
type Service struct {
	anomalyRepo  AnomalyRepository
	timeProvider TimeProvider
	logger       Logger
}

func NewService(anomalyRepo AnomalyRepository, timeProvider TimeProvider, logger Logger) *Service {
	if timeProvider == nil {
		timeProvider = &RealTimeProvider{}
	}
	return &Service{
		anomalyRepo:  anomalyRepo,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// List возвращает аномалии по фильтру, новые первыми
func (s *Service) List(ctx context.Context, req *models.ListRequest, principal domain.Principal) (*models.AnomalyListResponse, error) {
	if !principal.IsStaff() {
		s.logger.Warn("ListAnomalies: user=%d is not staff", principal.UserID)
		return nil, ErrAccessDenied
	}

	filter := domain.AnomalyFilter{Resolved: req.Resolved, Limit: req.Limit}
	if req.Kind != nil {
		kind := domain.AnomalyKind(*req.Kind)
		if _, ok := knownKinds[kind]; !ok {
			return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, *req.Kind)
		}
		filter.Kind = &kind
	}
	if filter.Limit < 0 || filter.Limit > maxListLimit {
		return nil, fmt.Errorf("%w: limit must be between 0 and %d", ErrInvalidInput, maxListLimit)
	}

	anomalies, err := s.anomalyRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("ListAnomalies: repository error: %v", err)
		return nil, fmt.Errorf("%w: List - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainAnomalyList(anomalies), nil
}

// Resolve отмечает аномалию разобранной. Аномалии не удаляются.
func (s *Service) Resolve(ctx context.Context, id int64, req *models.ResolveRequest, principal domain.Principal) (*models.AnomalyResponse, error) {
	s.logger.Info("ResolveAnomaly: anomaly id=%d by user=%d", id, principal.UserID)

	if !principal.IsStaff() {
		s.logger.Warn("ResolveAnomaly: user=%d is not staff", principal.UserID)
		return nil, ErrAccessDenied
	}

	note := strings.TrimSpace(req.Note)
	if note == "" || len(note) > domain.MaxResolutionNoteLength {
		return nil, fmt.Errorf("%w: note must be 1..%d characters", ErrInvalidInput, domain.MaxResolutionNoteLength)
	}

	if err := s.anomalyRepo.Resolve(ctx, id, note, principal.UserID, s.timeProvider.Now()); err != nil {
		switch {
		case errors.Is(err, anomalyRepo.ErrAnomalyNotFound):
			return nil, ErrAnomalyNotFound
		case errors.Is(err, anomalyRepo.ErrAlreadyResolved):
			return nil, ErrAlreadyResolved
		}
		s.logger.Error("ResolveAnomaly: repository error for anomaly id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: Resolve - repository error: %v", ErrInternal, err)
	}

	anomaly, err := s.anomalyRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("ResolveAnomaly: failed to reload anomaly id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: Resolve - reload: %v", ErrInternal, err)
	}

	s.logger.Info("ResolveAnomaly: anomaly id=%d resolved", id)
	return models.FromDomainAnomaly(anomaly), nil
}
