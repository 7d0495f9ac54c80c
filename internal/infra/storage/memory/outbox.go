package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

// OutboxRepository очередь событий в памяти (порядок вставки сохраняется)
type OutboxRepository struct {
	store *Store
}

func (r *OutboxRepository) Create(_ context.Context, event *domain.OutboxEvent) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *event
	s.outbox = append(s.outbox, &stored)
	return nil
}

func (r *OutboxRepository) FetchPending(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]*domain.OutboxEvent, 0, limit)
	for _, event := range s.outbox {
		if len(events) >= limit {
			break
		}
		if event.Status != domain.OutboxPending {
			continue
		}
		copied := *event
		events = append(events, &copied)
	}
	return events, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, ids []uuid.UUID, now time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sent := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		sent[id] = struct{}{}
	}

	for _, event := range s.outbox {
		if _, ok := sent[event.ID]; ok {
			event.Status = domain.OutboxSent
			sentAt := now
			event.SentAt = &sentAt
		}
	}
	return nil
}

// All возвращает все события, включая отправленные
func (r *OutboxRepository) All(_ context.Context) []*domain.OutboxEvent {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]*domain.OutboxEvent, 0, len(s.outbox))
	for _, event := range s.outbox {
		copied := *event
		events = append(events, &copied)
	}
	return events
}
