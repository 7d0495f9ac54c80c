package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 50
)

// Заголовки сообщения
const (
	HeaderEventID       = "event_id"
	HeaderEventType     = "event_type"
	HeaderAggregateType = "aggregate_type"
)

var ErrUnknownAggregate = errors.New("outbox: unknown aggregate type")

type Repository interface {
	FetchPending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkSent(ctx context.Context, ids []uuid.UUID, now time.Time) error
}

type Producer interface {
	Produce(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}

type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type Metrics interface {
	IncOutboxPublished(eventType string)
}

type TimeProvider interface {
	Now() time.Time
}

type RealTimeProvider struct{}

func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}

type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Topics топики по типу агрегата
type Topics struct {
	Booking string
	Payment string
	Anomaly string
}

func (t Topics) forAggregate(aggregateType string) (string, error) {
	switch aggregateType {
	case domain.AggregateBooking:
		return t.Booking, nil
	case domain.AggregatePayment:
		return t.Payment, nil
	case domain.AggregateAnomaly:
		return t.Anomaly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAggregate, aggregateType)
	}
}

// Processor переносит события из outbox в брокер.
// Доставка at-least-once: событие отмечается отправленным только после подтверждения брокера.
type Processor struct {
	repo         Repository
	producer     Producer
	txManager    TransactionManager
	topics       Topics
	pollInterval time.Duration
	batchSize    int
	metrics      Metrics
	timeProvider TimeProvider
	logger       Logger
}

func NewProcessor(
	repo Repository,
	producer Producer,
	txManager TransactionManager,
	topics Topics,
	pollInterval time.Duration,
	batchSize int,
	metrics Metrics,
	timeProvider TimeProvider,
	logger Logger,
) *Processor {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if timeProvider == nil {
		timeProvider = &RealTimeProvider{}
	}
	return &Processor{
		repo:         repo,
		producer:     producer,
		txManager:    txManager,
		topics:       topics,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		metrics:      metrics,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Run опрашивает outbox до отмены контекста
func (p *Processor) Run(ctx context.Context) {
	p.logger.Info("Outbox processor started: poll_interval=%s, batch_size=%d", p.pollInterval, p.batchSize)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox processor stopped")
			return
		case <-ticker.C:
			sent, err := p.ProcessBatch(ctx)
			if err != nil {
				p.logger.Error("Outbox processor: batch failed: %v", err)
				continue
			}
			if sent > 0 {
				p.logger.Debug("Outbox processor: published %d events", sent)
			}
		}
	}
}

// ProcessBatch публикует одну пачку событий и возвращает число отправленных.
// Публикация останавливается на первой ошибке, чтобы не нарушить порядок событий агрегата.
func (p *Processor) ProcessBatch(ctx context.Context) (int, error) {
	sent := 0

	err := p.txManager.Do(ctx, func(ctx context.Context) error {
		events, err := p.repo.FetchPending(ctx, p.batchSize)
		if err != nil {
			return fmt.Errorf("fetch pending: %w", err)
		}
		if len(events) == 0 {
			return nil
		}

		published := make([]uuid.UUID, 0, len(events))
		var publishErr error
		for _, event := range events {
			if err := p.publish(ctx, event); err != nil {
				publishErr = err
				break
			}
			published = append(published, event.ID)
			p.metrics.IncOutboxPublished(event.EventType)
		}

		if len(published) > 0 {
			if err := p.repo.MarkSent(ctx, published, p.timeProvider.Now()); err != nil {
				return fmt.Errorf("mark sent: %w", err)
			}
			sent = len(published)
		}

		if publishErr != nil {
			p.logger.Warn("Outbox processor: publish stopped after %d events: %v", len(published), publishErr)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("outbox: %w", err)
	}

	return sent, nil
}

func (p *Processor) publish(ctx context.Context, event *domain.OutboxEvent) error {
	topic, err := p.topics.forAggregate(event.AggregateType)
	if err != nil {
		return err
	}

	headers := map[string]string{
		HeaderEventID:       event.ID.String(),
		HeaderEventType:     event.EventType,
		HeaderAggregateType: event.AggregateType,
	}
	key := fmt.Sprintf("%d", event.AggregateID)

	if err := p.producer.Produce(ctx, topic, key, event.Payload, headers); err != nil {
		return fmt.Errorf("produce event_id=%s: %w", event.ID, err)
	}
	return nil
}
