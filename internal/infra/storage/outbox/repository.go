package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/pkg/dbmetrics"
	"github.com/m04kA/SMC-GarageBooking/pkg/psqlbuilder"
)

// Repository таблица outbox_events. События пишутся в той же транзакции,
// что и изменение состояния, и публикуются в Kafka отдельным процессом.
type Repository struct {
	db DBExecutor
}

func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет событие
func (r *Repository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("outbox_events").
		Columns("id", "aggregate_type", "aggregate_id", "event_type", "payload", "status", "created_at").
		Values(event.ID, event.AggregateType, event.AggregateID, event.EventType, string(event.Payload), event.Status, event.CreatedAt).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	return nil
}

// FetchPending выбирает неотправленные события в порядке создания.
// Внутри транзакции строки блокируются с SKIP LOCKED, чтобы несколько реле не публиковали одно событие.
func (r *Repository) FetchPending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select("id", "aggregate_type", "aggregate_id", "event_type", "payload", "status", "created_at", "sent_at").
		From("outbox_events").
		Where(squirrel.Eq{"status": domain.OutboxPending}).
		OrderBy("created_at ASC").
		Limit(uint64(limit))

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE SKIP LOCKED")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: FetchPending - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: FetchPending - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	events := make([]*domain.OutboxEvent, 0, limit)
	for rows.Next() {
		var event domain.OutboxEvent
		if err := rows.Scan(
			&event.ID,
			&event.AggregateType,
			&event.AggregateID,
			&event.EventType,
			&event.Payload,
			&event.Status,
			&event.CreatedAt,
			&event.SentAt,
		); err != nil {
			return nil, fmt.Errorf("%w: FetchPending - scan row: %w", ErrScanRow, err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: FetchPending - rows error: %w", ErrScanRow, err)
	}

	return events, nil
}

// MarkSent отмечает события отправленными
func (r *Repository) MarkSent(ctx context.Context, ids []uuid.UUID, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	executor := dbmetrics.GetExecutor(ctx, r.db)

	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}

	query, args, err := psqlbuilder.Update("outbox_events").
		Set("status", domain.OutboxSent).
		Set("sent_at", now).
		Where(squirrel.Eq{"id": raw}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: MarkSent - build update query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: MarkSent - execute update: %w", ErrExecQuery, err)
	}

	return nil
}
