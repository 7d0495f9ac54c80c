package anomaly

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/pkg/dbmetrics"
	"github.com/m04kA/SMC-GarageBooking/pkg/psqlbuilder"
)

const defaultListLimit = 100

var columns = []string{
	"id",
	"kind",
	"payment_id",
	"booking_id",
	"checkout_request_id",
	"payment_status",
	"booking_status",
	"description",
	"raw_payload",
	"resolved",
	"resolution_note",
	"resolved_by",
	"resolved_at",
	"created_at",
}

// Repository журнал аномалий сверки (только добавление и отметка о разборе)
type Repository struct {
	db DBExecutor
}

func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет аномалию
func (r *Repository) Create(ctx context.Context, anomaly *domain.ReconciliationAnomaly) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("reconciliation_anomalies").
		Columns(
			"kind",
			"payment_id",
			"booking_id",
			"checkout_request_id",
			"payment_status",
			"booking_status",
			"description",
			"raw_payload",
			"created_at",
		).
		Values(
			anomaly.Kind,
			anomaly.PaymentID,
			anomaly.BookingID,
			anomaly.CheckoutRequestID,
			anomaly.PaymentStatus,
			anomaly.BookingStatus,
			anomaly.Description,
			anomaly.RawPayload,
			anomaly.CreatedAt,
		).
		Suffix("RETURNING id").
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&anomaly.ID); err != nil {
		return fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	return nil
}

// CreateOrphan сохраняет orphan_notification, если для этого checkout_request_id её ещё нет.
// При повторе anomaly заполняется уже сохранённой записью и возвращается false
func (r *Repository) CreateOrphan(ctx context.Context, anomaly *domain.ReconciliationAnomaly) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("reconciliation_anomalies").
		Columns(
			"kind",
			"checkout_request_id",
			"description",
			"raw_payload",
			"created_at",
		).
		Values(
			domain.AnomalyOrphanNotification,
			anomaly.CheckoutRequestID,
			anomaly.Description,
			anomaly.RawPayload,
			anomaly.CreatedAt,
		).
		Suffix("ON CONFLICT (checkout_request_id) WHERE kind = 'orphan_notification' DO NOTHING RETURNING id").
		ToSql()

	if err != nil {
		return false, fmt.Errorf("%w: CreateOrphan - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&anomaly.ID)
	if err == nil {
		anomaly.Kind = domain.AnomalyOrphanNotification
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: CreateOrphan - execute insert: %w", ErrExecQuery, err)
	}

	query, args, err = psqlbuilder.Select(columns...).
		From("reconciliation_anomalies").
		Where(squirrel.Eq{
			"kind":                domain.AnomalyOrphanNotification,
			"checkout_request_id": anomaly.CheckoutRequestID,
		}).
		ToSql()

	if err != nil {
		return false, fmt.Errorf("%w: CreateOrphan - build select query: %v", ErrBuildQuery, err)
	}

	existing, err := scanAnomaly(executor.QueryRowContext(ctx, query, args...))
	if err != nil {
		return false, fmt.Errorf("%w: CreateOrphan - scan existing anomaly: %w", ErrScanRow, err)
	}

	*anomaly = *existing
	return false, nil
}

// GetByID получает аномалию по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.ReconciliationAnomaly, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From("reconciliation_anomalies").
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	anomaly, err := scanAnomaly(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAnomalyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan anomaly: %w", ErrScanRow, err)
	}

	return anomaly, nil
}

// List получает аномалии по фильтру, новые первыми
func (r *Repository) List(ctx context.Context, filter domain.AnomalyFilter) ([]*domain.ReconciliationAnomaly, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	selectBuilder := psqlbuilder.Select(columns...).
		From("reconciliation_anomalies").
		OrderBy("id DESC").
		Limit(uint64(limit))

	if filter.Resolved != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"resolved": *filter.Resolved})
	}
	if filter.Kind != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"kind": *filter.Kind})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: List - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: List - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	anomalies := make([]*domain.ReconciliationAnomaly, 0)
	for rows.Next() {
		anomaly, err := scanAnomaly(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: List - scan row: %w", ErrScanRow, err)
		}
		anomalies = append(anomalies, anomaly)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: List - rows error: %w", ErrScanRow, err)
	}

	return anomalies, nil
}

// Resolve отмечает аномалию разобранной
func (r *Repository) Resolve(ctx context.Context, id int64, note string, resolvedBy int64, now time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("reconciliation_anomalies").
		Set("resolved", true).
		Set("resolution_note", note).
		Set("resolved_by", resolvedBy).
		Set("resolved_at", now).
		Where(squirrel.Eq{"id": id, "resolved": false}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Resolve - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Resolve - execute update: %w", ErrExecQuery, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Resolve - get rows affected: %w", ErrExecQuery, err)
	}

	if affected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyResolved
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnomaly(row rowScanner) (*domain.ReconciliationAnomaly, error) {
	var anomaly domain.ReconciliationAnomaly

	err := row.Scan(
		&anomaly.ID,
		&anomaly.Kind,
		&anomaly.PaymentID,
		&anomaly.BookingID,
		&anomaly.CheckoutRequestID,
		&anomaly.PaymentStatus,
		&anomaly.BookingStatus,
		&anomaly.Description,
		&anomaly.RawPayload,
		&anomaly.Resolved,
		&anomaly.ResolutionNote,
		&anomaly.ResolvedBy,
		&anomaly.ResolvedAt,
		&anomaly.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &anomaly, nil
}
