package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/pkg/dbmetrics"
	"github.com/m04kA/SMC-GarageBooking/pkg/psqlbuilder"
)

const pqUniqueViolation = "23505"

var columns = []string{
	"id",
	"booking_id",
	"customer_id",
	"amount",
	"currency",
	"phone_masked",
	"phone_hash",
	"merchant_request_id",
	"checkout_request_id",
	"receipt_number",
	"transaction_date",
	"status",
	"result_code",
	"result_desc",
	"refund_amount",
	"refund_reason",
	"refunded_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий платежей. Платежи никогда не удаляются.
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория платежей
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет новый платёж.
// Частичный уникальный индекс payments_one_active_per_booking не даёт создать
// второй активный платёж по бронированию.
func (r *Repository) Create(ctx context.Context, payment *domain.Payment) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("payments").
		Columns(
			"booking_id",
			"customer_id",
			"amount",
			"currency",
			"phone_masked",
			"phone_hash",
			"status",
			"created_at",
			"updated_at",
		).
		Values(
			payment.BookingID,
			payment.CustomerID,
			payment.Amount,
			payment.Currency,
			payment.PhoneMasked,
			payment.PhoneHash,
			payment.Status,
			payment.CreatedAt,
			payment.UpdatedAt,
		).
		Suffix("RETURNING id").
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&payment.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrActivePaymentExists
		}
		return fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	return nil
}

// GetByID получает платёж по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	return r.getOne(ctx, "GetByID", squirrel.Eq{"id": id}, false)
}

// GetForUpdate получает платёж с блокировкой строки (внутри транзакции)
func (r *Repository) GetForUpdate(ctx context.Context, id int64) (*domain.Payment, error) {
	return r.getOne(ctx, "GetForUpdate", squirrel.Eq{"id": id}, dbmetrics.IsInTransaction(ctx))
}

// GetByCheckoutRequestID получает платёж по идентификатору STK запроса шлюза
func (r *Repository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.Payment, error) {
	return r.getOne(ctx, "GetByCheckoutRequestID", squirrel.Eq{"checkout_request_id": checkoutRequestID}, false)
}

// GetLatestByBooking получает последний платёж по бронированию
func (r *Repository) GetLatestByBooking(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From("payments").
		Where(squirrel.Eq{"booking_id": bookingID}).
		OrderBy("id DESC").
		Limit(1).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetLatestByBooking - build select query: %v", ErrBuildQuery, err)
	}

	payment, err := scanPayment(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetLatestByBooking - scan payment: %w", ErrScanRow, err)
	}

	return payment, nil
}

// ListByBooking получает все платежи бронирования
func (r *Repository) ListByBooking(ctx context.Context, bookingID int64) ([]*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From("payments").
		Where(squirrel.Eq{"booking_id": bookingID}).
		OrderBy("id ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListByBooking - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByBooking - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	payments := make([]*domain.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListByBooking - scan row: %w", ErrScanRow, err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListByBooking - rows error: %w", ErrScanRow, err)
	}

	return payments, nil
}

// MarkProcessing сохраняет идентификаторы запроса шлюза и переводит платёж из pending в processing.
// Идентификаторы пишутся при любом статусе (платёж мог быть отменён во время STK push),
// но только один раз. Возвращает статус платежа после записи.
func (r *Repository) MarkProcessing(ctx context.Context, id int64, merchantRequestID, checkoutRequestID string, now time.Time) (domain.PaymentStatus, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("payments").
		Set("status", squirrel.Expr("CASE WHEN status = ? THEN ? ELSE status END", domain.PaymentPending, domain.PaymentProcessing)).
		Set("merchant_request_id", merchantRequestID).
		Set("checkout_request_id", checkoutRequestID).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id, "checkout_request_id": nil}).
		Suffix("RETURNING status").
		ToSql()

	if err != nil {
		return "", fmt.Errorf("%w: MarkProcessing - build update query: %v", ErrBuildQuery, err)
	}

	var status domain.PaymentStatus
	err = executor.QueryRowContext(ctx, query, args...).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrStatusChanged
	}
	if err != nil {
		return "", fmt.Errorf("%w: MarkProcessing - execute update: %w", ErrExecQuery, err)
	}

	return status, nil
}

// MarkFailed переводит активный платёж в failed (ошибка инициации в шлюзе)
func (r *Repository) MarkFailed(ctx context.Context, id int64, resultDesc string, now time.Time) error {
	query, args, err := psqlbuilder.Update("payments").
		Set("status", domain.PaymentFailed).
		Set("result_desc", resultDesc).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id, "status": domain.ActivePaymentStatuses}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: MarkFailed - build update query: %v", ErrBuildQuery, err)
	}

	return r.execConditional(ctx, "MarkFailed", query, args)
}

// ApplyNotification сохраняет результат уведомления шлюза.
// Обновление условное: применяется, только если платёж ещё не в терминальном статусе.
// Возвращает false, если статус успел измениться.
func (r *Repository) ApplyNotification(ctx context.Context, payment *domain.Payment) (bool, error) {
	query, args, err := psqlbuilder.Update("payments").
		Set("status", payment.Status).
		Set("result_code", payment.ResultCode).
		Set("result_desc", payment.ResultDesc).
		Set("receipt_number", payment.ReceiptNumber).
		Set("transaction_date", payment.TransactionDate).
		Set("updated_at", payment.UpdatedAt).
		Where(squirrel.Eq{"id": payment.ID, "status": domain.NotifiablePaymentStatuses}).
		ToSql()

	if err != nil {
		return false, fmt.Errorf("%w: ApplyNotification - build update query: %v", ErrBuildQuery, err)
	}

	err = r.execConditional(ctx, "ApplyNotification", query, args)
	if errors.Is(err, ErrStatusChanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CancelActiveByBooking отменяет активные платежи бронирования
func (r *Repository) CancelActiveByBooking(ctx context.Context, bookingID int64, now time.Time) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("payments").
		Set("status", domain.PaymentCancelled).
		Set("updated_at", now).
		Where(squirrel.Eq{"booking_id": bookingID, "status": domain.ActivePaymentStatuses}).
		ToSql()

	if err != nil {
		return 0, fmt.Errorf("%w: CancelActiveByBooking - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: CancelActiveByBooking - execute update: %w", ErrExecQuery, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: CancelActiveByBooking - get rows affected: %w", ErrExecQuery, err)
	}

	return affected, nil
}

// SaveRefund сохраняет возврат. Применяется только к оплаченному платежу.
func (r *Repository) SaveRefund(ctx context.Context, payment *domain.Payment) error {
	query, args, err := psqlbuilder.Update("payments").
		Set("status", domain.PaymentRefunded).
		Set("refund_amount", payment.RefundAmount).
		Set("refund_reason", payment.RefundReason).
		Set("refunded_at", payment.RefundedAt).
		Set("updated_at", payment.UpdatedAt).
		Where(squirrel.Eq{"id": payment.ID, "status": domain.PaymentCompleted}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: SaveRefund - build update query: %v", ErrBuildQuery, err)
	}

	return r.execConditional(ctx, "SaveRefund", query, args)
}

func (r *Repository) getOne(ctx context.Context, op string, where squirrel.Sqlizer, forUpdate bool) (*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From("payments").
		Where(where)

	if forUpdate {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %v", ErrBuildQuery, op, err)
	}

	payment, err := scanPayment(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan payment: %w", ErrScanRow, op, err)
	}

	return payment, nil
}

// execConditional выполняет UPDATE и возвращает ErrStatusChanged, если ни одна строка не обновлена
func (r *Repository) execConditional(ctx context.Context, op, query string, args []interface{}) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s - execute update: %w", ErrExecQuery, op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s - get rows affected: %w", ErrExecQuery, op, err)
	}

	if affected == 0 {
		return ErrStatusChanged
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment

	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.CustomerID,
		&payment.Amount,
		&payment.Currency,
		&payment.PhoneMasked,
		&payment.PhoneHash,
		&payment.MerchantRequestID,
		&payment.CheckoutRequestID,
		&payment.ReceiptNumber,
		&payment.TransactionDate,
		&payment.Status,
		&payment.ResultCode,
		&payment.ResultDesc,
		&payment.RefundAmount,
		&payment.RefundReason,
		&payment.RefundedAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}
