package payment

import "errors"

var (
	// ErrPaymentNotFound возвращается, когда платёж не найден
	ErrPaymentNotFound = errors.New("payment.repository: payment not found")

	// ErrActivePaymentExists по бронированию уже есть платёж в статусе pending/processing
	ErrActivePaymentExists = errors.New("payment.repository: booking already has an active payment")

	// ErrStatusChanged условное обновление не применилось: статус изменился параллельно
	ErrStatusChanged = errors.New("payment.repository: payment status changed concurrently")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("payment.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("payment.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("payment.repository: failed to scan row")
)
