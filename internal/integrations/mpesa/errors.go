package mpesa

import "errors"

var (
	// ErrGateway шлюз отклонил запрос или недоступен
	ErrGateway = errors.New("mpesa client: gateway error")

	// ErrAuth не удалось получить OAuth токен
	ErrAuth = errors.New("mpesa client: authentication failed")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("mpesa client: internal error")

	// ErrMalformedCallback уведомление шлюза не разбирается
	ErrMalformedCallback = errors.New("mpesa client: malformed callback")
)
