package models

import "errors"

// Таксономия ошибок шлюза. HTTP-маппинг — internal/errors.
//
// Отказ апстрима (4xx/5xx) ошибкой не является: такой ответ ретранслируется
// клиенту как есть, чтобы сохранить словарь ошибок апстрима.
var (
	// ErrValidation — не заполнено обязательное поле; апстрим не вызывается. HTTP 400.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated — нет refresh-куки или заголовка Authorization. HTTP 401.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrContractViolation — апстрим ответил 2xx, но без access/refresh токена. HTTP 502.
	ErrContractViolation = errors.New("invalid upstream response")

	// ErrTransport — сетевая ошибка или ошибка чтения ответа апстрима. HTTP 500 с detail.
	ErrTransport = errors.New("upstream transport failure")

	// ErrInternal — сбой внутри шлюза (перехваченная паника). HTTP 500 без деталей.
	ErrInternal = errors.New("internal gateway failure")
)
