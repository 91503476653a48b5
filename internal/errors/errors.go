// errors стандартизирует ответы об ошибках, которые шлюз формирует сам.
// На вход он принимает ошибку из таксономии internal/models,
// а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message;
//   - detail только для транспортных сбоев (диагностика связи с апстримом).
//
// Ответы апстрима (включая 4xx/5xx) сюда не попадают: их ретранслируют хендлеры.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/admin-session-gateway/internal/models"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// Detail — текст транспортной ошибки (только для internal от ErrTransport).
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

// ToHTTP конвертирует ошибку шлюза в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal;
//   - models.ErrValidation -> 400/invalid_argument;
//   - models.ErrUnauthenticated -> 401/unauthenticated;
//   - models.ErrContractViolation -> 502/bad_gateway;
//   - context.Canceled -> 499, context.DeadlineExceeded -> 504
//     (проверяются раньше ErrTransport: транспорт оборачивает их);
//   - models.ErrTransport -> 500/internal с detail;
//   - models.ErrInternal и прочее -> 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internal("")
	}

	switch {
	case errors.Is(err, models.ErrValidation):
		return build(http.StatusBadRequest, "invalid_argument", "invalid argument", "")
	case errors.Is(err, models.ErrUnauthenticated):
		return build(http.StatusUnauthorized, "unauthenticated", "unauthenticated", "")
	case errors.Is(err, models.ErrContractViolation):
		return build(http.StatusBadGateway, "bad_gateway", "invalid upstream response", "")
	case errors.Is(err, context.Canceled):
		return build(StatusClientClosedRequest, "canceled", "canceled", "")
	case errors.Is(err, context.DeadlineExceeded):
		return build(http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded", "")
	case errors.Is(err, models.ErrTransport):
		return internal(err.Error())
	case errors.Is(err, models.ErrInternal):
		return internal("")
	default:
		return internal("")
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func internal(detail string) (int, ErrorResponse) {
	return build(http.StatusInternalServerError, "internal", "internal error", detail)
}

func build(status int, code, msg, detail string) (int, ErrorResponse) {
	return status, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
			Detail:  detail,
		},
	}
}
