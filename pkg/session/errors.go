package session

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated — шлюз ответил 401 (нет/протухла refresh-кука).
	ErrUnauthenticated = errors.New("session: unauthenticated")
	// ErrInvalidResponse — успешный ответ шлюза без ожидаемых полей.
	ErrInvalidResponse = errors.New("session: invalid gateway response")
	// ErrUnavailable — шлюз не прошёл проверку живости.
	ErrUnavailable = errors.New("session: gateway unavailable")
	// ErrSessionReset — сессию сбросили (Logout/Close), пока запрос был в полёте.
	ErrSessionReset = errors.New("session: reset while request was in flight")
)

// ResponseError — неуспешный ответ шлюза; тело сохранено как есть.
type ResponseError struct {
	Op     string
	Status int
	Body   []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: gateway responded %d", e.Op, e.Status)
}

// Is делает 401 сопоставимым с ErrUnauthenticated.
func (e *ResponseError) Is(target error) bool {
	return target == ErrUnauthenticated && e.Status == http.StatusUnauthorized
}
