package session

import (
	"context"
	"io"
	"net/http"
)

// AttemptFunc выполняет один вызов к защищённому ресурсу.
type AttemptFunc func(ctx context.Context) (*http.Response, error)

// RenewFunc обновляет сессию (получает новый access-токен).
type RenewFunc func(ctx context.Context) error

// RetryOnce — реактивное обновление после 401:
// attempt -> (401?) renew -> retry-или-вернуть.
//
// Контракт:
//  1. ошибка транспорта или статус не 401 -> результат первой попытки как есть;
//  2. 401 и renew завершился ошибкой -> исходный ответ 401 (тело не закрыто);
//  3. 401 и renew успешен -> тело первого ответа закрывается, attempt
//     вызывается ровно ещё один раз, его результат возвращается без анализа
//     (повторный 401 не приводит ко второму обновлению).
func RetryOnce(ctx context.Context, attempt AttemptFunc, renew RenewFunc) (*http.Response, error) {
	resp, err := attempt(ctx)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if err := renew(ctx); err != nil {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	return attempt(ctx)
}
