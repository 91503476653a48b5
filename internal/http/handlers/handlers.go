package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pribylovaa/admin-session-gateway/internal/config"
	"github.com/pribylovaa/admin-session-gateway/internal/cookie"
	"github.com/pribylovaa/admin-session-gateway/internal/models"
	"github.com/pribylovaa/admin-session-gateway/internal/upstream"
)

//go:generate mockgen -source=handlers.go -destination=../../../mocks/auth_api_mock.go -package=mocks

// AuthAPI — контракт апстрима, нужный хендлерам (реализация: upstream.Client).
type AuthAPI interface {
	IssueToken(ctx context.Context, in models.LoginRequest) (*upstream.Response, error)
	RefreshToken(ctx context.Context, refreshToken string) (*upstream.Response, error)
	VerifyMFA(ctx context.Context, body json.RawMessage) (*upstream.Response, error)
	ChangePassword(ctx context.Context, body json.RawMessage) (*upstream.Response, error)
	Health(ctx context.Context) (*upstream.Response, error)
}

// Handlers агрегирует зависимости: клиент апстрима, менеджер куки и подсказки формы входа.
type Handlers struct {
	API     AuthAPI
	Cookies *cookie.Manager
	Prefill config.DefaultsConfig
}

func New(api AuthAPI, cookies *cookie.Manager, defaults config.DefaultsConfig) *Handlers {
	return &Handlers{API: api, Cookies: cookies, Prefill: defaults}
}

// maxRequestBytes ограничивает тело входящего запроса.
const maxRequestBytes = 64 << 10

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeJSON — нестрогий декодер: неизвестные поля игнорируются,
// пустое тело читается как {}. Ошибка разбора — models.ErrValidation.
func decodeJSON(r *http.Request, value any) error {
	raw, err := readBody(r)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, value); err != nil {
		return fmt.Errorf("%w: %w", models.ErrValidation, err)
	}

	return nil
}

// readBody читает тело как JSON для пересылки апстриму без изменений.
// Пустое тело превращается в {}, не-JSON — models.ErrValidation.
func readBody(r *http.Request) (json.RawMessage, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", models.ErrValidation, err)
	}

	if len(strings.TrimSpace(string(raw))) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: body is not json", models.ErrValidation)
	}

	return raw, nil
}

// relay ретранслирует ответ апстрима клиенту:
//   - JSON-тело пишется как есть со статусом апстрима;
//   - иначе оборачивается в {"success": <2xx>, "raw": "<text>"}.
func relay(w http.ResponseWriter, resp *upstream.Response) {
	if resp.IsJSON() {
		ct := resp.ContentType
		if !strings.Contains(ct, "json") {
			ct = "application/json"
		}

		w.Header().Set("Content-Type", ct)
		w.WriteHeader(resp.Status)
		_, _ = w.Write(resp.Body)
		return
	}

	writeJSON(w, resp.Status, models.RawResponse{Success: resp.OK(), Raw: string(resp.Body)})
}
