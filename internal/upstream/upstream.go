// upstream — HTTP-клиент админ-API аутентификации, за которым стоит шлюз.
//
// Клиент не интерпретирует статусы: он возвращает ответ апстрима целиком
// (статус, content-type, тело), а решение о ретрансляции, куке и 502 принимают
// хендлеры. Ошибкой считается только сбой транспорта/чтения (models.ErrTransport).
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/admin-session-gateway/internal/config"
	"github.com/pribylovaa/admin-session-gateway/internal/models"
)

// Пути апстрима.
const (
	PathToken          = "/admin/auth/token"
	PathTokenRefresh   = "/admin/auth/token/refresh"
	PathMFAVerify      = "/admin/auth/mfa/verify"
	PathChangePassword = "/admin/password"
	PathHealth         = "/healthz"
)

// maxBodyBytes ограничивает чтение ответа апстрима.
const maxBodyBytes = 1 << 20

// Response — ответ апстрима без интерпретации.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// OK — статус 2xx.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// IsJSON — тело непустое и является валидным JSON.
func (r *Response) IsJSON() bool { return len(bytes.TrimSpace(r.Body)) > 0 && json.Valid(r.Body) }

// TokenPair разбирает пару токенов из тела. Нераспознанное тело даёт
// пустую пару: неполноту проверяет вызывающий (TokenPair.Complete).
func (r *Response) TokenPair() models.TokenPair {
	var p models.TokenPair
	_ = json.Unmarshal(r.Body, &p)
	return p
}

// Client — клиент апстрима.
type Client struct {
	base string
	http *http.Client
}

// New собирает клиент с цепочкой транспортов: metadata -> timeout -> logging.
func New(cfg config.Config, log *slog.Logger) *Client {
	rt := Chain(http.DefaultTransport,
		WithMetadata(cfg.Upstream.UserAgent),
		WithTimeout(cfg.Upstream.Timeout),
		WithLogging(log),
	)

	return NewWithHTTPClient(cfg.UpstreamURL(), &http.Client{Transport: rt})
}

// NewWithHTTPClient — клиент поверх готового http.Client (тесты, кастомный транспорт).
// baseURL должен быть уже нормализован (config.NormalizeBaseURL).
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}

	return &Client{base: baseURL, http: hc}
}

// IssueToken — POST /admin/auth/token {username,password}.
func (c *Client) IssueToken(ctx context.Context, in models.LoginRequest) (*Response, error) {
	return c.do(ctx, http.MethodPost, PathToken, in)
}

// RefreshToken — POST /admin/auth/token/refresh {refresh_token}.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Response, error) {
	return c.do(ctx, http.MethodPost, PathTokenRefresh, models.RefreshRequest{RefreshToken: refreshToken})
}

// VerifyMFA — POST /admin/auth/mfa/verify, тело пересылается как есть.
func (c *Client) VerifyMFA(ctx context.Context, body json.RawMessage) (*Response, error) {
	return c.do(ctx, http.MethodPost, PathMFAVerify, body)
}

// ChangePassword — PATCH /admin/password. Bearer-токен берётся из контекста
// (CtxAuthToken) транспортом WithMetadata.
func (c *Client) ChangePassword(ctx context.Context, body json.RawMessage) (*Response, error) {
	return c.do(ctx, http.MethodPatch, PathChangePassword, body)
}

// Health — GET /healthz.
func (c *Client) Health(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, PathHealth, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*Response, error) {
	const op = "internal/upstream/do"

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode %s: %w", op, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrTransport, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w: %w", op, models.ErrTransport, err)
	}

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}
