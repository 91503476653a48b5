// session — клиент сессии админ-консоли поверх Session Gateway.
//
// Клиент держит access-токен только в памяти (Session), refresh-токен
// никогда не видит: его хранит cookie jar http.Client, как браузер хранит
// HttpOnly-куку. Обновление сессии выполняется двумя путями:
//   - проактивно: таймер на max(exp-now-60s, 5s) после каждого входа/обновления;
//   - реактивно: один повтор после 401 (RetryOnce).
//
// Оба пути делят одно обновление в полёте (singleflight), поэтому
// одноразовый refresh-токен не предъявляется дважды.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/pribylovaa/admin-session-gateway/pkg/redact"
)

// Маршруты Session Gateway.
const (
	PathLogin     = "/session/login"
	PathRefresh   = "/session/refresh"
	PathLogout    = "/session/logout"
	PathMFAVerify = "/session/mfa-verify"
	PathHealth    = "/health"
)

const (
	// DefaultProbeTimeout — сколько ждать ответа проверки живости.
	DefaultProbeTimeout = 2500 * time.Millisecond
	// DefaultRenewTimeout — дедлайн фонового (по таймеру) обновления.
	DefaultRenewTimeout = 15 * time.Second

	renewKey     = "renew"
	maxBodyBytes = 1 << 20
)

// Options — параметры клиента. Пустые поля получают значения по умолчанию.
type Options struct {
	BaseURL      string
	HTTPClient   *http.Client
	Clock        clockwork.Clock
	Logger       *slog.Logger
	ProbeTimeout time.Duration
	RenewTimeout time.Duration
}

// Client — клиент сессии. Безопасен для конкурентного использования.
type Client struct {
	base         string
	http         *http.Client
	clock        clockwork.Clock
	log          *slog.Logger
	probeTimeout time.Duration
	renewTimeout time.Duration

	sess     Session
	renewals singleflight.Group
}

// New создаёт клиент в состоянии Anonymous.
// Если у HTTPClient нет cookie jar, клиент заводит свой (копия http.Client).
func New(opts Options) (*Client, error) {
	const op = "pkg/session/New"

	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%s: invalid base url %q", op, opts.BaseURL)
	}

	hc := &http.Client{}
	if opts.HTTPClient != nil {
		cp := *opts.HTTPClient
		hc = &cp
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("%s: cookie jar: %w", op, err)
		}
		hc.Jar = jar
	}

	c := &Client{
		base:         base,
		http:         hc,
		clock:        opts.Clock,
		log:          opts.Logger,
		probeTimeout: opts.ProbeTimeout,
		renewTimeout: opts.RenewTimeout,
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.probeTimeout <= 0 {
		c.probeTimeout = DefaultProbeTimeout
	}
	if c.renewTimeout <= 0 {
		c.renewTimeout = DefaultRenewTimeout
	}

	return c, nil
}

// State — текущее состояние сессии.
func (c *Client) State() State { return c.sess.snapshot().State }

// AccessToken — текущий access-токен ("" вне Authenticated).
func (c *Client) AccessToken() string { return c.sess.snapshot().AccessToken }

// Snapshot — состояние сессии целиком.
func (c *Client) Snapshot() Snapshot { return c.sess.snapshot() }

// Login — вход по логину и паролю.
//
// Контракт:
//  1. 200 с access_token -> Authenticated, взведён таймер обновления;
//  2. 202 с mfa_tx -> PendingMFA, тикет ждёт VerifyMFA;
//  3. иной статус -> *ResponseError, состояние не меняется;
//  4. 200/202 без ожидаемого поля -> ErrInvalidResponse.
func (c *Client) Login(ctx context.Context, username, password string) (State, error) {
	const op = "pkg/session/Login"

	c.log.Debug("login_attempt",
		slog.String("username", redact.Username(username)),
		slog.String("password", redact.Password()),
	)

	m := c.sess.begin()
	status, body, err := c.post(ctx, PathLogin, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return c.State(), fmt.Errorf("%s: %w", op, err)
	}

	switch status {
	case http.StatusOK:
		if err := c.acceptSession(m, false, body); err != nil {
			return c.State(), fmt.Errorf("%s: %w", op, err)
		}
		c.log.Info("login_succeeded", slog.String("username", redact.Username(username)))
		return Authenticated, nil

	case http.StatusAccepted:
		var ch struct {
			MFATx string `json:"mfa_tx"`
		}
		if err := json.Unmarshal(body, &ch); err != nil || ch.MFATx == "" {
			return c.State(), fmt.Errorf("%s: %w", op, ErrInvalidResponse)
		}
		if !c.sess.pendingMFA(m, NewMFATicket(ch.MFATx)) {
			return c.State(), fmt.Errorf("%s: %w", op, ErrSessionReset)
		}
		c.log.Info("login_mfa_required", slog.String("username", redact.Username(username)))
		return PendingMFA, nil

	default:
		c.log.Info("login_rejected",
			slog.String("username", redact.Username(username)),
			slog.Int("status", status),
		)
		return c.State(), &ResponseError{Op: op, Status: status, Body: body}
	}
}

// VerifyMFA предъявляет код второго фактора.
// Тикет одноразовый: после любого исхода, кроме успеха, сессия возвращается
// в Anonymous и нужен новый Login.
func (c *Client) VerifyMFA(ctx context.Context, code string) (State, error) {
	const op = "pkg/session/VerifyMFA"

	tx, err := c.sess.pendingTicket().Consume()
	if err != nil {
		return c.State(), fmt.Errorf("%s: %w", op, err)
	}

	m := c.sess.begin()
	status, body, err := c.post(ctx, PathMFAVerify, map[string]string{
		"mfa_tx": tx,
		"code":   code,
	})
	if err != nil {
		c.sess.resetIf(m)
		return c.State(), fmt.Errorf("%s: %w", op, err)
	}

	if status != http.StatusOK {
		c.sess.resetIf(m)
		return c.State(), &ResponseError{Op: op, Status: status, Body: body}
	}

	if err := c.acceptSession(m, false, body); err != nil {
		c.sess.resetIf(m)
		return c.State(), fmt.Errorf("%s: %w", op, err)
	}

	c.log.Info("mfa_verified")
	return Authenticated, nil
}

// Refresh обновляет сессию по refresh-куке. Конкурентные вызовы (таймер и
// реактивный повтор) разделяют одно обновление в полёте.
// Неудача переводит сессию в Anonymous.
func (c *Client) Refresh(ctx context.Context) error {
	_, err, _ := c.renewals.Do(renewKey, func() (any, error) {
		return nil, c.refresh(ctx)
	})

	return err
}

func (c *Client) refresh(ctx context.Context) error {
	const op = "pkg/session/Refresh"

	m := c.sess.begin()
	status, body, err := c.post(ctx, PathRefresh, nil)
	if err != nil {
		c.sess.resetIf(m)
		return fmt.Errorf("%s: %w", op, err)
	}

	if status != http.StatusOK {
		c.sess.resetIf(m)
		return &ResponseError{Op: op, Status: status, Body: body}
	}

	if err := c.acceptSession(m, true, body); err != nil {
		c.sess.resetIf(m)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Restore — жадное обновление при старте: есть живая кука -> Authenticated.
// Отсутствие/невалидность куки ошибкой не считается. Если пока обновление
// было в полёте сессия сменилась (вход, Logout), возвращается её текущее состояние.
func (c *Client) Restore(ctx context.Context) (State, error) {
	err := c.Refresh(ctx)
	switch {
	case err == nil:
		return Authenticated, nil
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrSessionReset):
		return c.State(), nil
	default:
		return c.State(), err
	}
}

// Logout сбрасывает сессию локально (таймер отменяется сразу) и просит шлюз
// очистить куку. Локальный сброс выполняется и при ошибке шлюза.
func (c *Client) Logout(ctx context.Context) error {
	const op = "pkg/session/Logout"

	c.sess.reset()

	status, body, err := c.post(ctx, PathLogout, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if status != http.StatusOK {
		return &ResponseError{Op: op, Status: status, Body: body}
	}

	c.log.Info("logout_succeeded")
	return nil
}

// Close отменяет таймер и забывает access-токен (уход со страницы).
func (c *Client) Close() { c.sess.reset() }

// Do выполняет авторизованный запрос к шлюзу с одним повтором после 401.
// body может быть nil; тело переотправляется при повторе.
// Запрос к самому PathRefresh не повторяется: 401 от него возвращается как есть.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	attempt := func(ctx context.Context) (*http.Response, error) {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if tok := c.AccessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}

		return c.http.Do(req)
	}

	if path == PathRefresh {
		return attempt(ctx)
	}

	return RetryOnce(ctx, attempt, c.Refresh)
}

// Probe — проверка живости шлюза: GET /health должен за DefaultProbeTimeout
// вернуть 2xx с JSON-телом.
func (c *Client) Probe(ctx context.Context) error {
	const op = "pkg/session/Probe"

	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+PathHealth, nil)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %w: status %d", op, ErrUnavailable, resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") || !json.Valid(data) {
		return fmt.Errorf("%s: %w: not a json response", op, ErrUnavailable)
	}

	return nil
}

// acceptSession разбирает {"access_token"} и переводит сессию в Authenticated.
// strict — см. Session.authenticate: обновления строгие, вход и MFA нет.
func (c *Client) acceptSession(m mark, strict bool, body []byte) error {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.AccessToken == "" {
		return ErrInvalidResponse
	}

	exp, ok := TokenExpiry(out.AccessToken)

	var arm func() clockwork.Timer
	if ok {
		delay := RenewDelay(c.clock.Now(), exp)
		arm = func() clockwork.Timer { return c.clock.AfterFunc(delay, c.renewInBackground) }
		c.log.Debug("renew_scheduled",
			slog.Duration("delay", delay),
			slog.Time("expires_at", exp),
		)
	}

	if !c.sess.authenticate(m, strict, out.AccessToken, exp, arm) {
		return ErrSessionReset
	}

	return nil
}

func (c *Client) renewInBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), c.renewTimeout)
	defer cancel()

	if err := c.Refresh(ctx); err != nil {
		c.log.Warn("renew_failed", slog.String("err", err.Error()))
		return
	}

	c.log.Debug("renew_succeeded", slog.String("access_token", redact.Token()))
}

func (c *Client) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	var rd io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, rd)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, data, nil
}
