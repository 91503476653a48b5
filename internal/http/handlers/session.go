package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/admin-session-gateway/internal/errors"
	"github.com/pribylovaa/admin-session-gateway/internal/metrics"
	"github.com/pribylovaa/admin-session-gateway/internal/models"
	"github.com/pribylovaa/admin-session-gateway/internal/upstream"
	logctx "github.com/pribylovaa/admin-session-gateway/pkg/log"
	"github.com/pribylovaa/admin-session-gateway/pkg/redact"
)

// Операции сессии (label op у session_events_total).
const (
	opLogin          = "login"
	opRefresh        = "refresh"
	opLogout         = "logout"
	opMFAVerify      = "mfa_verify"
	opChangePassword = "change_password"
)

// Login — POST /session/login.
//
// Контракт:
//  1. username или password пустые (или тело не JSON) -> 400, апстрим не вызывается;
//  2. апстрим ответил 202 (нужен второй фактор) -> ответ ретранслируется, кука не ставится;
//  3. апстрим ответил не 2xx -> ретрансляция статуса и тела, кука не ставится;
//  4. 2xx без access_token или refresh_token -> 502, кука не ставится;
//  5. иначе -> Set-Cookie с refresh-токеном и 200 {"success":true,"access_token":...}.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := logctx.From(ctx)

	var in models.LoginRequest
	if err := decodeJSON(r, &in); err != nil {
		metrics.SessionEvent(opLogin, metrics.OutcomeInvalid)
		apierrors.WriteError(w, r, err)
		return
	}
	if err := in.Validate(); err != nil {
		metrics.SessionEvent(opLogin, metrics.OutcomeInvalid)
		lg.Debug("login_invalid_input",
			slog.String("username", redact.Username(in.Username)),
		)
		apierrors.WriteError(w, r, err)
		return
	}

	// Дальнейшие записи (включая issueSession) несут замаскированный логин.
	ctx, lg = logctx.With(ctx, slog.String("username", redact.Username(in.Username)))
	r = r.WithContext(ctx)

	resp, err := h.API.IssueToken(ctx, in)
	if err != nil {
		metrics.SessionEvent(opLogin, metrics.OutcomeTransportError)
		lg.Error("login_upstream_failed",
			slog.String("err", err.Error()),
		)
		apierrors.WriteError(w, r, err)
		return
	}

	h.issueSession(w, r, opLogin, resp)
}

// VerifyMFA — POST /session/mfa-verify.
// Тело {mfa_tx, code} пересылается апстриму как есть; ответ обрабатывается
// по тому же контракту токенов, что и Login.
func (h *Handlers) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readBody(r)
	if err != nil {
		metrics.SessionEvent(opMFAVerify, metrics.OutcomeInvalid)
		apierrors.WriteError(w, r, err)
		return
	}

	resp, err := h.API.VerifyMFA(ctx, body)
	if err != nil {
		metrics.SessionEvent(opMFAVerify, metrics.OutcomeTransportError)
		logctx.From(ctx).Error("mfa_verify_upstream_failed",
			slog.String("err", err.Error()),
		)
		apierrors.WriteError(w, r, err)
		return
	}

	h.issueSession(w, r, opMFAVerify, resp)
}

// Refresh — POST /session/refresh.
//
// Контракт:
//  1. нет refresh-куки -> 401, апстрим не вызывается;
//  2. апстрим ответил не 2xx -> кука очищается (Max-Age=0), ответ ретранслируется;
//  3. 2xx без одного из токенов -> 502, кука не трогается;
//  4. иначе -> ротация куки и 200 {"success":true,"access_token":...}.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := logctx.From(ctx)

	refresh, ok := h.Cookies.Read(r)
	if !ok {
		metrics.SessionEvent(opRefresh, metrics.OutcomeUnauthenticated)
		apierrors.WriteError(w, r, models.ErrUnauthenticated)
		return
	}

	resp, err := h.API.RefreshToken(ctx, refresh)
	if err != nil {
		// Апстрим не ответил: о валидности токена ничего не известно, кука остаётся.
		metrics.SessionEvent(opRefresh, metrics.OutcomeTransportError)
		lg.Error("refresh_upstream_failed",
			slog.String("err", err.Error()),
		)
		apierrors.WriteError(w, r, err)
		return
	}

	if !resp.OK() {
		metrics.SessionEvent(opRefresh, metrics.OutcomeRejected)
		lg.Info("refresh_rejected",
			slog.Int("upstream_status", resp.Status),
		)
		h.Cookies.Clear(w)
		relay(w, resp)
		return
	}

	pair := resp.TokenPair()
	if !pair.Complete() {
		metrics.SessionEvent(opRefresh, metrics.OutcomeContractViolation)
		lg.Error("refresh_contract_violation",
			slog.Int("upstream_status", resp.Status),
			slog.Bool("has_access_token", pair.AccessToken != ""),
			slog.Bool("has_refresh_token", pair.RefreshToken != ""),
		)
		apierrors.WriteError(w, r, models.ErrContractViolation)
		return
	}

	h.Cookies.Set(w, pair.RefreshToken)
	metrics.SessionEvent(opRefresh, metrics.OutcomeOK)
	lg.Debug("refresh_rotated",
		slog.String("refresh_token", redact.Token()),
	)
	writeJSON(w, http.StatusOK, models.SessionResponse{Success: true, AccessToken: pair.AccessToken})
}

// Logout — POST /session/logout. Апстрим не вызывается, кука очищается.
// Идемпотентен: повторный вызов (и вызов без куки) тоже даёт 200.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Cookies.Clear(w)
	w.Header().Set("Cache-Control", "no-store")
	metrics.SessionEvent(opLogout, metrics.OutcomeOK)
	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// ChangePassword — PATCH /session/password.
// Требует Authorization: Bearer (его кладёт в контекст middleware.AuthBearer);
// без него -> 401 без вызова апстрима. Тело и bearer уходят апстриму,
// ответ ретранслируется.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := upstream.AuthToken(ctx); !ok {
		metrics.SessionEvent(opChangePassword, metrics.OutcomeUnauthenticated)
		apierrors.WriteError(w, r, models.ErrUnauthenticated)
		return
	}

	body, err := readBody(r)
	if err != nil {
		metrics.SessionEvent(opChangePassword, metrics.OutcomeInvalid)
		apierrors.WriteError(w, r, err)
		return
	}

	resp, err := h.API.ChangePassword(ctx, body)
	if err != nil {
		metrics.SessionEvent(opChangePassword, metrics.OutcomeTransportError)
		logctx.From(ctx).Error("change_password_upstream_failed",
			slog.String("err", err.Error()),
		)
		apierrors.WriteError(w, r, err)
		return
	}

	if resp.OK() {
		metrics.SessionEvent(opChangePassword, metrics.OutcomeOK)
	} else {
		metrics.SessionEvent(opChangePassword, metrics.OutcomeRejected)
	}
	relay(w, resp)
}

// issueSession завершает Login и VerifyMFA: 202 и отказы ретранслируются,
// неполная пара токенов даёт 502, полная ставит куку и отдаёт только access-токен.
func (h *Handlers) issueSession(w http.ResponseWriter, r *http.Request, op string, resp *upstream.Response) {
	lg := logctx.From(r.Context())

	switch {
	case resp.Status == http.StatusAccepted:
		metrics.SessionEvent(op, metrics.OutcomeMFARequired)
		lg.Info(op + "_mfa_required")
		relay(w, resp)
		return
	case !resp.OK():
		metrics.SessionEvent(op, metrics.OutcomeRejected)
		lg.Info(op+"_rejected",
			slog.Int("upstream_status", resp.Status),
		)
		relay(w, resp)
		return
	}

	pair := resp.TokenPair()
	if !pair.Complete() {
		metrics.SessionEvent(op, metrics.OutcomeContractViolation)
		lg.Error(op+"_contract_violation",
			slog.Int("upstream_status", resp.Status),
			slog.Bool("has_access_token", pair.AccessToken != ""),
			slog.Bool("has_refresh_token", pair.RefreshToken != ""),
		)
		apierrors.WriteError(w, r, models.ErrContractViolation)
		return
	}

	h.Cookies.Set(w, pair.RefreshToken)
	metrics.SessionEvent(op, metrics.OutcomeOK)
	lg.Info(op+"_succeeded",
		slog.String("refresh_token", redact.Token()),
	)
	writeJSON(w, http.StatusOK, models.SessionResponse{Success: true, AccessToken: pair.AccessToken})
}
