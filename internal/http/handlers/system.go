package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/admin-session-gateway/internal/errors"
	"github.com/pribylovaa/admin-session-gateway/internal/models"
	logctx "github.com/pribylovaa/admin-session-gateway/pkg/log"
)

// Health — GET /health: проксирует GET /healthz апстрима и ретранслирует ответ.
// Клиент сессии использует его как проверку живости при старте.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp, err := h.API.Health(r.Context())
	if err != nil {
		logctx.From(r.Context()).Warn("health_upstream_failed",
			slog.String("err", err.Error()),
		)
		apierrors.WriteError(w, r, err)
		return
	}

	relay(w, resp)
}

// Defaults — GET /session/defaults: подсказки для формы входа из конфига.
func (h *Handlers) Defaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.DefaultsResponse{
		Success:         true,
		UsernameDefault: h.Prefill.Username,
		EmailDefault:    h.Prefill.Email,
	})
}
