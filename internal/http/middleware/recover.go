package middleware

import (
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/admin-session-gateway/internal/errors"
	"github.com/pribylovaa/admin-session-gateway/internal/metrics"
	"github.com/pribylovaa/admin-session-gateway/internal/models"
)

// Recover — самый внешний мидлвар. Паника хендлера:
//  1. пишется в журнал (msg="panic") и в счётчик http_panics_total{route};
//  2. если ответ ещё не начат, превращается в models.ErrInternal (500/internal),
//     детали паники клиенту не уходят;
//  3. если ответ уже начат, дописывать нечего: только журнал и метрика.
func Recover(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := record(w)

			defer func() {
				reason := recover()
				if reason == nil {
					return
				}
				if reason == http.ErrAbortHandler {
					panic(reason)
				}

				route := routeLabel(r)
				metrics.HTTPPanicsTotal.WithLabelValues(route).Inc()

				l.LogAttrs(r.Context(), slog.LevelError, "panic",
					slog.String("route", route),
					slog.String("request_id", r.Header.Get("X-Request-Id")),
					slog.Any("reason", reason),
					slog.Bool("response_started", rec.written()),
				)

				if !rec.written() {
					apierrors.WriteError(rec, r, models.ErrInternal)
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
