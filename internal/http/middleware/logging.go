package middleware

import (
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/pribylovaa/admin-session-gateway/pkg/log"
)

// Logging кладёт в контекст логгер с request_id и после ответа пишет одну
// запись msg="http". 5xx пишутся на уровне Warn.
// Тела, куки и заголовки в журнал не попадают: в них токены.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lg := l
			if rid := r.Header.Get(headerRequestID); rid != "" {
				lg = lg.With(slog.String("request_id", rid))
			}
			r = r.WithContext(logctx.Into(r.Context(), lg))

			rec := record(w)
			start := time.Now()
			next.ServeHTTP(rec, r)

			status := rec.statusCode()
			lvl := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				lvl = slog.LevelWarn
			}

			lg.LogAttrs(r.Context(), lvl, "http",
				slog.String("method", r.Method),
				slog.String("route", routeLabel(r)),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("dur", time.Since(start)),
				slog.Int("bytes", rec.bytes),
			)
		})
	}
}
