package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/pribylovaa/admin-session-gateway/pkg/log"
)

// Timeout ограничивает запрос сроком d: итоговый дедлайн — меньший из
// родительского и now+d. d <= 0 отключает мидлвар.
// Хендлер сам отвечает 504 (models -> errors.ToHTTP); здесь исчерпанный
// срок только журналируется (msg="request_deadline_exceeded").
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logctx.From(ctx).LogAttrs(ctx, slog.LevelWarn, "request_deadline_exceeded",
					slog.String("route", routeLabel(r)),
					slog.Duration("limit", d),
				)
			}
		})
	}
}
