package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/admin-session-gateway/internal/config"
	"github.com/pribylovaa/admin-session-gateway/internal/cookie"
	"github.com/pribylovaa/admin-session-gateway/internal/http/handlers"
	"github.com/pribylovaa/admin-session-gateway/internal/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
	Defaults config.DefaultsConfig
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(api handlers.AuthAPI, cookies *cookie.Manager, opts Options) http.Handler {
	root := chi.NewRouter()

	// Внешний -> внутренний. Recover создаёт recorder ответа, который
	// переиспользуют Logging и Metrics.
	root.Use(
		middleware.Recover(opts.Logger),
		middleware.RequestID(), // до Logging: id попадает в логгер запроса
		middleware.Logging(opts.Logger),
		middleware.Metrics(),
		middleware.AuthBearer(),
		middleware.Timeout(opts.Timeout),
	)

	h := handlers.New(api, cookies, opts.Defaults)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	r.Get("/health", h.Health)

	r.Route("/session", func(r chi.Router) {
		r.Use(middleware.NoStore())

		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
		r.Post("/mfa-verify", h.VerifyMFA)
		r.Patch("/password", h.ChangePassword)
		r.Get("/defaults", h.Defaults)
	})
}
