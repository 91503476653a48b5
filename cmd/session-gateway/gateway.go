package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pribylovaa/admin-session-gateway/internal/config"
	"github.com/pribylovaa/admin-session-gateway/internal/cookie"
	gwhttp "github.com/pribylovaa/admin-session-gateway/internal/http"
	"github.com/pribylovaa/admin-session-gateway/internal/http/middleware"
	"github.com/pribylovaa/admin-session-gateway/internal/upstream"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// gateway связывает конфиг, клиента апстрима и HTTP-сервер.
type gateway struct {
	cfg   *config.Config
	log   *slog.Logger
	ready atomic.Bool
}

func newGateway(cfg *config.Config, log *slog.Logger) *gateway {
	return &gateway{cfg: cfg, log: log}
}

// handler — корневой mux: служебные /livez, /healthz, /metrics и REST шлюза.
func (g *gateway) handler() http.Handler {
	api := upstream.New(*g.cfg, g.log)
	cookies := cookie.NewManager(g.cfg.Cookie, g.cfg.SecureCookies())

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !g.ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	metricsAuth := middleware.BasicAuth("metrics", g.cfg.Metrics.Username, g.cfg.Metrics.Password)
	mux.Handle("/metrics", metricsAuth(promhttp.Handler()))

	mux.Handle("/", gwhttp.NewRouter(api, cookies, gwhttp.Options{
		Logger:   g.log,
		Timeout:  g.cfg.Timeouts.Service,
		Defaults: g.cfg.Defaults,
	}))

	return mux
}

// run слушает адрес из конфига до отмены ctx, затем гасит сервер,
// давая активным запросам shutdownTimeout.
func (g *gateway) run(ctx context.Context) error {
	addr := g.cfg.HTTP.Addr()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           g.handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g.log.Info("gateway_starting",
		slog.String("env", g.cfg.Env),
		slog.String("addr", addr),
		slog.String("upstream", g.cfg.UpstreamURL()),
		slog.Bool("secure_cookies", g.cfg.SecureCookies()),
	)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		g.ready.Store(false)
		g.log.Info("shutdown_requested")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			g.log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
		}
		return nil
	})

	g.ready.Store(true)
	g.log.Info("gateway_ready")

	return eg.Wait()
}
