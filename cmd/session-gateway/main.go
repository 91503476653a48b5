// session-gateway — HTTP-шлюз сессии админ-консоли: держит refresh-токен
// в HttpOnly-куке и проксирует вход, MFA и обновление к админ-API.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pribylovaa/admin-session-gateway/internal/config"
)

func main() {
	// .env опционален: в проде переменные приходят из окружения.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	log := newLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newGateway(cfg, log).run(ctx); err != nil {
		log.Error("gateway_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("gateway_stopped")
}

// newLogger: local — текст, dev — JSON, оба с Debug; prod — JSON с Info.
func newLogger(env string) *slog.Logger {
	level := slog.LevelDebug
	if env == config.EnvProd {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if env == config.EnvDev || env == config.EnvProd {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
