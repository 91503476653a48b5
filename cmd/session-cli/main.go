// session-cli — терминальный демо-клиент Session Gateway: вход (с MFA),
// проактивное и ручное обновление, авторизованные вызовы с повтором после 401.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/pribylovaa/admin-session-gateway/pkg/session"
)

// cliConfig — параметры демо-клиента из окружения.
type cliConfig struct {
	GatewayURL string        `env:"SESSION_GATEWAY_URL" env-default:"http://localhost:50090"`
	Timeout    time.Duration `env:"SESSION_CLI_TIMEOUT" env-default:"15s"`
	Debug      bool          `env:"SESSION_CLI_DEBUG" env-default:"false"`
}

const help = `commands:
  login [username]     sign in (password is read from the next line)
  mfa <code>           submit the second factor
  refresh              force a session refresh
  call <METHOD> <path> [json]
                       authenticated call, retried once after 401
  password <json>      PATCH /session/password (authenticated)
  state                show session state and token expiry
  health               probe the gateway
  logout               sign out
  quit                 exit`

func main() {
	_ = godotenv.Load()

	var cfg cliConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.GatewayURL, "gateway", cfg.GatewayURL, "session gateway base url")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "debug logging")
	flag.Parse()

	lvl := slog.LevelInfo
	if cfg.Debug {
		lvl = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := session.New(session.Options{BaseURL: cfg.GatewayURL, Logger: log})
	if err != nil {
		log.Error("client_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer c.Close()

	if err := c.Probe(ctx); err != nil {
		log.Warn("gateway_unavailable", slog.String("err", err.Error()))
	}

	r := &repl{c: c, in: bufio.NewScanner(os.Stdin), timeout: cfg.Timeout}
	r.username = r.defaultUsername(ctx)

	rctx, rcancel := context.WithTimeout(ctx, cfg.Timeout)
	if st, err := c.Restore(rctx); err != nil {
		log.Warn("restore_failed", slog.String("err", err.Error()))
	} else {
		fmt.Println("session:", st)
	}
	rcancel()

	fmt.Println(help)
	for {
		fmt.Print("> ")
		if !r.in.Scan() || ctx.Err() != nil {
			return
		}

		fields := strings.Fields(r.in.Text())
		if len(fields) == 0 {
			continue
		}
		if r.exec(ctx, fields) {
			return
		}
	}
}

type repl struct {
	c        *session.Client
	in       *bufio.Scanner
	timeout  time.Duration
	username string
}

// exec выполняет одну команду; true — выход.
func (r *repl) exec(parent context.Context, fields []string) bool {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	c := r.c
	switch fields[0] {
	case "login":
		if len(fields) > 1 {
			r.username = fields[1]
		}
		fmt.Printf("password for %s: ", r.username)
		if !r.in.Scan() {
			return true
		}
		st, err := c.Login(ctx, r.username, r.in.Text())
		report(st, err)

	case "mfa":
		if len(fields) < 2 {
			fmt.Println("usage: mfa <code>")
			return false
		}
		st, err := c.VerifyMFA(ctx, fields[1])
		report(st, err)

	case "refresh":
		err := c.Refresh(ctx)
		report(c.State(), err)

	case "call":
		if len(fields) < 3 {
			fmt.Println("usage: call <METHOD> <path> [json]")
			return false
		}
		var body []byte
		if len(fields) > 3 {
			body = []byte(strings.Join(fields[3:], " "))
		}
		call(ctx, c, strings.ToUpper(fields[1]), fields[2], body)

	case "password":
		if len(fields) < 2 {
			fmt.Println("usage: password <json>")
			return false
		}
		call(ctx, c, http.MethodPatch, "/session/password", []byte(strings.Join(fields[1:], " ")))

	case "state":
		snap := c.Snapshot()
		fmt.Println("state:", snap.State)
		if !snap.ExpiresAt.IsZero() {
			fmt.Println("expires in:", time.Until(snap.ExpiresAt).Round(time.Second))
		}

	case "health":
		if err := c.Probe(ctx); err != nil {
			fmt.Println("unavailable:", err)
		} else {
			fmt.Println("ok")
		}

	case "logout":
		err := c.Logout(ctx)
		report(c.State(), err)

	case "quit", "exit":
		return true

	default:
		fmt.Println(help)
	}

	return false
}

// defaultUsername подставляет имя из GET /session/defaults.
func (r *repl) defaultUsername(parent context.Context) string {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	resp, err := r.c.Do(ctx, http.MethodGet, "/session/defaults", nil)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	var out struct {
		UsernameDefault string `json:"username_default"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return out.UsernameDefault
}

func call(ctx context.Context, c *session.Client, method, path string, body []byte) {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	fmt.Println(resp.Status)
	fmt.Println(string(data))
}

func report(st session.State, err error) {
	var re *session.ResponseError
	switch {
	case err == nil:
		fmt.Println("state:", st)
	case errors.As(err, &re):
		fmt.Printf("state: %s, gateway responded %d: %s\n", st, re.Status, re.Body)
	default:
		fmt.Printf("state: %s, error: %v\n", st, err)
	}
}
