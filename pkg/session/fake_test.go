package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

// testClock — фейковые часы clockwork, которые дополнительно запоминают
// задержки AfterFunc и следят за живыми таймерами.
type testClock struct {
	clockwork.Clock
	advance func(time.Duration)

	mu     sync.Mutex
	delays []time.Duration
	timers []*trackedTimer
}

type trackedTimer struct {
	clockwork.Timer
	c       *testClock
	stopped bool
	fired   bool
}

func newTestClock() *testClock {
	fake := clockwork.NewFakeClockAt(epochNow)
	return &testClock{Clock: fake, advance: fake.Advance}
}

func (c *testClock) AfterFunc(d time.Duration, f func()) clockwork.Timer {
	t := &trackedTimer{c: c}

	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.timers = append(c.timers, t)
	c.mu.Unlock()

	t.Timer = c.Clock.AfterFunc(d, func() {
		c.mu.Lock()
		t.fired = true
		c.mu.Unlock()
		f()
	})
	return t
}

func (t *trackedTimer) Stop() bool {
	t.c.mu.Lock()
	t.stopped = true
	t.c.mu.Unlock()

	return t.Timer.Stop()
}

// Advance сдвигает время; сработавшие AfterFunc clockwork запускает
// в отдельных горутинах, поэтому их результат проверяется через Eventually.
func (c *testClock) Advance(d time.Duration) { c.advance(d) }

func (c *testClock) lastDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.delays) == 0 {
		return 0
	}
	return c.delays[len(c.delays)-1]
}

func (c *testClock) activeTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fakeGateway — Session Gateway в миниатюре: ротирует refresh-куку,
// выдаёт JWT со сроком ttl по фейковым часам и защищает /api/thing.
type fakeGateway struct {
	t     *testing.T
	clock *testClock
	ttl   time.Duration

	mu            sync.Mutex
	seq           int
	refresh       string
	access        string
	mfa           bool
	refreshStatus int
	always401     bool
	refreshGate   chan struct{}

	refreshEntered chan struct{}
	refreshCalls   atomic.Int64
	thingCalls     atomic.Int64
}

func newFakeGateway(t *testing.T, clock *testClock, ttl time.Duration) (*fakeGateway, *httptest.Server) {
	t.Helper()

	g := &fakeGateway{t: t, clock: clock, ttl: ttl, refreshEntered: make(chan struct{}, 16)}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /session/login", g.login)
	mux.HandleFunc("POST /session/mfa-verify", g.verify)
	mux.HandleFunc("POST /session/refresh", g.doRefresh)
	mux.HandleFunc("POST /session/logout", g.logout)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "raw": "ok"})
	})
	mux.HandleFunc("/api/thing", g.thing)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return g, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// issueLocked выпускает новую пару и ставит refresh-куку.
func (g *fakeGateway) issueLocked(w http.ResponseWriter) {
	g.seq++
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "root",
		"n":   g.seq,
		"exp": g.clock.Now().Add(g.ttl).Unix(),
	}).SignedString([]byte("gw-key"))
	if err != nil {
		g.t.Errorf("mint: %v", err)
	}

	g.access = tok
	g.refresh = fmt.Sprintf("ref-%d", g.seq)
	http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: g.refresh, Path: "/", HttpOnly: true, MaxAge: 3600})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "access_token": tok})
}

func clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "", Path: "/", HttpOnly: true, MaxAge: -1})
}

func (g *fakeGateway) login(w http.ResponseWriter, r *http.Request) {
	var in map[string]string
	_ = json.NewDecoder(r.Body).Decode(&in)

	g.mu.Lock()
	defer g.mu.Unlock()

	if in["password"] != "pw" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid credentials"})
		return
	}
	if g.mfa {
		writeJSON(w, http.StatusAccepted, map[string]any{"mfa_required": true, "mfa_tx": "tx-1"})
		return
	}
	g.issueLocked(w)
}

func (g *fakeGateway) verify(w http.ResponseWriter, r *http.Request) {
	var in map[string]string
	_ = json.NewDecoder(r.Body).Decode(&in)

	g.mu.Lock()
	defer g.mu.Unlock()

	if in["mfa_tx"] != "tx-1" || in["code"] != "123456" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "invalid code"})
		return
	}
	g.issueLocked(w)
}

func (g *fakeGateway) doRefresh(w http.ResponseWriter, r *http.Request) {
	g.refreshCalls.Add(1)
	g.refreshEntered <- struct{}{}

	g.mu.Lock()
	gate := g.refreshGate
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.refreshStatus != 0 {
		clearCookie(w)
		writeJSON(w, g.refreshStatus, map[string]any{"detail": "refresh failed"})
		return
	}

	c, err := r.Cookie("refresh_token")
	if err != nil || c.Value == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false})
		return
	}
	if c.Value != g.refresh {
		clearCookie(w)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "refresh token revoked"})
		return
	}
	g.issueLocked(w)
}

func (g *fakeGateway) logout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (g *fakeGateway) thing(w http.ResponseWriter, r *http.Request) {
	g.thingCalls.Add(1)

	g.mu.Lock()
	valid := !g.always401 && g.access != "" && r.Header.Get("Authorization") == "Bearer "+g.access
	g.mu.Unlock()

	if !valid {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "token expired"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// expireAccess делает текущий access-токен невалидным для /api/thing.
func (g *fakeGateway) expireAccess() {
	g.mu.Lock()
	g.access = ""
	g.mu.Unlock()
}

func (g *fakeGateway) set(f func(g *fakeGateway)) {
	g.mu.Lock()
	f(g)
	g.mu.Unlock()
}
