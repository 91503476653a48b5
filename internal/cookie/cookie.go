// cookie управляет ротируемой refresh-кукой сессии.
//
// Кука всегда HttpOnly, SameSite=Lax, Path=/; Secure — по конфигурации.
// Значение кодируется как URL-компонент, чтобы непрозрачный токен апстрима
// мог содержать любые символы.
package cookie

import (
	"net/http"
	"net/url"
	"time"

	"github.com/pribylovaa/admin-session-gateway/internal/config"
)

const (
	// DefaultName — имя куки по умолчанию.
	DefaultName = "refresh_token"
	// DefaultMaxAge — 30 дней.
	DefaultMaxAge = 30 * 24 * time.Hour
)

// Manager выставляет, ротирует и очищает refresh-куку.
type Manager struct {
	name   string
	maxAge int // секунды
	secure bool
}

// NewManager создаёт менеджер. Пустое имя и неположительный MaxAge
// заменяются значениями по умолчанию.
func NewManager(cfg config.CookieConfig, secure bool) *Manager {
	name := cfg.Name
	if name == "" {
		name = DefaultName
	}

	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	return &Manager{
		name:   name,
		maxAge: int(maxAge / time.Second),
		secure: secure,
	}
}

// Name возвращает имя куки.
func (m *Manager) Name() string { return m.name }

// Set выставляет (или ротирует) куку с новым refresh-токеном.
func (m *Manager) Set(w http.ResponseWriter, refreshToken string) {
	http.SetCookie(w, m.cookie(url.QueryEscape(refreshToken), m.maxAge))
}

// Clear инвалидирует куку: пустое значение и Max-Age=0.
func (m *Manager) Clear(w http.ResponseWriter) {
	// MaxAge<0 в net/http сериализуется как "Max-Age=0".
	http.SetCookie(w, m.cookie("", -1))
}

// Read достаёт refresh-токен из входящего запроса.
// Отсутствующая или пустая кука — ("", false).
func (m *Manager) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.name)
	if err != nil {
		return "", false
	}

	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		v = c.Value
	}

	if v == "" {
		return "", false
	}

	return v, true
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
