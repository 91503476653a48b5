package cookie

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/admin-session-gateway/internal/config"
)

func setCookieHeader(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	vals := rr.Header().Values("Set-Cookie")
	require.Len(t, vals, 1, "ожидаем ровно одну Set-Cookie")
	return vals[0]
}

func TestSet_Attributes(t *testing.T) {
	t.Parallel()

	m := NewManager(config.CookieConfig{}, false)
	rr := httptest.NewRecorder()
	m.Set(rr, "r1")

	h := setCookieHeader(t, rr)
	require.True(t, strings.HasPrefix(h, "refresh_token=r1"))
	require.Contains(t, h, "Path=/")
	require.Contains(t, h, "HttpOnly")
	require.Contains(t, h, "SameSite=Lax")
	require.Contains(t, h, "Max-Age=2592000")
	require.NotContains(t, h, "Secure")
}

func TestSet_SecureAndCustomConfig(t *testing.T) {
	t.Parallel()

	m := NewManager(config.CookieConfig{Name: "rt", MaxAge: time.Hour}, true)
	rr := httptest.NewRecorder()
	m.Set(rr, "v")

	h := setCookieHeader(t, rr)
	require.True(t, strings.HasPrefix(h, "rt=v"))
	require.Contains(t, h, "Max-Age=3600")
	require.Contains(t, h, "Secure")
	require.Equal(t, "rt", m.Name())
}

func TestClear_MaxAgeZero(t *testing.T) {
	t.Parallel()

	m := NewManager(config.CookieConfig{}, true)
	rr := httptest.NewRecorder()
	m.Clear(rr)

	h := setCookieHeader(t, rr)
	require.True(t, strings.HasPrefix(h, "refresh_token=;"))
	require.Contains(t, h, "Max-Age=0")
	require.Contains(t, h, "HttpOnly")
	require.Contains(t, h, "SameSite=Lax")
	require.Contains(t, h, "Path=/")
	require.Contains(t, h, "Secure")
}

// Значение, выставленное Set, читается обратно тем же Read (URL-кодирование).
func TestSetThenRead_RoundTrip(t *testing.T) {
	t.Parallel()

	m := NewManager(config.CookieConfig{}, false)
	const token = "a b/c+=;d"

	rr := httptest.NewRecorder()
	m.Set(rr, token)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodPost, "/session/refresh", nil)
	req.AddCookie(cookies[0])

	got, ok := m.Read(req)
	require.True(t, ok)
	require.Equal(t, token, got)
}

func TestRead_MissingOrEmpty(t *testing.T) {
	t.Parallel()

	m := NewManager(config.CookieConfig{}, false)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	_, ok := m.Read(req)
	require.False(t, ok)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Cookie", "refresh_token=")
	_, ok = m.Read(req)
	require.False(t, ok)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Cookie", "other=x")
	_, ok = m.Read(req)
	require.False(t, ok)
}

// Невалидное %-кодирование не ломает чтение: отдаём сырое значение.
func TestRead_InvalidEscape_FallsBackToRaw(t *testing.T) {
	t.Parallel()

	m := NewManager(config.CookieConfig{}, false)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Cookie", "refresh_token=abc%zz")

	got, ok := m.Read(req)
	require.True(t, ok)
	require.Equal(t, "abc%zz", got)
}
