package upstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/admin-session-gateway/internal/metrics"
	"github.com/pribylovaa/admin-session-gateway/pkg/log"
)

type capHandler struct {
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
	count   map[string]int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})
	if h.count == nil {
		h.count = make(map[string]int)
	}
	h.count[r.Message]++
	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.base = append(h.base, attrs...)
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

// stub — терминальный RoundTripper, запоминающий последний запрос.
type stub struct {
	last   *http.Request
	status int
	err    error
}

func (s *stub) RoundTrip(r *http.Request) (*http.Response, error) {
	s.last = r
	if s.err != nil {
		return nil, s.err
	}
	return &http.Response{
		StatusCode: s.status,
		Body:       io.NopCloser(strings.NewReader("{}")),
		Header:     http.Header{},
		Request:    r,
	}, nil
}

func newReq(ctx context.Context, path string) *http.Request {
	r, _ := http.NewRequestWithContext(ctx, http.MethodPost, "http://upstream.local"+path, nil)
	return r
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}

	base := &stub{status: http.StatusOK}
	_, err := Chain(base, mw("a"), mw("b")).RoundTrip(newReq(context.Background(), "/x"))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, order)
}

func TestWithMetadata_AppendsHeaders(t *testing.T) {
	t.Parallel()

	const rid = "rid-123"
	const tok = "token-xyz"
	const ua = "session-gateway"

	ctx := context.WithValue(context.Background(), CtxRequestID, rid)
	ctx = context.WithValue(ctx, CtxAuthToken, tok)

	base := &stub{status: http.StatusOK}
	orig := newReq(ctx, "/admin/password")
	_, err := Chain(base, WithMetadata(ua)).RoundTrip(orig)
	require.NoError(t, err)

	require.Equal(t, rid, base.last.Header.Get("X-Request-Id"))
	require.Equal(t, "Bearer "+tok, base.last.Header.Get("Authorization"))
	require.Equal(t, ua, base.last.Header.Get("User-Agent"))

	// Исходный запрос не мутируется.
	require.Empty(t, orig.Header.Get("Authorization"))
}

func TestWithMetadata_KeepsExistingHeaders(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), CtxAuthToken, "from-ctx")
	req := newReq(ctx, "/x")
	req.Header.Set("Authorization", "Bearer explicit")

	base := &stub{status: http.StatusOK}
	_, err := Chain(base, WithMetadata("")).RoundTrip(req)
	require.NoError(t, err)
	require.Equal(t, "Bearer explicit", base.last.Header.Get("Authorization"))
}

func TestWithTimeout_SetsDeadline_CancelsOnClose(t *testing.T) {
	t.Parallel()

	base := &stub{status: http.StatusOK}
	resp, err := Chain(base, WithTimeout(time.Second)).RoundTrip(newReq(context.Background(), "/x"))
	require.NoError(t, err)

	innerCtx := base.last.Context()
	_, ok := innerCtx.Deadline()
	require.True(t, ok)
	require.NoError(t, innerCtx.Err())

	require.NoError(t, resp.Body.Close())
	require.ErrorIs(t, innerCtx.Err(), context.Canceled)
}

func TestWithTimeout_RespectsExistingDeadline(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	base := &stub{status: http.StatusOK}
	_, err := Chain(base, WithTimeout(time.Minute)).RoundTrip(newReq(parent, "/x"))
	require.NoError(t, err)

	pdl, _ := parent.Deadline()
	cdl, _ := base.last.Context().Deadline()
	require.Equal(t, pdl, cdl)
}

func TestWithTimeout_ZeroIsNoop(t *testing.T) {
	t.Parallel()

	base := &stub{status: http.StatusOK}
	_, err := Chain(base, WithTimeout(0)).RoundTrip(newReq(context.Background(), "/x"))
	require.NoError(t, err)

	_, ok := base.last.Context().Deadline()
	require.False(t, ok)
}

func TestWithLogging_SuccessRecord(t *testing.T) {
	h := &capHandler{}
	base := &stub{status: http.StatusCreated}

	_, err := Chain(base, WithLogging(slog.New(h))).RoundTrip(newReq(context.Background(), "/log-ok"))
	require.NoError(t, err)

	require.Equal(t, 1, h.count["upstream"])
	require.Equal(t, slog.LevelInfo, h.lastLvl)
	require.EqualValues(t, http.StatusCreated, h.attrs["status"])
	require.Equal(t, "/log-ok", h.attrs["path"])
	require.Equal(t, http.MethodPost, h.attrs["method"])

	rid, _ := h.attrs["request_id"].(string)
	require.NotEmpty(t, rid)
	require.Equal(t, rid, base.last.Header.Get("X-Request-Id"))

	// Логгер доступен нижележащим транспортам.
	require.Same(t, h, log.From(base.last.Context()).Handler())
}

func TestWithLogging_ErrorIsWarn(t *testing.T) {
	h := &capHandler{}
	base := &stub{err: errors.New("connection refused")}

	_, err := Chain(base, WithLogging(slog.New(h))).RoundTrip(newReq(context.Background(), "/log-err"))
	require.Error(t, err)

	require.Equal(t, slog.LevelWarn, h.lastLvl)
	require.Equal(t, "connection refused", h.attrs["err"])
}

func TestWithLogging_ObservesUpstreamDuration(t *testing.T) {
	base := &stub{status: http.StatusOK}
	const path = "/observe-me"

	_, err := Chain(base, WithLogging(slog.New(&capHandler{}))).RoundTrip(newReq(context.Background(), path))
	require.NoError(t, err)

	n := testutil.CollectAndCount(metrics.UpstreamRequestDuration, "session_gateway_upstream_request_duration_seconds")
	require.GreaterOrEqual(t, n, 1)
}

func TestWithMetadata_Integration_RequestIDFromContextReachesServer(t *testing.T) {
	t.Parallel()

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-Id")
	}))
	defer srv.Close()

	hc := &http.Client{Transport: Chain(nil, WithMetadata("ua"), WithLogging(slog.New(&capHandler{})))}
	ctx := context.WithValue(context.Background(), CtxRequestID, "rid-int")

	resp, err := NewWithHTTPClient(srv.URL, hc).Health(ctx)
	require.NoError(t, err)
	require.True(t, resp.OK())
	require.Equal(t, "rid-int", got)
}
