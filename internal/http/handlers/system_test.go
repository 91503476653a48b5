package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/admin-session-gateway/internal/models"
	"github.com/pribylovaa/admin-session-gateway/internal/upstream"
)

func TestHealth_RelaysUpstream(t *testing.T) {
	h, api := newHandlersWithMock(t)

	api.EXPECT().Health(gomock.Any()).Return(&upstream.Response{
		Status:      http.StatusOK,
		ContentType: "text/plain",
		Body:        []byte("ok"),
	}, nil)

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"success":true,"raw":"ok"}`, rr.Body.String())
}

func TestHealth_TransportError_500(t *testing.T) {
	h, api := newHandlersWithMock(t)

	api.EXPECT().Health(gomock.Any()).Return(nil, fmt.Errorf("op: %w: refused", models.ErrTransport))

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestDefaults_FromConfig(t *testing.T) {
	h, _ := newHandlersWithMock(t)

	rr := httptest.NewRecorder()
	h.Defaults(rr, httptest.NewRequest(http.MethodGet, "/session/defaults", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"success":true,"username_default":"root","email_default":"root@example.com"}`, rr.Body.String())
}

func TestDefaults_OmitsEmpty(t *testing.T) {
	h, _ := newHandlersWithMock(t)
	h.Prefill.Email = ""

	rr := httptest.NewRecorder()
	h.Defaults(rr, httptest.NewRequest(http.MethodGet, "/session/defaults", nil))

	require.JSONEq(t, `{"success":true,"username_default":"root"}`, rr.Body.String())
}
