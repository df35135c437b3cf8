package security_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-grocer/internal/common"
	"github.com/noah-isme/backend-grocer/internal/security"
)

type itemRequest struct {
	Name string `json:"name"`
}

func decodeHandler(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func TestBodyLimitRejectsDeclaredOversize(t *testing.T) {
	handler := security.BodyLimit{Max: 8}.Middleware(http.HandlerFunc(decodeHandler))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/basket/items", strings.NewReader(`{"name":"basmati rice"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Contains(t, rr.Body.String(), "PAYLOAD_TOO_LARGE")
}

func TestBodyLimitStopsStreamedOversize(t *testing.T) {
	handler := security.BodyLimit{Max: 8}.Middleware(http.HandlerFunc(decodeHandler))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/basket/items", io.NopCloser(strings.NewReader(`{"name":"basmati rice"}`)))
	req.ContentLength = -1
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBodyLimitPassesSmallBodies(t *testing.T) {
	handler := security.BodyLimit{Max: 1024}.Middleware(http.HandlerFunc(decodeHandler))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/basket/items", strings.NewReader(`{"name":"milk"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestHeaders(t *testing.T) {
	handler := security.Headers{EnableHSTS: true}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/vendors", nil))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendors", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}
