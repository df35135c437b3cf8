package main

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-grocer/internal/auth"
	"github.com/noah-isme/backend-grocer/internal/basket"
	"github.com/noah-isme/backend-grocer/internal/catalog"
	"github.com/noah-isme/backend-grocer/internal/compare"
	"github.com/noah-isme/backend-grocer/internal/health"
	"github.com/noah-isme/backend-grocer/internal/inventory"
	"github.com/noah-isme/backend-grocer/internal/order"
	"github.com/noah-isme/backend-grocer/internal/security"
	"github.com/noah-isme/backend-grocer/internal/vendor"
)

func testRouter() http.Handler {
	return newRouter(routes{
		Logger:    zerolog.Nop(),
		Headers:   security.Headers{},
		BodyLimit: security.BodyLimit{Max: 1 << 10},
		Health:    health.Handler{},
		Auth:      &auth.Handler{},
		Vendors:   &vendor.Handler{},
		Catalog:   catalog.NewHandler(catalog.HandlerConfig{}),
		Basket:    &basket.Handler{},
		Compare:   &compare.Handler{},
		Orders:    &order.Handler{},
		Inventory: &inventory.Handler{},
	})
}

func TestRouterRegistersEndpoints(t *testing.T) {
	mux, ok := testRouter().(chi.Routes)
	require.True(t, ok)

	var got []string
	require.NoError(t, chi.Walk(mux, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		got = append(got, method+" "+route)
		return nil
	}))
	sort.Strings(got)

	for _, want := range []string{
		"GET /health/live",
		"GET /health/ready",
		"GET /api/v1/vendors",
		"GET /api/v1/products/{id}",
		"POST /api/v1/compare",
		"POST /api/v1/auth/login",
		"GET /api/v1/basket/compare",
		"GET /api/v1/basket/compare/export",
		"PATCH /api/v1/basket/items/{itemId}",
		"POST /api/v1/orders/",
		"POST /api/v1/orders/{orderId}/cancel",
		"GET /api/v1/inventory/suggestions",
		"POST /api/v1/inventory/{id}/add-to-list",
	} {
		require.Contains(t, got, want)
	}
}

func TestRouterAppliesSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestProtectedRoutesNeedAuthService(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/basket/items", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestProtectPprof(t *testing.T) {
	h := protectPprof(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), "ops", "secret")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("ops", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
