package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-grocer/internal/auth"
	"github.com/noah-isme/backend-grocer/internal/basket"
	"github.com/noah-isme/backend-grocer/internal/catalog"
	"github.com/noah-isme/backend-grocer/internal/compare"
	"github.com/noah-isme/backend-grocer/internal/health"
	"github.com/noah-isme/backend-grocer/internal/inventory"
	"github.com/noah-isme/backend-grocer/internal/obs"
	"github.com/noah-isme/backend-grocer/internal/order"
	"github.com/noah-isme/backend-grocer/internal/security"
	"github.com/noah-isme/backend-grocer/internal/vendor"
)

type routes struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
	Tracing        bool
	HTTPMetrics    *obs.HTTPMetrics
	Metrics        bool
	Pprof          http.Handler

	Headers   security.Headers
	BodyLimit security.BodyLimit
	Idem      func(http.Handler) http.Handler
	// LoginLimit and CompareLimit may be nil.
	LoginLimit   func(http.Handler) http.Handler
	CompareLimit func(http.Handler) http.Handler

	Health    health.Handler
	AuthMW    auth.Middleware
	Auth      *auth.Handler
	Vendors   *vendor.Handler
	Catalog   *catalog.Handler
	Basket    *basket.Handler
	Compare   *compare.Handler
	Orders    *order.Handler
	Inventory *inventory.Handler
}

func passthrough(next http.Handler) http.Handler { return next }

func orPassthrough(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return passthrough
	}
	return mw
}

func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if rt.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if rt.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: rt.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: rt.Logger}.Middleware)
	r.Use(rt.Headers.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(rt.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"X-Total-Count", "Retry-After", "Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(rt.BodyLimit.Middleware)

	if rt.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	if rt.Pprof != nil {
		r.Mount("/debug/pprof", rt.Pprof)
	}
	r.Get("/health/live", rt.Health.Live)
	r.Get("/health/ready", rt.Health.Ready)

	idem := orPassthrough(rt.Idem)
	compareLimit := orPassthrough(rt.CompareLimit)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/vendors", rt.Vendors.List)
		v.Get("/vendors/{slug}", rt.Vendors.Get)
		v.Get("/categories", rt.Catalog.Categories)
		v.Get("/products", rt.Catalog.Products)
		v.Get("/products/{id}", rt.Catalog.Product)
		v.With(compareLimit).Post("/compare", rt.Compare.Catalog)

		v.Route("/auth", func(a chi.Router) {
			a.Post("/register", rt.Auth.Register)
			a.With(orPassthrough(rt.LoginLimit)).Post("/login", rt.Auth.Login)
			a.With(rt.AuthMW.RequireAuth).Get("/me", rt.Auth.Me)
		})

		v.Group(func(p chi.Router) {
			p.Use(rt.AuthMW.RequireAuth)

			p.Route("/basket", func(b chi.Router) {
				b.Get("/items", rt.Basket.List)
				b.Post("/items", rt.Basket.Add)
				b.Patch("/items/{itemId}", rt.Basket.Update)
				b.Delete("/items/{itemId}", rt.Basket.Remove)
				b.With(compareLimit).Get("/compare", rt.Compare.Basket)
				b.With(compareLimit).Get("/compare/export", rt.Compare.Export)
			})

			p.Route("/orders", func(o chi.Router) {
				o.With(idem).Post("/", rt.Orders.Place)
				o.Get("/", rt.Orders.List)
				o.Get("/{orderId}", rt.Orders.Get)
				o.With(idem).Post("/{orderId}/cancel", rt.Orders.Cancel)
			})

			p.Route("/inventory", func(i chi.Router) {
				i.Get("/", rt.Inventory.List)
				i.Post("/", rt.Inventory.Create)
				i.Get("/suggestions", rt.Inventory.Suggestions)
				i.Patch("/{id}", rt.Inventory.Update)
				i.Delete("/{id}", rt.Inventory.Delete)
				i.Post("/{id}/add-to-list", rt.Inventory.AddToList)
			})
		})
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
