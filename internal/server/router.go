package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dmehra2102/storefront/internal/auth"
	carthttp "github.com/dmehra2102/storefront/internal/cart/infrastructure/http"
	cataloghttp "github.com/dmehra2102/storefront/internal/catalog/infrastructure/http"
	orderhttp "github.com/dmehra2102/storefront/internal/order/infrastructure/http"
	userhttp "github.com/dmehra2102/storefront/internal/user/infrastructure/http"
	"github.com/dmehra2102/storefront/pkg/httpx"
	"github.com/dmehra2102/storefront/pkg/idempotency"
)

const Banner = "E-commerce API is running..."

type Handlers struct {
	Users    *userhttp.Handler
	Products *cataloghttp.Handler
	Cart     *carthttp.Handler
	Orders   *orderhttp.Handler
}

// NewRouter assembles the HTTP surface. idem may be nil; no origins means any.
func NewRouter(log *slog.Logger, authn *auth.Middleware, h Handlers, idem func(http.Handler) http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", idempotency.HeaderKey},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.NotFound(httpx.NotFound)
	r.MethodNotAllowed(httpx.MethodNotAllowed)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(Banner))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.NotFound(httpx.NotFound)
		r.MethodNotAllowed(httpx.MethodNotAllowed)
		r.Mount("/auth", h.Users.AuthRoutes(authn))
		r.Mount("/users", h.Users.UserRoutes(authn))
		r.Mount("/products", h.Products.Routes(authn))
		r.Mount("/cart", h.Cart.Routes(authn))
		r.Mount("/orders", h.Orders.Routes(authn, idem))
	})
	return r
}
