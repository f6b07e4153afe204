package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/auth"
	"github.com/dmehra2102/storefront/internal/catalog/application"
	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("catalog-http"),
	}
}

// Routes serves the catalog publicly; writes are admin-only.
func (h *Handler) Routes(authn *auth.Middleware) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.listProducts)
	r.Get("/{id}", h.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(authn.Authenticated, authn.RequireAdmin)
		r.Post("/", h.createProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
	})
	return r
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProducts")
	defer span.End()

	q := r.URL.Query()
	page, err := intParam(q.Get("page"), "page")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}

	res, err := h.service.List(ctx, domain.Filter{
		Keyword:  q.Get("keyword"),
		Category: q.Get("category"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProduct")
	defer span.End()

	p, err := h.service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateProduct")
	defer span.End()

	var f domain.Fields
	if err := httpx.Decode(w, r, &f); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	p, err := h.service.Create(ctx, f)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateProduct")
	defer span.End()

	var f domain.Fields
	if err := httpx.Decode(w, r, &f); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	p, err := h.service.Update(ctx, chi.URLParam(r, "id"), f)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteProduct")
	defer span.End()

	if err := h.service.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "product removed"})
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Invalid("%s must be an integer", name)
	}
	return n, nil
}
