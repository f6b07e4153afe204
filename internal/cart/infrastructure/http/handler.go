package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/auth"
	"github.com/dmehra2102/storefront/internal/cart/application"
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
		tracer:  otel.Tracer("cart-http"),
	}
}

type addItemReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateItemReq struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) Routes(authn *auth.Middleware) http.Handler {
	r := chi.NewRouter()
	r.Use(authn.Authenticated)
	r.Get("/", h.getCart)
	r.Post("/", h.addItem)
	r.Put("/{productId}", h.updateItem)
	r.Delete("/{productId}", h.removeItem)
	return r
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetCart")
	defer span.End()

	lines, err := h.service.Get(ctx, userID(r))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lines)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddCartItem")
	defer span.End()

	var req addItemReq
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	lines, err := h.service.AddItem(ctx, userID(r), req.ProductID, req.Quantity)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lines)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateCartItem")
	defer span.End()

	var req updateItemReq
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	lines, err := h.service.UpdateItem(ctx, userID(r), chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lines)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveCartItem")
	defer span.End()

	lines, err := h.service.RemoveItem(ctx, userID(r), chi.URLParam(r, "productId"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lines)
}

func userID(r *http.Request) string {
	u, _ := auth.UserFrom(r.Context())
	return u.ID
}
