package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/auth"
	"github.com/dmehra2102/storefront/internal/order/application"
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
		tracer:  otel.Tracer("order-http"),
	}
}

// Routes mounts the order endpoints. Every route requires authentication.
// idem, when non-nil, guards order creation against replays.
func (h *Handler) Routes(authn *auth.Middleware, idem func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(authn.Authenticated)

	create := http.Handler(http.HandlerFunc(h.createOrder))
	if idem != nil {
		create = idem(create)
	}
	r.Method(http.MethodPost, "/", create)
	r.Get("/myorders", h.getMyOrders)
	r.Get("/{id}", h.getOrder)

	r.Group(func(r chi.Router) {
		r.Use(authn.RequireAdmin)
		r.Get("/", h.getOrders)
		r.Put("/{id}/deliver", h.deliverOrder)
	})
	return r
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req application.PlaceRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}

	o, err := h.service.CreateOrder(ctx, requester(r), req)
	if err != nil {
		span.RecordError(err)
		httpx.Error(w, r, h.log, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID), attribute.Int("order.items", len(o.Items)))
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.service.GetOrderByID(ctx, requester(r), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) getMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetMyOrders")
	defer span.End()

	orders, err := h.service.GetMyOrders(ctx, requester(r))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrders")
	defer span.End()

	orders, err := h.service.GetOrders(ctx)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) deliverOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeliverOrder")
	defer span.End()

	o, err := h.service.UpdateOrderToDelivered(ctx, chi.URLParam(r, "id"))
	if err != nil {
		span.RecordError(err)
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func requester(r *http.Request) application.Requester {
	u, _ := auth.UserFrom(r.Context())
	return application.Requester{UserID: u.ID, IsAdmin: u.IsAdmin()}
}
