package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	catalog "github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

// Requester identifies the caller of an order operation.
type Requester struct {
	UserID  string
	IsAdmin bool
}

// PlaceRequest is either an explicit item list or a checkout of the stored cart.
type PlaceRequest struct {
	Items    []domain.ItemRequest `json:"items"`
	FromCart bool                 `json:"fromCart"`
}

type Service struct {
	log      *slog.Logger
	repo     OrderRepository
	products ProductReader
	carts    CartReader
	now      func() time.Time
}

func NewService(log *slog.Logger, repo OrderRepository, products ProductReader, carts CartReader) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		products: products,
		carts:    carts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) CreateOrder(ctx context.Context, req Requester, in PlaceRequest) (domain.Order, error) {
	items := in.Items
	if in.FromCart {
		c, err := s.carts.Entries(ctx, req.UserID)
		if err != nil {
			return domain.Order{}, err
		}
		items = make([]domain.ItemRequest, 0, len(c))
		for _, e := range c {
			items = append(items, domain.ItemRequest{ProductID: e.ProductID, Quantity: e.Quantity})
		}
	}
	items, err := domain.NormalizeItems(items)
	if err != nil {
		return domain.Order{}, err
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return domain.Order{}, err
	}

	lines := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			return domain.Order{}, catalog.ErrProductNotFound
		}
		if err := p.CheckStock(it.Quantity); err != nil {
			return domain.Order{}, err
		}
		lines = append(lines, domain.LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			Quantity:  it.Quantity,
			Price:     p.Price,
		})
	}

	o := domain.NewOrder(uuid.NewString(), req.UserID, lines, s.now())
	ev, err := s.event(ctx, o.ID, domain.EventOrderCreated, domain.OrderCreated{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice,
		Items:      o.Items,
		CreatedAt:  o.CreatedAt,
	})
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.Place(ctx, o, ev); err != nil {
		return domain.Order{}, err
	}
	s.log.InfoContext(ctx, "order placed", "order_id", o.ID, "user_id", o.UserID, "total", o.TotalPrice.String())

	if in.FromCart {
		if err := s.carts.Clear(ctx, req.UserID); err != nil {
			s.log.ErrorContext(ctx, "cart clear after checkout failed", "user_id", req.UserID, "err", err)
		}
	}
	return o, nil
}

func (s *Service) GetOrderByID(ctx context.Context, req Requester, id string) (domain.Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if o.UserID != req.UserID && !req.IsAdmin {
		return domain.Order{}, domain.ErrNotOwner
	}
	return o, nil
}

func (s *Service) GetMyOrders(ctx context.Context, req Requester) ([]domain.Order, error) {
	return nonNil(s.repo.ListByUser(ctx, req.UserID))
}

func (s *Service) GetOrders(ctx context.Context) ([]domain.Order, error) {
	return nonNil(s.repo.List(ctx))
}

func (s *Service) UpdateOrderToDelivered(ctx context.Context, id string) (domain.Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !o.MarkDelivered(s.now()) {
		return o, nil
	}
	ev, err := s.event(ctx, o.ID, domain.EventOrderDelivered, domain.OrderDelivered{
		OrderID:     o.ID,
		UserID:      o.UserID,
		DeliveredAt: *o.DeliveredAt,
	})
	if err != nil {
		return domain.Order{}, err
	}
	applied, err := s.repo.SaveDelivery(ctx, o, ev)
	if err != nil {
		return domain.Order{}, err
	}
	if !applied {
		// delivered concurrently; the stored timestamp wins
		return s.repo.Get(ctx, id)
	}
	s.log.InfoContext(ctx, "order delivered", "order_id", o.ID)
	return o, nil
}

func (s *Service) event(ctx context.Context, orderID, eventType string, body any) (outbox.Event, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.NewEvent(uuid.NewString(), domain.AggregateType, orderID, eventType, payload, tracing.Traceparent(ctx)), nil
}

func nonNil(orders []domain.Order, err error) ([]domain.Order, error) {
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}
