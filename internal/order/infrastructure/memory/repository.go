package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

// Stock decrements every product in qty, or none of them.
type Stock interface {
	ReserveAll(ctx context.Context, qty map[string]int) error
}

// Repository keeps orders in memory. Outbox events are recorded but never
// relayed.
type Repository struct {
	mu     sync.RWMutex
	stock  Stock
	orders map[string]domain.Order
	events []outbox.Event
}

func NewRepository(stock Stock) *Repository {
	return &Repository{stock: stock, orders: make(map[string]domain.Order)}
}

func (r *Repository) Place(ctx context.Context, o domain.Order, ev outbox.Event) error {
	qty := make(map[string]int, len(o.Items))
	for _, it := range o.Items {
		qty[it.ProductID] += it.Quantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.stock.ReserveAll(ctx, qty); err != nil {
		return err
	}
	r.orders[o.ID] = clone(o)
	r.events = append(r.events, ev)
	return nil
}

func (r *Repository) SaveDelivery(_ context.Context, o domain.Order, ev outbox.Event) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.orders[o.ID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if cur.IsDelivered {
		return false, nil
	}
	cur.IsDelivered, cur.DeliveredAt, cur.UpdatedAt = o.IsDelivered, o.DeliveredAt, o.UpdatedAt
	r.orders[o.ID] = cur
	r.events = append(r.events, ev)
	return true, nil
}

func (r *Repository) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return clone(o), nil
}

func (r *Repository) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	return r.list(func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (r *Repository) List(_ context.Context) ([]domain.Order, error) {
	return r.list(func(domain.Order) bool { return true }), nil
}

// Events returns the outbox events recorded so far.
func (r *Repository) Events() []outbox.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]outbox.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Repository) list(keep func(domain.Order) bool) []domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orders := []domain.Order{}
	for _, o := range r.orders {
		if keep(o) {
			orders = append(orders, clone(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
	return orders
}

func clone(o domain.Order) domain.Order {
	items := make([]domain.LineItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		o.DeliveredAt = &t
	}
	return o
}
