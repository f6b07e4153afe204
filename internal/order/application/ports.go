package application

import (
	"context"

	cart "github.com/dmehra2102/storefront/internal/cart/domain"
	catalog "github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

type OrderRepository interface {
	// Place decrements stock for every line item only if enough is available,
	// then stores the order and its outbox event. Nothing is written when any
	// line fails.
	Place(ctx context.Context, o domain.Order, ev outbox.Event) error
	Get(ctx context.Context, id string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	// SaveDelivery persists the delivery state together with its outbox event.
	// It reports false, writing nothing, when the order was already delivered.
	SaveDelivery(ctx context.Context, o domain.Order, ev outbox.Event) (bool, error)
}

type ProductReader interface {
	GetMany(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

// CartReader exposes the requester's stored cart for checkout-from-cart.
type CartReader interface {
	Entries(ctx context.Context, userID string) (cart.Cart, error)
	Clear(ctx context.Context, userID string) error
}
