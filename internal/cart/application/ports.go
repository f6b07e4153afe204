package application

import (
	"context"

	"github.com/dmehra2102/storefront/internal/cart/domain"
	catalog "github.com/dmehra2102/storefront/internal/catalog/domain"
)

// CartStore reads and replaces the cart embedded in a user document. Both
// fail with the user NotFound error when the user does not exist.
type CartStore interface {
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	SaveCart(ctx context.Context, userID string, c domain.Cart) error
}

type ProductReader interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}
