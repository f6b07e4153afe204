package application

import (
	"context"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
)

type ProductRepository interface {
	Create(ctx context.Context, p domain.Product) error
	Get(ctx context.Context, id string) (domain.Product, error)
	// GetMany returns the products that exist among ids, keyed by id.
	GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error)
	List(ctx context.Context, f domain.Filter) ([]domain.Product, int, error)
	Update(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, id string) error
}
