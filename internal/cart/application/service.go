package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dmehra2102/storefront/internal/cart/domain"
	catalog "github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
)

type Service struct {
	log      *slog.Logger
	carts    CartStore
	products ProductReader
}

func NewService(log *slog.Logger, carts CartStore, products ProductReader) *Service {
	return &Service{log: log, carts: carts, products: products}
}

func (s *Service) Get(ctx context.Context, userID string) ([]domain.Line, error) {
	c, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, c)
}

// AddItem merges quantity into the user's cart. The resulting quantity for
// the product must not exceed its current stock.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) ([]domain.Line, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperr.Invalid("productId is required")
	}
	if err := domain.ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	c, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := p.CheckAdditionalStock(c.Quantity(productID), quantity); err != nil {
		return nil, err
	}

	next := c.Add(productID, quantity)
	if err := s.carts.SaveCart(ctx, userID, next); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "cart item added", "user_id", userID, "product_id", productID, "quantity", quantity)
	return s.resolve(ctx, next)
}

// UpdateItem overwrites the quantity of an entry already in the cart.
func (s *Service) UpdateItem(ctx context.Context, userID, productID string, quantity int) ([]domain.Line, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	c, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	next, err := c.Set(productID, quantity)
	if err != nil {
		return nil, err
	}

	p, err := s.products.Get(ctx, productID)
	switch {
	case err == nil:
		if err := p.CheckStock(quantity); err != nil {
			return nil, err
		}
	case errors.Is(err, catalog.ErrProductNotFound):
		// dangling entry; the quantity is still editable and resolves to a null product
	default:
		return nil, err
	}

	if err := s.carts.SaveCart(ctx, userID, next); err != nil {
		return nil, err
	}
	return s.resolve(ctx, next)
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) ([]domain.Line, error) {
	c, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := c.Remove(productID)
	if err := s.carts.SaveCart(ctx, userID, next); err != nil {
		return nil, err
	}
	return s.resolve(ctx, next)
}

// Clear empties the cart after a checkout.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.carts.SaveCart(ctx, userID, domain.Cart{})
}

// Entries returns the stored cart without resolving products.
func (s *Service) Entries(ctx context.Context, userID string) (domain.Cart, error) {
	return s.carts.GetCart(ctx, userID)
}

func (s *Service) resolve(ctx context.Context, c domain.Cart) ([]domain.Line, error) {
	if len(c) == 0 {
		return []domain.Line{}, nil
	}
	products, err := s.products.GetMany(ctx, c.ProductIDs())
	if err != nil {
		return nil, err
	}
	return domain.Resolve(c, products), nil
}
