package domain

import (
	catalog "github.com/dmehra2102/storefront/internal/catalog/domain"
)

// Line is a cart entry with its product reference resolved. Product is nil
// when the referenced product no longer exists.
type Line struct {
	Product  *catalog.Product `json:"product"`
	Quantity int              `json:"quantity"`
}

// Resolve joins entries with products in cart order.
func Resolve(c Cart, products map[string]catalog.Product) []Line {
	lines := make([]Line, 0, len(c))
	for _, e := range c {
		l := Line{Quantity: e.Quantity}
		if p, ok := products[e.ProductID]; ok {
			l.Product = &p
		}
		lines = append(lines, l)
	}
	return lines
}
