package domain

import (
	"github.com/dmehra2102/storefront/pkg/apperr"
)

var ErrItemNotInCart = apperr.New(apperr.KindNotFound, "item not in cart")

// Entry is one stored cart line: a weak reference to a product plus a quantity.
type Entry struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is the ordered list of entries embedded in a user record. It holds at
// most one entry per product.
type Cart []Entry

func (c Cart) Index(productID string) int {
	for i, e := range c {
		if e.ProductID == productID {
			return i
		}
	}
	return -1
}

// Quantity returns the quantity held for productID, or 0.
func (c Cart) Quantity(productID string) int {
	if i := c.Index(productID); i >= 0 {
		return c[i].Quantity
	}
	return 0
}

// Add merges qty into the existing entry for productID or appends a new one.
func (c Cart) Add(productID string, qty int) Cart {
	out := c.Clone()
	if i := out.Index(productID); i >= 0 {
		out[i].Quantity += qty
		return out
	}
	return append(out, Entry{ProductID: productID, Quantity: qty})
}

// Set overwrites the quantity of an existing entry.
func (c Cart) Set(productID string, qty int) (Cart, error) {
	i := c.Index(productID)
	if i < 0 {
		return nil, ErrItemNotInCart
	}
	out := c.Clone()
	out[i].Quantity = qty
	return out, nil
}

// Remove filters out productID; absent ids leave the cart unchanged.
func (c Cart) Remove(productID string) Cart {
	out := make(Cart, 0, len(c))
	for _, e := range c {
		if e.ProductID != productID {
			out = append(out, e)
		}
	}
	return out
}

func (c Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c))
	for _, e := range c {
		ids = append(ids, e.ProductID)
	}
	return ids
}

func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

func ValidateQuantity(qty int) error {
	if qty < 1 {
		return apperr.Invalid("quantity must be an integer >= 1")
	}
	return nil
}
