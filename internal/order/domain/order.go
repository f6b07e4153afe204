package domain

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

var (
	ErrOrderNotFound = apperr.New(apperr.KindNotFound, "order not found")
	ErrNoItems       = apperr.New(apperr.KindInvalid, "no order items")
	ErrNotOwner      = apperr.New(apperr.KindForbidden, "not authorized to view this order")
)

// Order is immutable once placed except for its delivery state.
type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Items       []LineItem      `json:"items"`
	ItemsPrice  decimal.Decimal `json:"itemsPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	IsDelivered bool            `json:"isDelivered"`
	DeliveredAt *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// LineItem is a snapshot of a product at purchase time.
type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

func NewOrder(id, userID string, items []LineItem, now time.Time) Order {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	snap := make([]LineItem, len(items))
	copy(snap, items)
	return Order{
		ID:         id,
		UserID:     userID,
		Items:      snap,
		ItemsPrice: total,
		TotalPrice: total,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkDelivered flips the delivery flag and reports whether it changed.
// Delivering twice keeps the first timestamp.
func (o *Order) MarkDelivered(now time.Time) bool {
	if o.IsDelivered {
		return false
	}
	o.IsDelivered = true
	o.DeliveredAt = &now
	o.UpdatedAt = now
	return true
}

// ItemRequest is one requested line of a new order.
type ItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// NormalizeItems validates requested lines and merges repeated products,
// keeping first-seen order.
func NormalizeItems(reqs []ItemRequest) ([]ItemRequest, error) {
	if len(reqs) == 0 {
		return nil, ErrNoItems
	}
	out := make([]ItemRequest, 0, len(reqs))
	index := make(map[string]int, len(reqs))
	for _, r := range reqs {
		id := strings.TrimSpace(r.ProductID)
		if id == "" {
			return nil, apperr.Invalid("productId is required for every item")
		}
		if r.Quantity < 1 {
			return nil, apperr.Invalid("quantity must be an integer >= 1")
		}
		if i, ok := index[id]; ok {
			if out[i].Quantity > math.MaxInt-r.Quantity {
				return nil, apperr.Invalid("quantity for product %s is too large", id)
			}
			out[i].Quantity += r.Quantity
			continue
		}
		index[id] = len(out)
		out = append(out, ItemRequest{ProductID: id, Quantity: r.Quantity})
	}
	return out, nil
}
