package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AggregateType       = "order"
	EventOrderCreated   = "OrderCreated"
	EventOrderDelivered = "OrderDelivered"
)

type OrderCreated struct {
	OrderID    string          `json:"orderId"`
	UserID     string          `json:"userId"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Items      []LineItem      `json:"items"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type OrderDelivered struct {
	OrderID     string    `json:"orderId"`
	UserID      string    `json:"userId"`
	DeliveredAt time.Time `json:"deliveredAt"`
}
