package application

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/storefront/internal/order/domain"
)

// Notifier reacts to relayed order events. Notifications are emitted as
// structured log lines for a downstream mail/sms shipper.
type Notifier struct {
	log *slog.Logger
}

func NewNotifier(log *slog.Logger) *Notifier {
	return &Notifier{log: log}
}

func (n *Notifier) OrderCreated(ctx context.Context, ev domain.OrderCreated) error {
	n.log.InfoContext(ctx, "notify order confirmation",
		"order_id", ev.OrderID,
		"user_id", ev.UserID,
		"items", len(ev.Items),
		"total", ev.TotalPrice.StringFixed(2),
	)
	return nil
}

func (n *Notifier) OrderDelivered(ctx context.Context, ev domain.OrderDelivered) error {
	n.log.InfoContext(ctx, "notify order delivered",
		"order_id", ev.OrderID,
		"user_id", ev.UserID,
		"delivered_at", ev.DeliveredAt,
	)
	return nil
}
