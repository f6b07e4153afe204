package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

// Handler reacts to order events. A returned error is logged and the message
// is still committed.
type Handler interface {
	OrderCreated(ctx context.Context, ev domain.OrderCreated) error
	OrderDelivered(ctx context.Context, ev domain.OrderDelivered) error
}

// Deduper remembers processed event ids.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
}

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	log     *slog.Logger
	reader  Reader
	handler Handler
	dedup   Deduper
	tracer  trace.Tracer
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

// NewConsumer builds a consumer. dedup may be nil, in which case redelivered
// events are handled again.
func NewConsumer(log *slog.Logger, reader Reader, handler Handler, dedup Deduper) *Consumer {
	return &Consumer{
		log:     log,
		reader:  reader,
		handler: handler,
		dedup:   dedup,
		tracer:  otel.Tracer("order-events-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		c.Handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

// Handle processes one message. Duplicates and undecodable messages are
// skipped.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) {
	eventID := header(msg.Headers, outbox.HeaderEventID)
	eventType := header(msg.Headers, outbox.HeaderEventType)

	if c.dedup != nil && eventID != "" {
		seen, err := c.dedup.Seen(ctx, "order-event:"+eventID)
		if err != nil {
			c.log.Error("idempotency check failed", "event_id", eventID, "err", err)
		} else if seen {
			c.log.Info("duplicate event skipped", "event_id", eventID)
			return
		}
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "Consume"+eventType,
		trace.WithAttributes(attribute.String("event.id", eventID), attribute.String("order.id", string(msg.Key))))
	defer span.End()

	if err := c.dispatch(msgCtx, eventType, msg.Value); err != nil {
		span.RecordError(err)
		c.log.Error("order event failed", "event_id", eventID, "type", eventType, "err", err)
	}
}

func (c *Consumer) dispatch(ctx context.Context, eventType string, payload []byte) error {
	switch eventType {
	case domain.EventOrderCreated:
		var ev domain.OrderCreated
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", eventType, err)
		}
		return c.handler.OrderCreated(ctx, ev)
	case domain.EventOrderDelivered:
		var ev domain.OrderDelivered
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", eventType, err)
		}
		return c.handler.OrderDelivered(ctx, ev)
	default:
		c.log.Warn("unknown order event", "type", eventType)
		return nil
	}
}

func header(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
