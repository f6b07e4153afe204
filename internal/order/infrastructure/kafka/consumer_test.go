package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/idempotency"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

type recorder struct {
	created   []domain.OrderCreated
	delivered []domain.OrderDelivered
	err       error
}

func (r *recorder) OrderCreated(_ context.Context, ev domain.OrderCreated) error {
	r.created = append(r.created, ev)
	return r.err
}

func (r *recorder) OrderDelivered(_ context.Context, ev domain.OrderDelivered) error {
	r.delivered = append(r.delivered, ev)
	return r.err
}

type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	closed    bool
	drained   func()
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		if f.drained != nil {
			f.drained()
		}
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func message(t *testing.T, id, eventType string, payload any) kafka.Message {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return kafka.Message{
		Key:   []byte("o1"),
		Value: b,
		Headers: []kafka.Header{
			{Key: outbox.HeaderEventID, Value: []byte(id)},
			{Key: outbox.HeaderEventType, Value: []byte(eventType)},
		},
	}
}

func created() domain.OrderCreated {
	return domain.OrderCreated{
		OrderID:    "o1",
		UserID:     "u1",
		TotalPrice: decimal.RequireFromString("12.50"),
		CreatedAt:  time.Now().UTC(),
	}
}

func TestHandleDispatchesByType(t *testing.T) {
	rec := &recorder{}
	c := NewConsumer(slog.New(slog.NewTextHandler(io.Discard, nil)), &fakeReader{}, rec, nil)
	ctx := context.Background()

	c.Handle(ctx, message(t, "e1", domain.EventOrderCreated, created()))
	c.Handle(ctx, message(t, "e2", domain.EventOrderDelivered, domain.OrderDelivered{OrderID: "o1", UserID: "u1"}))
	c.Handle(ctx, message(t, "e3", "OrderRefunded", map[string]string{"orderId": "o1"}))

	require.Len(t, rec.created, 1)
	assert.Equal(t, "o1", rec.created[0].OrderID)
	assert.True(t, rec.created[0].TotalPrice.Equal(decimal.RequireFromString("12.5")))
	require.Len(t, rec.delivered, 1)
	assert.Equal(t, "u1", rec.delivered[0].UserID)
}

func TestHandleSkipsUndecodable(t *testing.T) {
	rec := &recorder{}
	c := NewConsumer(slog.New(slog.NewTextHandler(io.Discard, nil)), &fakeReader{}, rec, nil)

	msg := message(t, "e1", domain.EventOrderCreated, created())
	msg.Value = []byte("{not json")
	c.Handle(context.Background(), msg)

	assert.Empty(t, rec.created)
}

func TestHandleDedupsRedelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rec := &recorder{}
	c := NewConsumer(slog.New(slog.NewTextHandler(io.Discard, nil)), &fakeReader{}, rec, idempotency.NewStore(rdb, time.Hour))
	msg := message(t, "e1", domain.EventOrderCreated, created())

	c.Handle(context.Background(), msg)
	c.Handle(context.Background(), msg)
	assert.Len(t, rec.created, 1)

	c.Handle(context.Background(), message(t, "e2", domain.EventOrderCreated, created()))
	assert.Len(t, rec.created, 2)
}

func TestRunCommitsEvenWhenHandlerFails(t *testing.T) {
	rec := &recorder{err: errors.New("smtp down")}
	reader := &fakeReader{msgs: []kafka.Message{
		message(t, "e1", domain.EventOrderCreated, created()),
		message(t, "e2", domain.EventOrderDelivered, domain.OrderDelivered{OrderID: "o1"}),
	}}
	c := NewConsumer(slog.New(slog.NewTextHandler(io.Discard, nil)), reader, rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader.drained = cancel
	require.NoError(t, c.Run(ctx))

	assert.Len(t, reader.committed, 2)
	assert.True(t, reader.closed)
	assert.Len(t, rec.created, 1)
	assert.Len(t, rec.delivered, 1)
}
