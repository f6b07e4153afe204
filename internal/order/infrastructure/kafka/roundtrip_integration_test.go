//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/internal/platform/testenv"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

type pendingStore struct {
	pending []outbox.Event
	sent    []string
	failed  []string
}

func (s *pendingStore) LockBatch(_ context.Context, _ string, batchSize int, _ time.Duration) ([]outbox.Event, error) {
	n := min(batchSize, len(s.pending))
	out := s.pending[:n]
	s.pending = s.pending[n:]
	return out, nil
}

func (s *pendingStore) MarkSent(_ context.Context, ids []string) error {
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *pendingStore) MarkFailed(_ context.Context, id string, _ string) error {
	s.failed = append(s.failed, id)
	return nil
}

type tracedRecorder struct {
	created []domain.OrderCreated
	traceID trace.TraceID
}

func (r *tracedRecorder) OrderCreated(ctx context.Context, ev domain.OrderCreated) error {
	r.created = append(r.created, ev)
	r.traceID = trace.SpanContextFromContext(ctx).TraceID()
	return nil
}

func (r *tracedRecorder) OrderDelivered(context.Context, domain.OrderDelivered) error { return nil }

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafka.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

func TestOrderCreatedRoundTrip(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	tp, err := tracing.Init(ctx, "storefront-test", "", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	brokers := testenv.Kafka(t)
	const topic = "order.events"
	createTopic(t, brokers[0], topic)

	spanCtx, span := otel.Tracer("test").Start(ctx, "PlaceOrder")
	payload, err := json.Marshal(domain.OrderCreated{
		OrderID:    "o-1",
		UserID:     "u-1",
		TotalPrice: decimal.RequireFromString("42.00"),
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	ev := outbox.NewEvent(uuid.NewString(), domain.AggregateType, "o-1", domain.EventOrderCreated, payload, tracing.Traceparent(spanCtx))
	span.End()
	require.NotEmpty(t, ev.Traceparent)

	writer := NewWriter(brokers)
	t.Cleanup(func() { _ = writer.Close() })
	store := &pendingStore{pending: []outbox.Event{ev}}
	relay := outbox.NewRelay(log, store, outbox.NewDispatcher(log, writer, topic), "relay-test")

	sent, err := relay.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{ev.ID}, store.sent)
	assert.Empty(t, store.failed)

	reader := NewReader(brokers, topic, "roundtrip-"+uuid.NewString())
	t.Cleanup(func() { _ = reader.Close() })
	msg, err := reader.FetchMessage(ctx)
	require.NoError(t, err)

	assert.Equal(t, "o-1", string(msg.Key))
	assert.Equal(t, ev.ID, header(msg.Headers, outbox.HeaderEventID))
	assert.Equal(t, domain.EventOrderCreated, header(msg.Headers, outbox.HeaderEventType))
	assert.Equal(t, ev.Traceparent, header(msg.Headers, tracing.TraceparentHeader))

	rec := &tracedRecorder{}
	NewConsumer(log, reader, rec, nil).Handle(ctx, msg)

	require.Len(t, rec.created, 1)
	assert.Equal(t, "o-1", rec.created[0].OrderID)
	assert.True(t, rec.created[0].TotalPrice.Equal(decimal.NewFromInt(42)))
	assert.Equal(t, span.SpanContext().TraceID(), rec.traceID)
}
