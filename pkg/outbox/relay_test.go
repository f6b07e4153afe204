package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	pending []Event
	sent    []string
	failed  map[string]string
}

func (s *fakeStore) LockBatch(_ context.Context, relayID string, batchSize int, _ time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(batchSize, len(s.pending))
	out := s.pending[:n]
	s.pending = s.pending[n:]
	for i := range out {
		out[i].RelayID = relayID
	}
	return out, nil
}

func (s *fakeStore) MarkSent(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = map[string]string{}
	}
	s.failed[id] = errMsg
	return nil
}

type fakeProducer struct {
	msgs   []kafka.Message
	failOn string
}

func (p *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		if string(m.Key) == p.failOn {
			return errors.New("broker unavailable")
		}
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestRelayTick(t *testing.T) {
	store := &fakeStore{pending: []Event{
		NewEvent("e1", "order", "o1", "OrderCreated", []byte(`{"orderId":"o1"}`), ""),
		NewEvent("e2", "order", "o2", "OrderCreated", []byte(`{"orderId":"o2"}`), ""),
		NewEvent("e3", "order", "o3", "OrderCreated", []byte(`{"orderId":"o3"}`), ""),
	}}
	producer := &fakeProducer{failOn: "o2"}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	relay := NewRelay(log, store, NewDispatcher(log, producer, "order.events"), "r1", WithBatchSize(10), WithLease(time.Minute))

	n, err := relay.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"e1", "e3"}, store.sent)
	assert.Contains(t, store.failed, "e2")

	require.Len(t, producer.msgs, 2)
	m := producer.msgs[0]
	assert.Equal(t, "order.events", m.Topic)
	assert.Equal(t, "o1", string(m.Key))
	assert.Equal(t, "e1", header(m, HeaderEventID))
	assert.Equal(t, "OrderCreated", header(m, HeaderEventType))
}

func TestRelayTickEmpty(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	relay := NewRelay(log, &fakeStore{}, NewDispatcher(log, &fakeProducer{}, "t"), "r1")

	n, err := relay.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelayRunStopsOnCancel(t *testing.T) {
	store := &fakeStore{pending: []Event{NewEvent("e1", "order", "o1", "OrderCreated", []byte(`{}`), "")}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	relay := NewRelay(log, store, NewDispatcher(log, &fakeProducer{}, "t"), "r1", WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.sent) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
