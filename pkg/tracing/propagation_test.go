package tracing

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceparentSurvivesKafka(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "place-order")
	defer span.End()

	tparent := Traceparent(ctx)
	require.NotEmpty(t, tparent)

	headers := KafkaHeaders(tparent, []kafka.Header{{Key: "event_type", Value: []byte("OrderCreated")}})
	require.Len(t, headers, 2)

	got := trace.SpanContextFromContext(ExtractKafkaHeaders(context.Background(), headers))
	assert.Equal(t, span.SpanContext().TraceID(), got.TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), got.SpanID())
}

func TestKafkaHeadersWithoutTrace(t *testing.T) {
	in := []kafka.Header{{Key: "a", Value: []byte("b")}}
	assert.Equal(t, in, KafkaHeaders("", in))
	assert.Empty(t, Traceparent(context.Background()))
}
