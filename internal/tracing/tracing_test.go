package tracing

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := oteltrace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := oteltrace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := oteltrace.NewSpanContext(oteltrace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: oteltrace.FlagsSampled,
	})
	return oteltrace.ContextWithSpanContext(context.Background(), sc)
}

func TestTraceparentRoundTrip(t *testing.T) {
	header := W3CTraceparent(spanContext(t))
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", header)

	traceID, spanID, flags, ok := ParseTraceparent(header)
	require.True(t, ok)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", traceID)
	assert.Equal(t, "00f067aa0ba902b7", spanID)
	assert.Equal(t, byte(0x01), flags)
}

func TestParseTraceparentRejectsMalformed(t *testing.T) {
	for _, header := range []string{
		"",
		"00-abc",
		"01-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
		"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-zz",
	} {
		_, _, _, ok := ParseTraceparent(header)
		assert.False(t, ok, "header %q should not parse", header)
	}
}

func TestInjectTraceparent(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, "http://localhost/v1/search", nil)
	require.NoError(t, err)

	InjectTraceparent(context.Background(), req)
	assert.Empty(t, req.Header.Get("traceparent"))

	InjectTraceparent(spanContext(t), req)
	assert.NotEmpty(t, req.Header.Get("traceparent"))
}

func TestStartSpanBeforeInitialize(t *testing.T) {
	tracer = nil
	_, span := StartSpan(context.Background(), "test.op")
	span.End()

	require.NoError(t, Initialize(Config{Enabled: false}, zap.NewNop()))
	_, span = StartHTTPSpan(context.Background(), "POST", "http://localhost/v1/search")
	span.End()
}
