// Package tracing wraps OTel setup and the trace-context plumbing used by the
// outbound search calls.
package tracing

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultServiceName = "skate-studyd"

// Config holds tracing configuration.
type Config struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

var tracer oteltrace.Tracer

// active returns the installed tracer, falling back to a default-named one so
// the Start helpers work before Initialize has run.
func active() oteltrace.Tracer {
	if tracer == nil {
		tracer = otel.Tracer(defaultServiceName)
	}
	return tracer
}

// Initialize installs the OTLP trace provider. A tracer handle is installed
// even when the provider is disabled, so the Start helpers never panic.
func Initialize(cfg Config, logger *zap.Logger) error {
	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}
	tracer = otel.Tracer(name)

	if !cfg.Enabled {
		logger.Info("Tracing disabled")
		return nil
	}

	endpoint := cfg.OTLPEndpoint
	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	tp, err := newProvider(name, endpoint)
	if err != nil {
		return err
	}
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer(name)

	logger.Info("Tracing initialized", zap.String("endpoint", endpoint))
	return nil
}

func newProvider(serviceName, endpoint string) (*trace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	), nil
}

// StartSpan creates a new span with the given name.
func StartSpan(ctx context.Context, spanName string) (context.Context, oteltrace.Span) {
	return active().Start(ctx, spanName)
}

// StartHTTPSpan creates a span for an outbound HTTP operation.
func StartHTTPSpan(ctx context.Context, method, url string) (context.Context, oteltrace.Span) {
	ctx, span := active().Start(ctx, "HTTP "+method)
	span.SetAttributes(
		semconv.HTTPRequestMethodKey.String(method),
		semconv.URLFull(url),
	)
	return ctx, span
}

// W3CTraceparent renders the current span context as a version-00 traceparent
// header value, or "" when no span is recording.
func W3CTraceparent(ctx context.Context) string {
	sc := oteltrace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return fmt.Sprintf("00-%s-%s-%02x", sc.TraceID(), sc.SpanID(), byte(sc.TraceFlags()))
}

// InjectTraceparent adds the W3C traceparent header to an outbound request.
func InjectTraceparent(ctx context.Context, req *http.Request) {
	if traceparent := W3CTraceparent(ctx); traceparent != "" {
		req.Header.Set("traceparent", traceparent)
	}
}

// ParseTraceparent splits a version-00 traceparent header into its parts.
func ParseTraceparent(header string) (traceID, spanID string, flags byte, ok bool) {
	parts := strings.Split(header, "-")
	if len(parts) != 4 || parts[0] != "00" {
		return "", "", 0, false
	}
	raw, err := hex.DecodeString(parts[3])
	if err != nil || len(raw) != 1 {
		return "", "", 0, false
	}
	return parts[1], parts[2], raw[0], true
}
