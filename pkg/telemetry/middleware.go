package telemetry

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	TraceIDHeader = "X-Trace-ID"
	SpanIDHeader  = "X-Span-ID"
)

// TracingConfig configures TracingMiddleware
type TracingConfig struct {
	ServiceName string
	// SkipPaths are served without a span
	SkipPaths []string
	// ParamAttributes copies route params onto the span, param name -> attribute key
	ParamAttributes map[string]string
	// HeaderAttributes copies request headers onto the span, header -> attribute key
	HeaderAttributes map[string]string
}

// DefaultTracingConfig traces the parking API and leaves health checks and scrapes out
func DefaultTracingConfig(serviceName string) TracingConfig {
	return TracingConfig{
		ServiceName: serviceName,
		SkipPaths:   []string{"/health", "/ready", "/metrics"},
		ParamAttributes: map[string]string{
			"registration": "parking.registration_number",
		},
		HeaderAttributes: map[string]string{
			"X-Idempotency-Key": "parking.idempotency_key",
		},
	}
}

// TracingMiddleware opens a server span per request, continuing any trace
// propagated by the caller, and echoes the trace id in X-Trace-ID.
func TracingMiddleware(cfg TracingConfig) gin.HandlerFunc {
	tracer := otel.Tracer(cfg.ServiceName + "/http")
	propagator := otel.GetTextMapPropagator()

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		attrs := []attribute.KeyValue{
			semconv.HTTPMethod(c.Request.Method),
			semconv.HTTPRoute(route),
			semconv.NetHostName(c.Request.Host),
			semconv.UserAgentOriginal(c.Request.UserAgent()),
			attribute.String("http.client_ip", c.ClientIP()),
		}
		for param, key := range cfg.ParamAttributes {
			if v := c.Param(param); v != "" {
				attrs = append(attrs, attribute.String(key, v))
			}
		}
		for header, key := range cfg.HeaderAttributes {
			if v := c.GetHeader(header); v != "" {
				attrs = append(attrs, attribute.String(key, v))
			}
		}

		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		sc := span.SpanContext()
		if sc.HasTraceID() {
			c.Header(TraceIDHeader, sc.TraceID().String())
			c.Set("trace_id", sc.TraceID().String())
		}
		if sc.HasSpanID() {
			c.Header(SpanIDHeader, sc.SpanID().String())
			c.Set("span_id", sc.SpanID().String())
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))

		// a 409 is a parking outcome such as a full lot
		switch {
		case status >= http.StatusInternalServerError:
			span.SetStatus(codes.Error, http.StatusText(status))
		case status == http.StatusConflict:
			span.SetAttributes(attribute.Bool("parking.rejected", true))
		}
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}
	}
}
