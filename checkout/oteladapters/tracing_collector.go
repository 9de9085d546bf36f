package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gilgames000/checkout_floor/checkout"
)

// TracingCollector implements checkout.TracingCollector with an OpenTelemetry tracer.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a collector on top of tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan opens a span carrying attrs and returns the context holding it.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, checkout.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &Span{span: span}
}

// FinishSpan adds attrs, maps status onto the span status and ends the span.
// Spans not created by this collector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx checkout.SpanContext, status string, attrs map[string]string) {
	s, ok := spanCtx.(*Span)
	if !ok {
		return
	}

	s.span.SetAttributes(toAttributes(attrs)...)
	s.SetStatus(status)
	s.span.End()
}

var _ checkout.TracingCollector = (*TracingCollector)(nil)

// Span wraps an OpenTelemetry span as a checkout.SpanContext.
type Span struct {
	span trace.Span
}

// SetStatus maps "ok" to codes.Ok and "canceled" to codes.Error. Any other
// value is kept as a status attribute.
func (s *Span) SetStatus(status string) {
	switch status {
	case "ok", "completed":
		s.span.SetStatus(codes.Ok, "")
	case "canceled", "cancelled":
		s.span.SetStatus(codes.Error, "service interrupted by shutdown")
	default:
		s.span.SetAttributes(attribute.String("status", status))
	}
}

func (s *Span) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ checkout.SpanContext = (*Span)(nil)
