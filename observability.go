package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/gilgames000/checkout_floor/checkout"
	"github.com/gilgames000/checkout_floor/checkout/oteladapters"
)

const instrumentationName = "github.com/gilgames000/checkout_floor"

// telemetry owns the OpenTelemetry providers of one process. Spans are logged
// as they end and metrics are logged once at shutdown.
type telemetry struct {
	logger   *slog.Logger
	reader   *sdkmetric.ManualReader
	meters   *sdkmetric.MeterProvider
	tracers  *sdktrace.TracerProvider
	metrics  *oteladapters.MetricsCollector
	tracing  *oteladapters.TracingCollector
	contextL *oteladapters.SlogBridgeLogger
}

func newTelemetry(logger *slog.Logger) *telemetry {
	reader := sdkmetric.NewManualReader()
	meters := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	tracers := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spanLogExporter{logger: logger}))

	otel.SetMeterProvider(meters)
	otel.SetTracerProvider(tracers)

	return &telemetry{
		logger:   logger,
		reader:   reader,
		meters:   meters,
		tracers:  tracers,
		metrics:  oteladapters.NewMetricsCollector(meters.Meter(instrumentationName)),
		tracing:  oteladapters.NewTracingCollector(tracers.Tracer(instrumentationName)),
		contextL: oteladapters.NewSlogBridgeLoggerWithHandler(logger.Handler()),
	}
}

func (t *telemetry) options() []checkout.Option {
	return []checkout.Option{
		checkout.WithMetrics(t.metrics),
		checkout.WithTracing(t.tracing),
		checkout.WithContextualLogger(t.contextL),
	}
}

// shutdown logs the collected metrics and flushes both providers.
func (t *telemetry) shutdown(ctx context.Context) error {
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err == nil {
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				logMetric(t.logger, m)
			}
		}
	}

	return errors.Join(t.tracers.Shutdown(ctx), t.meters.Shutdown(ctx))
}

func logMetric(logger *slog.Logger, m metricdata.Metrics) {
	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		for _, dp := range data.DataPoints {
			logger.Info("metric", "name", m.Name, "labels", dp.Attributes.Encoded(attribute.DefaultEncoder()), "value", dp.Value)
		}
	case metricdata.Gauge[float64]:
		for _, dp := range data.DataPoints {
			logger.Info("metric", "name", m.Name, "labels", dp.Attributes.Encoded(attribute.DefaultEncoder()), "value", dp.Value)
		}
	case metricdata.Histogram[float64]:
		for _, dp := range data.DataPoints {
			mean := 0.0
			if dp.Count > 0 {
				mean = dp.Sum / float64(dp.Count)
			}
			logger.Info("metric", "name", m.Name, "labels", dp.Attributes.Encoded(attribute.DefaultEncoder()), "count", dp.Count, "mean", mean)
		}
	}
}

// spanLogExporter writes finished spans to the debug log.
type spanLogExporter struct {
	logger *slog.Logger
}

func (e spanLogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		args := []any{
			"name", span.Name(),
			"trace_id", span.SpanContext().TraceID().String(),
			"duration", span.EndTime().Sub(span.StartTime()).Round(time.Millisecond),
			"status", span.Status().Code.String(),
		}
		for _, kv := range span.Attributes() {
			args = append(args, string(kv.Key), kv.Value.Emit())
		}
		e.logger.DebugContext(ctx, "span", args...)
	}

	return nil
}

func (e spanLogExporter) Shutdown(context.Context) error { return nil }
