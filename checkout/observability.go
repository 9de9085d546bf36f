package checkout

import (
	"context"
	"math"
	"strconv"
	"time"
)

// Logger receives operational messages. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger is a Logger variant that can correlate messages with the
// active trace span. *slog.Logger satisfies it.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector receives dispatch and service measurements.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// ContextualMetricsCollector is used instead of MetricsCollector when the
// collector implements it.
type ContextualMetricsCollector interface {
	MetricsCollector
	RecordDurationContext(ctx context.Context, metric string, duration time.Duration, labels map[string]string)
	IncrementCounterContext(ctx context.Context, metric string, labels map[string]string)
	RecordValueContext(ctx context.Context, metric string, value float64, labels map[string]string)
}

// SpanContext is an active tracing span.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector opens and closes spans around customer service.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

const (
	logMsgSimulationStarted  = "checkout: simulation started"
	logMsgSimulationFinished = "checkout: all customers served"
	logMsgSimulationAborted  = "checkout: simulation aborted"
	logMsgCustomerDispatched = "checkout: customer dispatched"
	logMsgCustomerSkipped    = "checkout: dequeued customer not in queued state"
	logMsgNoServer           = "checkout: no server available for customer"
	logMsgServiceStarted     = "checkout: service started"
	logMsgServiceCompleted   = "checkout: service completed"
	logMsgWorkerStopped      = "checkout: worker stopped"
	logMsgLastCustomer       = "checkout: last customer completed"

	logAttrRunID      = "run_id"
	logAttrPolicy     = "policy"
	logAttrServers    = "servers"
	logAttrCustomers  = "customers"
	logAttrServer     = "server"
	logAttrCustomer   = "customer"
	logAttrItems      = "items"
	logAttrStatus     = "status"
	logAttrExpected   = "expected_wait_s"
	logAttrQueueLen   = "queue_len"
	logAttrDurationMS = "duration_ms"
	logAttrCompleted  = "completed"
	logAttrServed     = "served"
	logAttrError      = "error"

	metricDispatchTotal   = "checkout_dispatch_total"
	metricExpectedWait    = "checkout_expected_wait_seconds"
	metricQueueLength     = "checkout_queue_length"
	metricWaitDuration    = "checkout_wait_duration_seconds"
	metricServiceDuration = "checkout_service_duration_seconds"
	metricCompletedTotal  = "checkout_customers_completed_total"
	metricLabelServer     = "server"
	metricLabelKind       = "kind"

	spanServe         = "checkout.serve"
	spanAttrRunID     = "checkout.run_id"
	spanAttrServer    = "checkout.server"
	spanAttrCustomer  = "checkout.customer"
	spanAttrItems     = "checkout.items"
	spanAttrServiceMS = "checkout.service_ms"

	statusOK       = "ok"
	statusCanceled = "canceled"
)

func (s *Simulation) logDebug(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, msg, args...)
		return
	}
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Simulation) logInfo(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, msg, args...)
		return
	}
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Simulation) logWarn(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, msg, args...)
		return
	}
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func serverLabels(srv *Server) map[string]string {
	return map[string]string{
		metricLabelServer: strconv.Itoa(srv.ID()),
		metricLabelKind:   srv.Kind().String(),
	}
}

func (s *Simulation) recordDuration(ctx context.Context, metric string, d time.Duration, srv *Server) {
	if s.metricsCollector == nil {
		return
	}
	if cc, ok := s.metricsCollector.(ContextualMetricsCollector); ok {
		cc.RecordDurationContext(ctx, metric, d, serverLabels(srv))
		return
	}
	s.metricsCollector.RecordDuration(metric, d, serverLabels(srv))
}

func (s *Simulation) incrementCounter(ctx context.Context, metric string, srv *Server) {
	if s.metricsCollector == nil {
		return
	}
	if cc, ok := s.metricsCollector.(ContextualMetricsCollector); ok {
		cc.IncrementCounterContext(ctx, metric, serverLabels(srv))
		return
	}
	s.metricsCollector.IncrementCounter(metric, serverLabels(srv))
}

func (s *Simulation) recordValue(ctx context.Context, metric string, v float64, srv *Server) {
	if s.metricsCollector == nil {
		return
	}
	if cc, ok := s.metricsCollector.(ContextualMetricsCollector); ok {
		cc.RecordValueContext(ctx, metric, v, serverLabels(srv))
		return
	}
	s.metricsCollector.RecordValue(metric, v, serverLabels(srv))
}

func (s *Simulation) startSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext) {
	if s.tracingCollector == nil {
		return ctx, nil
	}
	attrs[spanAttrRunID] = s.runID.String()

	return s.tracingCollector.StartSpan(ctx, name, attrs)
}

func (s *Simulation) finishSpan(span SpanContext, status string, attrs map[string]string) {
	if s.tracingCollector == nil || span == nil {
		return
	}
	s.tracingCollector.FinishSpan(span, status, attrs)
}

// toMilliseconds converts d to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
