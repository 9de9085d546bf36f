package checkout

import "time"

// Option configures a Simulation.
type Option func(*Simulation) error

// WithLogger sets the logger. Debug level receives per-customer dispatch and
// service messages, Info level the run start and end.
func WithLogger(logger Logger) Option {
	return func(s *Simulation) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger. It takes precedence over
// WithLogger so messages logged during service carry the span context.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(s *Simulation) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector MetricsCollector) Option {
	return func(s *Simulation) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector. Every customer service becomes a span.
func WithTracing(collector TracingCollector) Option {
	return func(s *Simulation) error {
		s.tracingCollector = collector
		return nil
	}
}

// WithPolicy replaces the default ExpectedCompletion routing policy.
func WithPolicy(policy Policy) Option {
	return func(s *Simulation) error {
		if policy == nil {
			return ErrNilOption
		}
		s.policy = policy

		return nil
	}
}

// WithClock replaces time.Now for timestamps and elapsed-time estimates.
func WithClock(clock func() time.Time) Option {
	return func(s *Simulation) error {
		if clock == nil {
			return ErrNilOption
		}
		s.clock = clock

		return nil
	}
}
