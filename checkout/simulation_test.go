package checkout_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilgames000/checkout_floor/checkout"
)

func fastConfig() checkout.Config {
	return checkout.Config{
		Counters:              3,
		Kiosks:                2,
		Customers:             40,
		CounterRate:           checkout.RateRange{Min: 0.0005, Max: 0.0015},
		KioskRate:             checkout.RateRange{Min: 0.0008, Max: 0.0008},
		Items:                 checkout.IntRange{Min: 1, Max: 5},
		ArrivalInterval:       checkout.DurationRange{Min: 0, Max: time.Millisecond},
		InitialBurstPerServer: 2,
		Handshake:             false,
		Seed:                  7,
	}
}

func runWithTimeout(t *testing.T, sim *checkout.Simulation, timeout time.Duration) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return sim.Run(ctx)
}

func Test_Simulation_ServesEveryCustomerExactlyOnce(t *testing.T) {
	sim, err := checkout.New(fastConfig())
	require.NoError(t, err)

	require.NoError(t, runWithTimeout(t, sim, 10*time.Second))

	snap := sim.Snapshot()
	assert.True(t, snap.Finished)
	assert.Equal(t, 40, snap.Total)
	assert.Equal(t, 40, snap.Arrivals)
	assert.Equal(t, 40, snap.Completed)
	assert.False(t, snap.StartedAt.IsZero())
	assert.False(t, snap.EndedAt.IsZero())
	assert.False(t, snap.EndedAt.Before(snap.StartedAt))

	dispatched := make(map[int]int)
	items := make(map[int]int)
	for _, c := range snap.Customers {
		assert.Equal(t, checkout.StatusCompleted, c.Status, "customer %d", c.ID)
		require.NotEqual(t, checkout.NoServer, c.Target.ServerID, "customer %d", c.ID)
		assert.False(t, c.ServiceStartedAt.Before(c.ArrivedAt), "customer %d", c.ID)
		assert.False(t, c.CompletedAt.Before(c.ServiceEndedAt), "customer %d", c.ID)
		dispatched[c.Target.ServerID]++
		items[c.Target.ServerID] += c.Items
	}

	served := 0
	for _, s := range snap.Servers {
		assert.Equal(t, dispatched[s.ID], s.CustomersServed, "server %s", s.Name())
		assert.Equal(t, items[s.ID], s.ItemsProcessed, "server %s", s.Name())
		assert.True(t, s.Terminated, "server %s", s.Name())
		assert.False(t, s.Serving, "server %s", s.Name())
		assert.Zero(t, s.QueueLen, "server %s", s.Name())
		served += s.CustomersServed
	}
	assert.Equal(t, snap.Completed, served)
}

func Test_Simulation_BuildsCountersThenKiosks(t *testing.T) {
	cfg := fastConfig()
	sim, err := checkout.New(cfg)
	require.NoError(t, err)

	servers := sim.Servers()
	require.Len(t, servers, cfg.Servers())

	for i, s := range servers {
		assert.Equal(t, i+1, s.ID())
		if i < cfg.Counters {
			assert.Equal(t, checkout.KindCounter, s.Kind())
			assert.Equal(t, i+1, s.Number())
			assert.GreaterOrEqual(t, s.Rate(), cfg.CounterRate.Min)
			assert.Less(t, s.Rate(), cfg.CounterRate.Max)
		} else {
			assert.Equal(t, checkout.KindKiosk, s.Kind())
			assert.Equal(t, i-cfg.Counters+1, s.Number())
			assert.Equal(t, cfg.KioskRate.Min, s.Rate())
		}
	}

	c, ok := sim.Customer(1)
	require.True(t, ok)
	assert.Equal(t, checkout.StatusPending, c.Status())
	assert.Equal(t, checkout.NoServer, c.ServerID())

	_, ok = sim.Customer(cfg.Customers + 1)
	assert.False(t, ok)
}

func Test_Simulation_SameSeedSameWorkload(t *testing.T) {
	a, err := checkout.New(fastConfig())
	require.NoError(t, err)
	b, err := checkout.New(fastConfig())
	require.NoError(t, err)

	for i, s := range a.Servers() {
		assert.Equal(t, s.Rate(), b.Servers()[i].Rate())
	}
	for id := 1; id <= fastConfig().Customers; id++ {
		ca, _ := a.Customer(id)
		cb, _ := b.Customer(id)
		assert.Equal(t, ca.Items(), cb.Items())
	}
	assert.NotEqual(t, a.RunID(), b.RunID())
}

func Test_Simulation_RunTwiceFails(t *testing.T) {
	cfg := fastConfig()
	cfg.Customers = 3
	sim, err := checkout.New(cfg)
	require.NoError(t, err)

	require.NoError(t, runWithTimeout(t, sim, 5*time.Second))
	assert.ErrorIs(t, sim.Run(context.Background()), checkout.ErrAlreadyStarted)
}

func Test_Simulation_CancelDuringHandshakeTerminatesEveryWorker(t *testing.T) {
	cfg := fastConfig()
	cfg.Handshake = true // nobody plays the display layer
	sim, err := checkout.New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- sim.Run(ctx) }()

	require.Eventually(t, func() bool {
		for _, s := range sim.Snapshot().Servers {
			if s.Serving {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	snap := sim.Snapshot()
	assert.False(t, snap.Finished)
	for _, s := range snap.Servers {
		assert.True(t, s.Terminated, "server %s", s.Name())
	}
}

func Test_Simulation_StopReleasesWorkersBlockedOnEmptyQueues(t *testing.T) {
	cfg := fastConfig()
	cfg.Customers = 10
	cfg.InitialBurstPerServer = 0
	cfg.ArrivalInterval = checkout.DurationRange{Min: time.Hour, Max: time.Hour}
	sim, err := checkout.New(cfg)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- sim.Run(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	sim.Stop()
	sim.Stop()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	select {
	case <-sim.Stopped():
	default:
		t.Fatal("Stopped must be closed after Stop")
	}

	snap := sim.Snapshot()
	assert.Zero(t, snap.Arrivals)
	for _, s := range snap.Servers {
		assert.True(t, s.Terminated, "server %s", s.Name())
	}
}

func Test_Simulation_HandshakeGatesServiceStart(t *testing.T) {
	cfg := fastConfig()
	cfg.Customers = 12
	cfg.Handshake = true
	sim, err := checkout.New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Minimal display layer: acknowledge every customer heading to a service point.
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-sim.Stopped():
				return
			case <-ticker.C:
				for _, c := range sim.Snapshot().Customers {
					if c.Status == checkout.StatusInService && c.Target.ServicePoint && !c.ReachedServicePoint {
						if cust, ok := sim.Customer(c.ID); ok {
							cust.MarkReachedServicePoint()
						}
					}
				}
			}
		}
	}()

	require.NoError(t, sim.Run(ctx))

	snap := sim.Snapshot()
	assert.Equal(t, cfg.Customers, snap.Completed)
	for _, c := range snap.Customers {
		assert.True(t, c.ReachedServicePoint, "customer %d", c.ID)
		assert.False(t, c.ServiceStartedAt.IsZero(), "customer %d", c.ID)
	}
}

func Test_Customer_HandshakeIgnoredOutsideService(t *testing.T) {
	c := checkout.NewCustomer(1, 4)
	c.MarkReachedServicePoint()

	assert.False(t, c.ReachedServicePoint())
	assert.Equal(t, checkout.StatusPending, c.Status())
	assert.Equal(t, "pending", c.Status().String())
}

func Test_Simulation_WithPolicy(t *testing.T) {
	cfg := fastConfig()
	cfg.Customers = 10

	sim, err := checkout.New(cfg, checkout.WithPolicy(checkout.ShortestQueue{}))
	require.NoError(t, err)
	assert.Equal(t, "shortest", sim.Policy().Name())
	require.NoError(t, runWithTimeout(t, sim, 5*time.Second))
	assert.Equal(t, "shortest", sim.Snapshot().Policy)

	_, err = checkout.New(cfg, checkout.WithPolicy(nil))
	assert.ErrorIs(t, err, checkout.ErrNilOption)

	_, err = checkout.New(cfg, checkout.WithClock(nil))
	assert.ErrorIs(t, err, checkout.ErrNilOption)
}

func Test_Simulation_ReportsToObservers(t *testing.T) {
	cfg := fastConfig()
	cfg.Customers = 15

	logSpy := newLogHandlerSpy()
	metrics := newMetricsCollectorSpy()
	tracing := newTracingCollectorSpy()

	sim, err := checkout.New(cfg,
		checkout.WithLogger(slog.New(logSpy)),
		checkout.WithMetrics(metrics),
		checkout.WithTracing(tracing),
	)
	require.NoError(t, err)
	require.NoError(t, runWithTimeout(t, sim, 10*time.Second))

	assert.True(t, logSpy.has(slog.LevelInfo, "checkout: simulation started"))
	assert.True(t, logSpy.has(slog.LevelInfo, "checkout: all customers served"))
	assert.Equal(t, cfg.Customers, logSpy.count(slog.LevelDebug, "checkout: customer dispatched"))
	assert.Equal(t, cfg.Customers, logSpy.count(slog.LevelDebug, "checkout: service completed"))
	assert.Equal(t, cfg.Servers(), logSpy.count(slog.LevelDebug, "checkout: worker stopped"))

	assert.Equal(t, cfg.Customers, metrics.counter("checkout_dispatch_total"))
	assert.Equal(t, cfg.Customers, metrics.counter("checkout_customers_completed_total"))
	assert.Equal(t, cfg.Customers, metrics.durations("checkout_service_duration_seconds"))
	assert.Equal(t, cfg.Customers, metrics.durations("checkout_wait_duration_seconds"))
	assert.Equal(t, 2*cfg.Customers, metrics.values())

	assert.Equal(t, cfg.Customers, tracing.finished("checkout.serve", "ok"))
	assert.Equal(t, sim.RunID().String(), tracing.attr("checkout.run_id"))
}

type logHandlerSpy struct {
	mu      sync.Mutex
	records []slog.Record
}

func newLogHandlerSpy() *logHandlerSpy { return &logHandlerSpy{} }

func (s *logHandlerSpy) Enabled(context.Context, slog.Level) bool { return true }

func (s *logHandlerSpy) Handle(_ context.Context, r slog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)

	return nil
}

func (s *logHandlerSpy) WithAttrs([]slog.Attr) slog.Handler { return s }
func (s *logHandlerSpy) WithGroup(string) slog.Handler      { return s }

func (s *logHandlerSpy) count(level slog.Level, msg string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.records {
		if r.Level == level && r.Message == msg {
			n++
		}
	}

	return n
}

func (s *logHandlerSpy) has(level slog.Level, msg string) bool {
	return s.count(level, msg) > 0
}

type metricsCollectorSpy struct {
	mu        sync.Mutex
	counters  map[string]int
	duration  map[string]int
	valueRecs int
}

func newMetricsCollectorSpy() *metricsCollectorSpy {
	return &metricsCollectorSpy{counters: map[string]int{}, duration: map[string]int{}}
}

func (m *metricsCollectorSpy) RecordDuration(metric string, _ time.Duration, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration[metric]++
}

func (m *metricsCollectorSpy) IncrementCounter(metric string, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metric]++
}

func (m *metricsCollectorSpy) RecordValue(_ string, _ float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valueRecs++
}

func (m *metricsCollectorSpy) counter(metric string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[metric]
}

func (m *metricsCollectorSpy) durations(metric string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration[metric]
}

func (m *metricsCollectorSpy) values() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valueRecs
}

type spanSpy struct {
	name  string
	attrs map[string]string
}

func (s *spanSpy) SetStatus(string)               {}
func (s *spanSpy) AddAttribute(key, value string) { s.attrs[key] = value }

type tracingCollectorSpy struct {
	mu       sync.Mutex
	finishes map[string]int
	lastAttr map[string]string
}

func newTracingCollectorSpy() *tracingCollectorSpy {
	return &tracingCollectorSpy{finishes: map[string]int{}, lastAttr: map[string]string{}}
}

func (t *tracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, checkout.SpanContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range attrs {
		t.lastAttr[k] = v
	}

	return ctx, &spanSpy{name: name, attrs: map[string]string{}}
}

func (t *tracingCollectorSpy) FinishSpan(spanCtx checkout.SpanContext, status string, _ map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := spanCtx.(*spanSpy); ok {
		t.finishes[s.name+"/"+status]++
	}
}

func (t *tracingCollectorSpy) finished(name, status string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finishes[name+"/"+status]
}

func (t *tracingCollectorSpy) attr(key string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastAttr[key]
}
