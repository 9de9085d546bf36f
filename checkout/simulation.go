package checkout

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Simulation is the controller: it owns the servers, the arrival stream and
// the completion tracker, and performs the coordinated shutdown.
type Simulation struct {
	cfg       Config
	runID     uuid.UUID
	policy    Policy
	rand      *rand.Rand
	clock     func() time.Time
	servers   []*Server
	customers []*Customer
	tracker   *CompletionTracker

	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector

	started  atomic.Bool
	stopCtx  context.Context
	stopFunc context.CancelFunc

	mu        sync.RWMutex
	arrivals  int
	startedAt time.Time
	endedAt   time.Time
}

// New validates cfg and builds the floor: counters first, then kiosks, each
// with a rate drawn from its range, and every customer with its workload.
// No goroutine is started until Run.
func New(cfg Config, options ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to create run id: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Simulation{
		cfg:     cfg,
		runID:   runID,
		policy:  ExpectedCompletion{},
		rand:    rand.New(rand.NewSource(seed)),
		clock:   time.Now,
		tracker: NewCompletionTracker(cfg.Customers),
	}
	s.stopCtx, s.stopFunc = context.WithCancel(context.Background())

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	s.servers = make([]*Server, 0, cfg.Servers())
	for i := 0; i < cfg.Counters; i++ {
		s.servers = append(s.servers, NewServer(len(s.servers)+1, KindCounter, i+1, cfg.CounterRate.Draw(s.rand)))
	}
	for i := 0; i < cfg.Kiosks; i++ {
		s.servers = append(s.servers, NewServer(len(s.servers)+1, KindKiosk, i+1, cfg.KioskRate.Draw(s.rand)))
	}

	s.customers = make([]*Customer, cfg.Customers)
	for i := range s.customers {
		s.customers[i] = NewCustomer(i+1, cfg.Items.Draw(s.rand))
	}

	return s, nil
}

// RunID identifies this run in logs, spans and reports.
func (s *Simulation) RunID() uuid.UUID { return s.runID }

// Config returns the validated configuration.
func (s *Simulation) Config() Config { return s.cfg }

// Policy returns the routing policy in use.
func (s *Simulation) Policy() Policy { return s.policy }

// Servers returns the servers in dispatch iteration order.
func (s *Simulation) Servers() []*Server {
	servers := make([]*Server, len(s.servers))
	copy(servers, s.servers)

	return servers
}

// Customer returns the customer with the given id. This is how the display
// layer reaches MarkReachedServicePoint.
func (s *Simulation) Customer(id int) (*Customer, bool) {
	if id < 1 || id > len(s.customers) {
		return nil, false
	}

	return s.customers[id-1], true
}

// Done is closed once every customer has completed.
func (s *Simulation) Done() <-chan struct{} {
	return s.tracker.Done()
}

// Stopped is closed when shutdown begins, after completion or on Stop.
func (s *Simulation) Stopped() <-chan struct{} {
	return s.stopCtx.Done()
}

// Stop requests shutdown. It is safe to call more than once and from any goroutine.
func (s *Simulation) Stop() {
	s.stopFunc()
}

func (s *Simulation) now() time.Time {
	return s.clock()
}

// Run starts one worker per server, injects arrivals and blocks until every
// customer has completed or ctx is canceled or Stop is called. It returns nil
// on completion and the cancellation error otherwise. Every worker has
// terminated when Run returns.
func (s *Simulation) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	stopAfter := context.AfterFunc(ctx, s.Stop)
	defer stopAfter()

	runCtx := s.stopCtx

	s.mu.Lock()
	s.startedAt = s.now()
	s.mu.Unlock()

	s.logInfo(runCtx, logMsgSimulationStarted,
		logAttrRunID, s.runID.String(),
		logAttrPolicy, s.policy.Name(),
		logAttrServers, len(s.servers),
		logAttrCustomers, len(s.customers))

	var workers errgroup.Group
	for _, srv := range s.servers {
		srv := srv
		workers.Go(func() error {
			srv.run(runCtx, s)
			return nil
		})
	}

	s.arrive(runCtx)

	select {
	case <-s.tracker.Done():
	case <-runCtx.Done():
	}

	s.shutdown()
	_ = workers.Wait()

	finished, finishedAt := s.tracker.Finished()
	s.mu.Lock()
	if finished {
		s.endedAt = finishedAt
	} else {
		s.endedAt = s.now()
	}
	elapsed := s.endedAt.Sub(s.startedAt)
	s.mu.Unlock()

	if !finished {
		s.logWarn(ctx, logMsgSimulationAborted,
			logAttrRunID, s.runID.String(),
			logAttrCompleted, s.tracker.Completed(),
			logAttrCustomers, len(s.customers))

		if err := ctx.Err(); err != nil {
			return err
		}

		return context.Canceled
	}

	s.logInfo(ctx, logMsgSimulationFinished,
		logAttrRunID, s.runID.String(),
		logAttrCustomers, len(s.customers),
		logAttrDurationMS, toMilliseconds(elapsed))

	return nil
}

// shutdown sets the global stop flag and wakes every worker blocked on an
// empty queue.
func (s *Simulation) shutdown() {
	s.Stop()
	for _, srv := range s.servers {
		srv.queue.Close()
	}
}

// arrive dispatches the initial burst at once and the remaining customers
// at randomized intervals.
func (s *Simulation) arrive(ctx context.Context) {
	burst := s.cfg.initialBurst()

	for i, c := range s.customers {
		if i >= burst {
			if !sleepContext(ctx, s.cfg.ArrivalInterval.Draw(s.rand)) {
				return
			}
		} else if ctx.Err() != nil {
			return
		}

		s.dispatch(ctx, c)
	}
}

// dispatch scores every server for c and puts c in line at the winner.
func (s *Simulation) dispatch(ctx context.Context, c *Customer) *Server {
	now := s.now()
	loads := Loads(s.servers, now)

	i := s.policy.Choose(loads, c.Items())
	if i < 0 {
		s.logWarn(ctx, logMsgNoServer, logAttrCustomer, c.ID())
		return nil
	}

	srv := s.servers[i]
	srv.enqueue(c, now)

	s.mu.Lock()
	s.arrivals++
	s.mu.Unlock()

	expected := ExpectedWait(loads[i], c.Items())
	s.incrementCounter(ctx, metricDispatchTotal, srv)
	s.recordValue(ctx, metricExpectedWait, expected, srv)
	s.recordValue(ctx, metricQueueLength, float64(loads[i].QueueLen+1), srv)
	s.logDebug(ctx, logMsgCustomerDispatched,
		logAttrCustomer, c.ID(),
		logAttrItems, c.Items(),
		logAttrServer, srv.Name(),
		logAttrExpected, expected,
		logAttrQueueLen, loads[i].QueueLen+1)

	return srv
}

// completeCustomer counts c in the global tracker.
func (s *Simulation) completeCustomer(ctx context.Context, srv *Server, c *Customer) {
	if _, finished := s.tracker.Complete(s.now()); finished {
		s.logDebug(ctx, logMsgLastCustomer, logAttrCustomer, c.ID(), logAttrServer, srv.Name())
	}
	s.incrementCounter(ctx, metricCompletedTotal, srv)
}

// Snapshot returns a read-only copy of the whole floor.
func (s *Simulation) Snapshot() FloorSnapshot {
	s.mu.RLock()
	arrivals, startedAt, endedAt := s.arrivals, s.startedAt, s.endedAt
	s.mu.RUnlock()

	finished, finishedAt := s.tracker.Finished()
	if finished && endedAt.IsZero() {
		endedAt = finishedAt
	}

	snap := FloorSnapshot{
		RunID:     s.runID,
		Policy:    s.policy.Name(),
		Total:     s.tracker.Total(),
		Arrivals:  arrivals,
		Completed: s.tracker.Completed(),
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Finished:  finished,
		Servers:   make([]ServerSnapshot, len(s.servers)),
		Customers: make([]CustomerSnapshot, len(s.customers)),
	}
	for i, srv := range s.servers {
		snap.Servers[i] = srv.Snapshot()
	}
	for i, c := range s.customers {
		snap.Customers[i] = c.Snapshot()
	}

	return snap
}
