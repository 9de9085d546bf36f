package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Kind distinguishes staffed counters from self-service kiosks. They differ
// only in rate and population.
type Kind int

const (
	KindCounter Kind = iota
	KindKiosk
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindKiosk:
		return "kiosk"
	default:
		return "unknown"
	}
}

func serverName(k Kind, number int) string {
	return fmt.Sprintf("%s %d", k, number)
}

// Server is a single-customer-at-a-time service point with its own queue.
type Server struct {
	id     int
	kind   Kind
	number int
	rate   float64 // mean seconds per item
	queue  *Queue[*Customer]

	mu              sync.RWMutex
	current         *Customer
	itemsProcessed  int
	customersServed int
	busy            time.Duration
	terminated      bool
}

// NewServer creates an idle server with an empty queue.
func NewServer(id int, kind Kind, number int, rate float64) *Server {
	return &Server{
		id:     id,
		kind:   kind,
		number: number,
		rate:   rate,
		queue:  NewQueue[*Customer](),
	}
}

func (s *Server) ID() int       { return s.id }
func (s *Server) Kind() Kind    { return s.kind }
func (s *Server) Number() int   { return s.number }
func (s *Server) Rate() float64 { return s.rate }
func (s *Server) Name() string  { return serverName(s.kind, s.number) }

// QueueLen returns the number of customers waiting in line.
func (s *Server) QueueLen() int { return s.queue.Len() }

// ServiceDuration is the wall time needed to serve items items.
func (s *Server) ServiceDuration(items int) time.Duration {
	return secondsToDuration(s.rate * float64(items))
}

// Load captures the state the dispatcher scores. The queue is read under its
// own lock and the occupancy under the server's lock, never both at once.
func (s *Server) Load(now time.Time) ServerLoad {
	load := ServerLoad{ServerID: s.id, Rate: s.rate}
	s.queue.Range(func(_ int, c *Customer) bool {
		load.QueueLen++
		load.QueuedItems += c.Items()
		return true
	})

	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()

	if cur != nil {
		load.Serving = true
		load.CurrentItems = cur.Items()
		if started := cur.serviceStart(); !started.IsZero() {
			load.Elapsed = now.Sub(started).Seconds()
		}
	}

	return load
}

// Snapshot copies the server's observable state.
func (s *Server) Snapshot() ServerSnapshot {
	queueLen := s.queue.Len()

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := ServerSnapshot{
		ID:              s.id,
		Kind:            s.kind,
		Number:          s.number,
		Rate:            s.rate,
		Serving:         s.current != nil,
		QueueLen:        queueLen,
		ItemsProcessed:  s.itemsProcessed,
		CustomersServed: s.customersServed,
		BusyTime:        s.busy,
		Terminated:      s.terminated,
	}
	if s.current != nil {
		cur := s.current.Snapshot()
		snap.Current = &cur
	}

	return snap
}

// enqueue puts a dispatched customer in line and returns its slot.
func (s *Server) enqueue(c *Customer, at time.Time) {
	slot := s.queue.Len()
	c.dispatch(s.id, slot, at)
	s.queue.Enqueue(c)
}

// run is the worker loop. It returns when the queue reports end of work or
// the context is canceled.
func (s *Server) run(ctx context.Context, sim *Simulation) {
	defer s.terminate(ctx, sim)

	for {
		c, ok := s.queue.Dequeue()
		if !ok || ctx.Err() != nil {
			return
		}
		if !s.serve(ctx, sim, c) {
			return
		}
	}
}

// serve takes one customer from assignment to completion. It returns false
// when shutdown interrupted it.
func (s *Server) serve(ctx context.Context, sim *Simulation, c *Customer) bool {
	reached, ok := c.beginService(s.id)
	if !ok {
		sim.logWarn(ctx, logMsgCustomerSkipped, logAttrServer, s.Name(), logAttrCustomer, c.ID(), logAttrStatus, c.Status().String())
		return true
	}

	s.mu.Lock()
	s.current = c
	s.mu.Unlock()

	if sim.cfg.Handshake {
		select {
		case <-reached:
		case <-ctx.Done():
			return false
		}
	}

	start := sim.now()
	c.startService(start)
	waited := start.Sub(c.Snapshot().ArrivedAt)
	sim.recordDuration(ctx, metricWaitDuration, waited, s)
	sim.logDebug(ctx, logMsgServiceStarted, logAttrServer, s.Name(), logAttrCustomer, c.ID(), logAttrItems, c.Items())

	spanCtx, span := sim.startSpan(ctx, spanServe, map[string]string{
		spanAttrServer:   s.Name(),
		spanAttrCustomer: fmt.Sprint(c.ID()),
		spanAttrItems:    fmt.Sprint(c.Items()),
	})

	if !sleepContext(spanCtx, s.ServiceDuration(c.Items())) {
		sim.finishSpan(span, statusCanceled, nil)
		return false
	}

	end := sim.now()
	s.mu.Lock()
	s.itemsProcessed += c.Items()
	s.customersServed++
	s.busy += end.Sub(start)
	c.finishService(end)
	s.current = nil
	s.mu.Unlock()

	sim.recordDuration(spanCtx, metricServiceDuration, end.Sub(start), s)
	sim.finishSpan(span, statusOK, map[string]string{spanAttrServiceMS: fmt.Sprint(end.Sub(start).Milliseconds())})
	sim.logDebug(ctx, logMsgServiceCompleted, logAttrServer, s.Name(), logAttrCustomer, c.ID(), logAttrDurationMS, toMilliseconds(end.Sub(start)))

	// The customer walks away before counting as completed; a shutdown
	// during the walk still counts it so served and completed agree.
	left := sleepContext(ctx, sim.cfg.ExitDelay)
	c.leave(sim.now())
	sim.completeCustomer(ctx, s, c)

	return left
}

func (s *Server) terminate(ctx context.Context, sim *Simulation) {
	s.mu.Lock()
	s.terminated = true
	s.current = nil
	served := s.customersServed
	s.mu.Unlock()

	sim.logDebug(ctx, logMsgWorkerStopped, logAttrServer, s.Name(), logAttrServed, served)
}

// Stats returns the cumulative statistics.
func (s *Server) Stats() (items, customers int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.itemsProcessed, s.customersServed
}
