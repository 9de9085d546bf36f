package checkout

import (
	"sync"
	"time"
)

// Status is the lifecycle stage of a customer. Transitions only move forward.
type Status int

const (
	StatusPending Status = iota // not yet dispatched
	StatusQueued
	StatusInService
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusQueued:
		return "queued"
	case StatusInService:
		return "in_service"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// NoServer is the server id of a customer that has not been dispatched.
const NoServer = 0

// Target tells the display layer where a customer is heading.
// QueueSlot is the position in the server's line at dispatch time and is
// meaningless once ServicePoint is set.
type Target struct {
	ServerID     int
	QueueSlot    int
	ServicePoint bool
}

// Customer is the shared record for one arrival. It is created by the
// simulation, mutated by the controller on dispatch and afterwards only by
// the server that owns it.
type Customer struct {
	id    int
	items int

	mu               sync.Mutex
	status           Status
	target           Target
	arrivedAt        time.Time
	serviceStartedAt time.Time
	serviceEndedAt   time.Time
	completedAt      time.Time
	reached          bool
	reachedCh        chan struct{}
}

// NewCustomer returns a pending customer carrying items items.
func NewCustomer(id, items int) *Customer {
	return &Customer{
		id:        id,
		items:     items,
		reachedCh: make(chan struct{}),
	}
}

// ID returns the sequential customer id.
func (c *Customer) ID() int { return c.id }

// Items returns the workload drawn at creation.
func (c *Customer) Items() int { return c.items }

// Status returns the current lifecycle stage.
func (c *Customer) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

// ServerID returns the owning server or NoServer.
func (c *Customer) ServerID() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.target.ServerID
}

// MarkReachedServicePoint is the display layer's handshake: the customer has
// visually arrived at its server. Calls before the customer is in service,
// and repeated calls, are ignored.
func (c *Customer) MarkReachedServicePoint() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusInService || c.reached {
		return
	}
	c.reached = true
	close(c.reachedCh)
}

// ReachedServicePoint reports the handshake flag.
func (c *Customer) ReachedServicePoint() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.reached
}

// dispatch records the queue assignment made by the controller.
func (c *Customer) dispatch(serverID, slot int, at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusPending {
		return false
	}
	c.status = StatusQueued
	c.target = Target{ServerID: serverID, QueueSlot: slot}
	c.arrivedAt = at

	return true
}

// beginService moves the customer into the server's current slot, clears the
// positioning flag and returns the channel closed by the handshake.
func (c *Customer) beginService(serverID int) (<-chan struct{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusQueued {
		return nil, false
	}
	c.status = StatusInService
	c.target = Target{ServerID: serverID, ServicePoint: true}
	c.reached = false
	c.reachedCh = make(chan struct{})

	return c.reachedCh, true
}

func (c *Customer) startService(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.serviceStartedAt = at
}

func (c *Customer) serviceStart() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.serviceStartedAt
}

func (c *Customer) finishService(at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusInService {
		return false
	}
	c.status = StatusCompleted
	c.serviceEndedAt = at

	return true
}

func (c *Customer) leave(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.completedAt = at
}

// Snapshot copies the customer's observable state.
func (c *Customer) Snapshot() CustomerSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CustomerSnapshot{
		ID:                  c.id,
		Items:               c.items,
		Status:              c.status,
		Target:              c.target,
		ReachedServicePoint: c.reached,
		ArrivedAt:           c.arrivedAt,
		ServiceStartedAt:    c.serviceStartedAt,
		ServiceEndedAt:      c.serviceEndedAt,
		CompletedAt:         c.completedAt,
	}
}
