package checkout

import (
	"time"

	"github.com/google/uuid"
)

// CustomerSnapshot is a point-in-time copy of a Customer.
type CustomerSnapshot struct {
	ID                  int
	Items               int
	Status              Status
	Target              Target
	ReachedServicePoint bool
	ArrivedAt           time.Time
	ServiceStartedAt    time.Time
	ServiceEndedAt      time.Time
	CompletedAt         time.Time
}

// WaitingTime is the time spent in line before service started.
func (c CustomerSnapshot) WaitingTime() time.Duration {
	if c.ArrivedAt.IsZero() || c.ServiceStartedAt.IsZero() {
		return 0
	}

	return c.ServiceStartedAt.Sub(c.ArrivedAt)
}

// ServiceTime is the time spent at the service point.
func (c CustomerSnapshot) ServiceTime() time.Duration {
	if c.ServiceStartedAt.IsZero() || c.ServiceEndedAt.IsZero() {
		return 0
	}

	return c.ServiceEndedAt.Sub(c.ServiceStartedAt)
}

// ServerSnapshot is a point-in-time copy of a Server. Fields may be stale by
// one scheduling quantum relative to each other.
type ServerSnapshot struct {
	ID              int
	Kind            Kind
	Number          int
	Rate            float64
	Serving         bool
	Current         *CustomerSnapshot
	QueueLen        int
	ItemsProcessed  int
	CustomersServed int
	BusyTime        time.Duration
	Terminated      bool
}

// Name returns a display label such as "counter 2".
func (s ServerSnapshot) Name() string {
	return serverName(s.Kind, s.Number)
}

// FloorSnapshot is the global view consumed by observers and reports.
type FloorSnapshot struct {
	RunID     uuid.UUID
	Policy    string
	Total     int
	Arrivals  int
	Completed int
	StartedAt time.Time
	EndedAt   time.Time
	Finished  bool
	Servers   []ServerSnapshot
	Customers []CustomerSnapshot
}

// Elapsed is the run time so far, or the total once the run has ended.
func (f FloorSnapshot) Elapsed(now time.Time) time.Duration {
	if f.StartedAt.IsZero() {
		return 0
	}
	if !f.EndedAt.IsZero() {
		return f.EndedAt.Sub(f.StartedAt)
	}

	return now.Sub(f.StartedAt)
}
