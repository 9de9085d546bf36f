// Package display drives a checkout simulation the way a floor animation
// would, without drawing anything: it walks assigned customers to their
// service point and reports progress.
package display

import (
	"context"
	"time"

	"github.com/gilgames000/checkout_floor/checkout"
)

const (
	DefaultWalk = 400 * time.Millisecond
	DefaultTick = 50 * time.Millisecond
)

// Walker confirms arrival at the service point for every customer a worker is
// waiting on, once the customer has been walking for Walk.
type Walker struct {
	Walk time.Duration
	Tick time.Duration
}

// Run polls snapshots until the simulation stops or ctx is canceled.
func (w Walker) Run(ctx context.Context, sim *checkout.Simulation) {
	tick := w.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	walking := make(map[int]time.Time)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sim.Stopped():
			return
		case <-ticker.C:
			w.step(sim, walking, time.Now())
		}
	}
}

func (w Walker) step(sim *checkout.Simulation, walking map[int]time.Time, now time.Time) {
	for _, c := range sim.Snapshot().Customers {
		if c.Status != checkout.StatusInService || !c.Target.ServicePoint || c.ReachedServicePoint {
			delete(walking, c.ID)
			continue
		}

		since, ok := walking[c.ID]
		if !ok {
			walking[c.ID] = now
			since = now
		}
		if now.Sub(since) < w.Walk {
			continue
		}

		if customer, ok := sim.Customer(c.ID); ok {
			customer.MarkReachedServicePoint()
		}
		delete(walking, c.ID)
	}
}
