package display

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gilgames000/checkout_floor/checkout"
)

const DefaultEvery = time.Second

// Monitor logs floor progress at a fixed interval.
type Monitor struct {
	Every  time.Duration
	Logger checkout.Logger
}

// Run logs until the simulation stops or ctx is canceled, then logs once more.
func (m Monitor) Run(ctx context.Context, sim *checkout.Simulation) {
	if m.Logger == nil {
		return
	}

	every := m.Every
	if every <= 0 {
		every = DefaultEvery
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log(sim.Snapshot())
			return
		case <-sim.Stopped():
			m.log(sim.Snapshot())
			return
		case <-ticker.C:
			m.log(sim.Snapshot())
		}
	}
}

func (m Monitor) log(snap checkout.FloorSnapshot) {
	m.Logger.Info("display: progress",
		"arrivals", snap.Arrivals,
		"completed", snap.Completed,
		"total", snap.Total,
		"queues", queueLine(snap.Servers),
	)
}

// queueLine renders server queues as "counter 1=2 kiosk 1=0*", a star
// marking a server that is serving someone.
func queueLine(servers []checkout.ServerSnapshot) string {
	parts := make([]string, 0, len(servers))
	for _, s := range servers {
		mark := ""
		if s.Serving {
			mark = "*"
		}
		parts = append(parts, fmt.Sprintf("%s=%d%s", s.Name(), s.QueueLen, mark))
	}

	return strings.Join(parts, " ")
}
