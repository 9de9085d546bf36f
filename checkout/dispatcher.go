package checkout

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ServerLoad is the part of a server's state a routing policy looks at.
// Elapsed is the seconds since the current customer's service started, zero
// while that customer is still walking up.
type ServerLoad struct {
	ServerID     int
	Rate         float64
	QueueLen     int
	QueuedItems  int
	Serving      bool
	CurrentItems int
	Elapsed      float64
}

// RemainingTime is the expected seconds left on the customer in service.
func (l ServerLoad) RemainingTime() float64 {
	if !l.Serving {
		return 0
	}

	return math.Max(0, l.Rate*float64(l.CurrentItems)-l.Elapsed)
}

// ExpectedWait is the expected completion time, in seconds, of a new customer
// carrying items items if it joined this server now: queued backlog, plus the
// remainder of the customer in service, plus its own service.
func ExpectedWait(l ServerLoad, items int) float64 {
	return l.Rate*float64(l.QueuedItems) + l.RemainingTime() + l.Rate*float64(items)
}

// Policy picks the index of the server a new arrival joins, or -1 when loads
// is empty. Implementations must not retain loads.
type Policy interface {
	Name() string
	Choose(loads []ServerLoad, items int) int
}

// ExpectedCompletion joins the server with the smallest ExpectedWait. Ties go
// to the first server in iteration order.
type ExpectedCompletion struct{}

func (ExpectedCompletion) Name() string { return "expected" }

func (ExpectedCompletion) Choose(loads []ServerLoad, items int) int {
	best := -1
	bestWait := math.Inf(1)
	for i, l := range loads {
		if w := ExpectedWait(l, items); w < bestWait {
			best, bestWait = i, w
		}
	}

	return best
}

// ShortestQueue joins the server with the fewest customers in line,
// ignoring rates and workloads.
type ShortestQueue struct{}

func (ShortestQueue) Name() string { return "shortest" }

func (ShortestQueue) Choose(loads []ServerLoad, _ int) int {
	return shortestOf(loads, nil)
}

// SampledShortestQueue samples D distinct servers at random and joins the
// one with the fewest customers in line. D=1 is uniform random routing.
// Rand is not safe for concurrent use; the controller dispatches serially.
type SampledShortestQueue struct {
	D    int
	Rand *rand.Rand
}

func (p SampledShortestQueue) Name() string {
	if p.D == 1 {
		return "random"
	}

	return fmt.Sprintf("sq%d", p.D)
}

func (p SampledShortestQueue) Choose(loads []ServerLoad, _ int) int {
	if len(loads) == 0 {
		return -1
	}

	d := p.D
	if d <= 0 || d > len(loads) {
		d = len(loads)
	}
	sample := p.Rand.Perm(len(loads))[:d]

	return shortestOf(loads, sample)
}

// shortestOf returns the index with the shortest queue among the candidates,
// or among all loads when candidates is nil.
func shortestOf(loads []ServerLoad, candidates []int) int {
	if candidates == nil {
		candidates = make([]int, len(loads))
		for i := range loads {
			candidates[i] = i
		}
	}

	best := -1
	for _, i := range candidates {
		if best == -1 || loads[i].QueueLen < loads[best].QueueLen {
			best = i
		}
	}

	return best
}

// ParsePolicy maps a command-line name to a Policy.
func ParsePolicy(name string, rnd *rand.Rand) (Policy, error) {
	switch name {
	case "", "expected":
		return ExpectedCompletion{}, nil
	case "shortest":
		return ShortestQueue{}, nil
	case "random":
		return SampledShortestQueue{D: 1, Rand: rnd}, nil
	case "sq2":
		return SampledShortestQueue{D: 2, Rand: rnd}, nil
	default:
		return nil, fmt.Errorf("%w: unknown policy %q", ErrInvalidConfig, name)
	}
}

// Loads reads every server's load one server at a time. Two dispatch
// decisions taken concurrently may both pick the same server.
func Loads(servers []*Server, now time.Time) []ServerLoad {
	loads := make([]ServerLoad, len(servers))
	for i, s := range servers {
		loads[i] = s.Load(now)
	}

	return loads
}

// BestServerFor returns the server minimizing the expected completion time
// for c, or nil when there are no servers.
func BestServerFor(c *Customer, servers []*Server, now time.Time) *Server {
	return choose(ExpectedCompletion{}, c, servers, now)
}

func choose(p Policy, c *Customer, servers []*Server, now time.Time) *Server {
	i := p.Choose(Loads(servers, now), c.Items())
	if i < 0 {
		return nil
	}

	return servers[i]
}
