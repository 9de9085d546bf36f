package checkout

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// RateRange bounds a server's mean seconds per item.
type RateRange struct {
	Min float64
	Max float64
}

// Draw returns a rate uniformly distributed in [Min, Max).
func (r RateRange) Draw(rnd *rand.Rand) float64 {
	if r.Max <= r.Min {
		return r.Min
	}

	return r.Min + rnd.Float64()*(r.Max-r.Min)
}

// IntRange is an inclusive integer range.
type IntRange struct {
	Min int
	Max int
}

// Draw returns an integer uniformly distributed in [Min, Max].
func (r IntRange) Draw(rnd *rand.Rand) int {
	if r.Max <= r.Min {
		return r.Min
	}

	return r.Min + rnd.Intn(r.Max-r.Min+1)
}

// DurationRange is a half-open duration range.
type DurationRange struct {
	Min time.Duration
	Max time.Duration
}

// Draw returns a duration uniformly distributed in [Min, Max).
func (r DurationRange) Draw(rnd *rand.Rand) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}

	return r.Min + time.Duration(rnd.Int63n(int64(r.Max-r.Min)))
}

// Config is the simulation setup, supplied once before the run.
type Config struct {
	Counters  int
	Kiosks    int
	Customers int

	CounterRate RateRange
	KioskRate   RateRange
	Items       IntRange

	// ArrivalInterval is the gap between arrivals once the initial burst of
	// InitialBurstPerServer customers per server has been dispatched.
	ArrivalInterval       DurationRange
	InitialBurstPerServer int

	// ExitDelay is the time a served customer takes to leave before counting
	// as completed.
	ExitDelay time.Duration

	// Handshake makes workers wait for MarkReachedServicePoint before
	// starting service. Something must then play the display layer.
	Handshake bool

	// Seed seeds rates, workloads and arrival gaps. Zero picks a time-based seed.
	Seed int64
}

// DefaultConfig returns the store layout and timings of a small supermarket.
func DefaultConfig() Config {
	return Config{
		Counters:              3,
		Kiosks:                2,
		Customers:             20,
		CounterRate:           RateRange{Min: 0.5, Max: 1.5},
		KioskRate:             RateRange{Min: 0.8, Max: 0.8},
		Items:                 IntRange{Min: 1, Max: 15},
		ArrivalInterval:       DurationRange{Min: time.Second, Max: 3 * time.Second},
		InitialBurstPerServer: 3,
		ExitDelay:             200 * time.Millisecond,
		Handshake:             true,
	}
}

// Servers returns the total number of service points.
func (c Config) Servers() int {
	return c.Counters + c.Kiosks
}

// Validate rejects configurations the simulation cannot run.
func (c Config) Validate() error {
	var errs []error

	if c.Counters < 1 {
		errs = append(errs, fmt.Errorf("counters must be >= 1, got %d", c.Counters))
	}
	if c.Kiosks < 0 {
		errs = append(errs, fmt.Errorf("kiosks must be >= 0, got %d", c.Kiosks))
	}
	if c.Customers < 1 {
		errs = append(errs, fmt.Errorf("customers must be >= 1, got %d", c.Customers))
	}
	if err := validateRate("counter rate", c.CounterRate); err != nil {
		errs = append(errs, err)
	}
	if c.Kiosks > 0 {
		if err := validateRate("kiosk rate", c.KioskRate); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Items.Min < 1 || c.Items.Max < c.Items.Min {
		errs = append(errs, fmt.Errorf("items range [%d, %d] invalid", c.Items.Min, c.Items.Max))
	}
	if c.ArrivalInterval.Min < 0 || c.ArrivalInterval.Max < c.ArrivalInterval.Min {
		errs = append(errs, fmt.Errorf("arrival interval [%v, %v] invalid", c.ArrivalInterval.Min, c.ArrivalInterval.Max))
	}
	if c.InitialBurstPerServer < 0 {
		errs = append(errs, fmt.Errorf("initial burst must be >= 0, got %d", c.InitialBurstPerServer))
	}
	if c.ExitDelay < 0 {
		errs = append(errs, fmt.Errorf("exit delay must be >= 0, got %v", c.ExitDelay))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

func validateRate(name string, r RateRange) error {
	if r.Min <= 0 || r.Max < r.Min {
		return fmt.Errorf("%s range [%g, %g] invalid", name, r.Min, r.Max)
	}

	return nil
}

// initialBurst is the number of customers dispatched without waiting.
func (c Config) initialBurst() int {
	return min(c.Customers, c.InitialBurstPerServer*c.Servers())
}
