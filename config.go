package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gilgames000/checkout_floor/checkout"
)

var errUnknownFormat = errors.New("unknown output format")

var comparedPolicies = []string{"expected", "shortest", "random", "sq2"}

type options struct {
	cfg      checkout.Config
	policy   string
	compare  bool
	format   string
	walk     time.Duration
	tick     time.Duration
	monitor  time.Duration
	otel     bool
	logLevel slog.Level
}

func parseFlags(name string, args []string, output io.Writer) (options, error) {
	def := checkout.DefaultConfig()
	opts := options{cfg: def}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	fs.IntVar(&opts.cfg.Counters, "counters", def.Counters, "number of staffed counters")
	fs.IntVar(&opts.cfg.Kiosks, "kiosks", def.Kiosks, "number of self-service kiosks")
	fs.IntVar(&opts.cfg.Customers, "customers", def.Customers, "customers to serve before the run ends")
	fs.Float64Var(&opts.cfg.CounterRate.Min, "counter-rate-min", def.CounterRate.Min, "lowest counter rate in seconds per item")
	fs.Float64Var(&opts.cfg.CounterRate.Max, "counter-rate-max", def.CounterRate.Max, "highest counter rate in seconds per item")
	fs.Float64Var(&opts.cfg.KioskRate.Min, "kiosk-rate", def.KioskRate.Min, "kiosk rate in seconds per item")
	fs.IntVar(&opts.cfg.Items.Min, "items-min", def.Items.Min, "fewest items per customer")
	fs.IntVar(&opts.cfg.Items.Max, "items-max", def.Items.Max, "most items per customer")
	fs.DurationVar(&opts.cfg.ArrivalInterval.Min, "arrival-min", def.ArrivalInterval.Min, "shortest gap between arrivals")
	fs.DurationVar(&opts.cfg.ArrivalInterval.Max, "arrival-max", def.ArrivalInterval.Max, "longest gap between arrivals")
	fs.IntVar(&opts.cfg.InitialBurstPerServer, "burst", def.InitialBurstPerServer, "customers per server dispatched at start")
	fs.DurationVar(&opts.cfg.ExitDelay, "exit-delay", def.ExitDelay, "time a served customer takes to leave")
	fs.BoolVar(&opts.cfg.Handshake, "handshake", def.Handshake, "wait for customers to walk up before serving")
	fs.Int64Var(&opts.cfg.Seed, "seed", def.Seed, "random seed, 0 for time based")

	fs.StringVar(&opts.policy, "policy", "expected", "routing policy: expected, shortest, random or sq2")
	fs.BoolVar(&opts.compare, "compare", false, "run the same workload under every policy and print a table")
	fs.StringVar(&opts.format, "format", "text", "report format: text or json")
	fs.DurationVar(&opts.walk, "walk", 400*time.Millisecond, "time a customer takes to reach the service point")
	fs.DurationVar(&opts.tick, "tick", 50*time.Millisecond, "display polling interval")
	fs.DurationVar(&opts.monitor, "monitor", 0, "progress log interval, 0 disables")
	fs.BoolVar(&opts.otel, "observability-enabled", false, "record metrics and spans through OpenTelemetry")
	fs.TextVar(&opts.logLevel, "log-level", slog.LevelInfo, "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.cfg.KioskRate.Max = opts.cfg.KioskRate.Min

	if opts.format != "text" && opts.format != "json" {
		return options{}, fmt.Errorf("%w: %q", errUnknownFormat, opts.format)
	}
	if _, err := checkout.ParsePolicy(opts.policy, nil); err != nil {
		return options{}, err
	}
	if err := opts.cfg.Validate(); err != nil {
		return options{}, err
	}

	return opts, nil
}
