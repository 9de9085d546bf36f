package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gilgames000/checkout_floor/checkout"
	"github.com/gilgames000/checkout_floor/display"
	"github.com/gilgames000/checkout_floor/report"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("checkout: %v", err)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags("checkout", args, stderr)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: opts.logLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var simOptions []checkout.Option
	if opts.otel {
		tel := newTelemetry(logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tel.shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown failed", "error", err)
			}
		}()
		simOptions = tel.options()
	} else {
		simOptions = []checkout.Option{checkout.WithLogger(logger)}
	}

	if opts.cfg.Seed == 0 {
		opts.cfg.Seed = time.Now().UnixNano()
	}

	if opts.compare {
		return runComparison(ctx, opts, logger, simOptions, stdout)
	}

	r, err := runOnce(ctx, opts, opts.policy, logger, simOptions)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if opts.format == "json" {
		return report.WriteJSON(stdout, r)
	}

	return report.WriteText(stdout, r)
}

// runOnce plays one full run under the named policy and returns its report.
// An interrupted run still yields a report of what was served.
func runOnce(ctx context.Context, opts options, policy string, logger *slog.Logger, simOptions []checkout.Option) (report.Report, error) {
	p, err := checkout.ParsePolicy(policy, rand.New(rand.NewSource(opts.cfg.Seed)))
	if err != nil {
		return report.Report{}, err
	}

	sim, err := checkout.New(opts.cfg, append(slices.Clip(simOptions), checkout.WithPolicy(p))...)
	if err != nil {
		return report.Report{}, err
	}

	var observers errgroup.Group
	if opts.cfg.Handshake {
		walker := display.Walker{Walk: opts.walk, Tick: opts.tick}
		observers.Go(func() error {
			walker.Run(ctx, sim)
			return nil
		})
	}
	if opts.monitor > 0 {
		monitor := display.Monitor{Every: opts.monitor, Logger: logger}
		observers.Go(func() error {
			monitor.Run(ctx, sim)
			return nil
		})
	}

	runErr := sim.Run(ctx)
	_ = observers.Wait()

	return report.Build(sim.Snapshot()), runErr
}

// runComparison serves the same seeded workload once per policy.
func runComparison(ctx context.Context, opts options, logger *slog.Logger, simOptions []checkout.Option, stdout io.Writer) error {
	reports := make([]report.Report, 0, len(comparedPolicies))
	for _, policy := range comparedPolicies {
		r, err := runOnce(ctx, opts, policy, logger, simOptions)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			return err
		}
		reports = append(reports, r)
	}

	if opts.format == "json" {
		for _, r := range reports {
			if err := report.WriteJSON(stdout, r); err != nil {
				return err
			}
		}
		return nil
	}

	return report.WriteComparison(stdout, reports, workloadFooter(opts.cfg))
}

func workloadFooter(cfg checkout.Config) string {
	parts := []string{
		fmt.Sprintf("counters=%d", cfg.Counters),
		fmt.Sprintf("kiosks=%d", cfg.Kiosks),
		fmt.Sprintf("customers=%d", cfg.Customers),
		fmt.Sprintf("items=%d..%d", cfg.Items.Min, cfg.Items.Max),
		fmt.Sprintf("seed=%d", cfg.Seed),
	}

	return strings.Join(parts, ", ")
}
