// Package report turns a finished checkout floor snapshot into end-of-run
// statistics.
package report

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gilgames000/checkout_floor/checkout"
)

// Server holds the per-server figures of a run.
type Server struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	Kind             string  `json:"kind"`
	Rate             float64 `json:"rate_s_per_item"`
	CustomersServed  int     `json:"customers_served"`
	ItemsProcessed   int     `json:"items_processed"`
	ItemsPerCustomer float64 `json:"items_per_customer"`
	BusySeconds      float64 `json:"busy_s"`
	Utilization      float64 `json:"utilization"`
	QueuedAtEnd      int     `json:"queued_at_end"`
	Terminated       bool    `json:"terminated"`
}

// Report is the summary of one run. Times are in seconds.
type Report struct {
	RunID         string   `json:"run_id"`
	Policy        string   `json:"policy"`
	Finished      bool     `json:"finished"`
	Customers     int      `json:"customers"`
	Completed     int      `json:"completed"`
	Items         int      `json:"items"`
	Elapsed       float64  `json:"elapsed_s"`
	MeanWait      float64  `json:"mean_wait_s"`
	MedianWait    float64  `json:"p50_wait_s"`
	P95Wait       float64  `json:"p95_wait_s"`
	MeanService   float64  `json:"mean_service_s"`
	MeanResponse  float64  `json:"mean_response_s"`
	FastestServer string   `json:"fastest_server,omitempty"`
	SlowestServer string   `json:"slowest_server,omitempty"`
	Servers       []Server `json:"servers"`
}

// Build computes the report. Only customers that went through service count
// towards the wait, service and response figures.
func Build(snap checkout.FloorSnapshot) Report {
	elapsed := snap.Elapsed(time.Now()).Seconds()

	r := Report{
		RunID:     snap.RunID.String(),
		Policy:    snap.Policy,
		Finished:  snap.Finished,
		Customers: snap.Total,
		Completed: snap.Completed,
		Elapsed:   elapsed,
	}

	var waits, services, responses []float64
	for _, c := range snap.Customers {
		r.Items += c.Items
		if c.Status != checkout.StatusCompleted {
			continue
		}
		wait := c.WaitingTime().Seconds()
		service := c.ServiceTime().Seconds()
		waits = append(waits, wait)
		services = append(services, service)
		responses = append(responses, wait+service)
	}

	if len(waits) > 0 {
		sort.Float64s(waits)
		r.MeanWait = stat.Mean(waits, nil)
		r.MedianWait = stat.Quantile(0.5, stat.Empirical, waits, nil)
		r.P95Wait = stat.Quantile(0.95, stat.Empirical, waits, nil)
		r.MeanService = stat.Mean(services, nil)
		r.MeanResponse = stat.Mean(responses, nil)
	}

	rates := make([]float64, 0, len(snap.Servers))
	for _, s := range snap.Servers {
		r.Servers = append(r.Servers, buildServer(s, elapsed))
		rates = append(rates, s.Rate)
	}
	if len(rates) > 0 {
		r.FastestServer = snap.Servers[floats.MinIdx(rates)].Name()
		r.SlowestServer = snap.Servers[floats.MaxIdx(rates)].Name()
	}

	return r
}

func buildServer(s checkout.ServerSnapshot, elapsed float64) Server {
	out := Server{
		ID:              s.ID,
		Name:            s.Name(),
		Kind:            s.Kind.String(),
		Rate:            s.Rate,
		CustomersServed: s.CustomersServed,
		ItemsProcessed:  s.ItemsProcessed,
		BusySeconds:     s.BusyTime.Seconds(),
		QueuedAtEnd:     s.QueueLen,
		Terminated:      s.Terminated,
	}
	if s.CustomersServed > 0 {
		out.ItemsPerCustomer = float64(s.ItemsProcessed) / float64(s.CustomersServed)
	}
	if elapsed > 0 {
		out.Utilization = out.BusySeconds / elapsed
	}

	return out
}

// TotalItemsProcessed sums the items served across all servers.
func (r Report) TotalItemsProcessed() int {
	total := make([]float64, len(r.Servers))
	for i, s := range r.Servers {
		total[i] = float64(s.ItemsProcessed)
	}

	return int(floats.Sum(total))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Millisecond)
}
