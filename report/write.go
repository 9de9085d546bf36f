package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
)

const padding = 3

// WriteText prints the run summary followed by one row per server.
func WriteText(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, padding, ' ', 0)

	fmt.Fprintf(tw, "RUN\t%s\t\n", r.RunID)
	fmt.Fprintf(tw, "POLICY\t%s\t\n", r.Policy)
	fmt.Fprintf(tw, "CUSTOMERS\t%d/%d\t\n", r.Completed, r.Customers)
	fmt.Fprintf(tw, "ITEMS\t%d\t\n", r.Items)
	fmt.Fprintf(tw, "TIME\t%v\t\n", seconds(r.Elapsed))
	fmt.Fprintf(tw, "AVG_WAIT\t%v\t\n", seconds(r.MeanWait))
	fmt.Fprintf(tw, "P50_WAIT\t%v\t\n", seconds(r.MedianWait))
	fmt.Fprintf(tw, "P95_WAIT\t%v\t\n", seconds(r.P95Wait))
	fmt.Fprintf(tw, "AVG_SERV\t%v\t\n", seconds(r.MeanService))
	fmt.Fprintf(tw, "AVG_RESP\t%v\t\n", seconds(r.MeanResponse))
	fmt.Fprintf(tw, "FASTEST\t%s\t\n", r.FastestServer)
	fmt.Fprintf(tw, "SLOWEST\t%s\t\n", r.SlowestServer)
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "SERVER\tKIND\tRATE\tCUSTOMERS\tITEMS\tITEMS/CUST\tUTIL\t\n")
	for _, s := range r.Servers {
		fmt.Fprintf(tw, "%s\t%s\t%.2fs\t%d\t%d\t%.1f\t%.0f%%\t\n",
			s.Name, s.Kind, s.Rate, s.CustomersServed, s.ItemsProcessed, s.ItemsPerCustomer, s.Utilization*100)
	}

	return tw.Flush()
}

// WriteJSON encodes the report as a single JSON document.
func WriteJSON(w io.Writer, r Report) error {
	enc := jsoniter.ConfigFastest.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(r)
}

// WriteComparison prints one row per report, one report per policy, and an
// optional footer describing the shared workload.
func WriteComparison(w io.Writer, reports []Report, footer string) error {
	tw := tabwriter.NewWriter(w, 0, 0, padding, ' ', 0)

	fmt.Fprintf(tw, "POLICY\tAVG_WAIT\tAVG_SERV\tAVG_RESP\tTIME\tCUSTOMERS\t\n")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%v\t%v\t%v\t%v\t%d\t\n",
			r.Policy, seconds(r.MeanWait), seconds(r.MeanService), seconds(r.MeanResponse), seconds(r.Elapsed), r.Completed)
	}
	if footer != "" {
		fmt.Fprintf(tw, "(%s)\n\n", footer)
	}

	return tw.Flush()
}
