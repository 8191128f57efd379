package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/cablebill/cablebill/internal/app"
	billdomain "github.com/cablebill/cablebill/internal/bill/domain"
	billingdomain "github.com/cablebill/cablebill/internal/billing/domain"
	"github.com/cablebill/cablebill/internal/clock"
	"github.com/cablebill/cablebill/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var billingCmd = &cobra.Command{
	Use:   "billing",
	Short: "Billing operations",
}

var billingRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate the bills of one period",
	Long: `Generate the bills of one period.

Re-running a period only bills subscriptions that do not have a bill for it
yet. Per-subscription failures are listed in the summary; the command exits
non-zero only when the run as a whole could not complete.

Examples:
  cablebill billing run
  cablebill billing run --period 2024-03
  cablebill billing run --period 2024-03 --json`,
	RunE: runBillingRun,
}

var billingRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent billing runs",
	RunE:  runBillingRuns,
}

var (
	billingPeriod string
	billingJSON   bool
	billingLimit  int
)

func init() {
	rootCmd.AddCommand(billingCmd)
	billingCmd.AddCommand(billingRunCmd)
	billingCmd.AddCommand(billingRunsCmd)

	billingRunCmd.Flags().StringVar(&billingPeriod, "period", "", "period to bill as YYYY-MM (default: current month in the billing timezone)")
	billingRunCmd.Flags().BoolVar(&billingJSON, "json", false, "print the run summary as JSON")

	billingRunsCmd.Flags().StringVar(&billingPeriod, "period", "", "only show runs of this period (YYYY-MM)")
	billingRunsCmd.Flags().IntVar(&billingLimit, "limit", 20, "maximum number of runs to list")
}

func runBillingRun(cmd *cobra.Command, args []string) error {
	var (
		engine  billingdomain.Engine
		clk     clock.Clock
		billing *config.BillingConfigHolder
	)
	return runWith(cmd.Context(), func(ctx context.Context) error {
		period, err := resolvePeriod(billingPeriod, clk.Now(), billing.Get().Location())
		if err != nil {
			return err
		}

		result, err := engine.Run(ctx, billingdomain.RunRequest{
			Period:  period,
			Trigger: billingdomain.TriggerCLI,
		})
		if result != nil {
			if billingJSON {
				if encErr := printJSON(cmd.OutOrStdout(), result); encErr != nil {
					return encErr
				}
			} else {
				printRunSummary(cmd.OutOrStdout(), result)
			}
		}
		return err
	}, app.Core, app.Billing, fx.Populate(&engine, &clk, &billing))
}

func runBillingRuns(cmd *cobra.Command, args []string) error {
	var engine billingdomain.Engine
	return runWith(cmd.Context(), func(ctx context.Context) error {
		runs, err := engine.ListRuns(ctx, billingPeriod, billingLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No billing runs found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tPERIOD\tTRIGGER\tSTATUS\tGENERATED\tSKIPPED\tFAILED\tSTARTED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				r.RunID, r.Period, r.Trigger, r.Status, r.Generated, r.Skipped, r.Failed,
				r.StartedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	}, app.Core, app.Billing, fx.Populate(&engine))
}

// resolvePeriod parses "YYYY-MM", defaulting to the month containing now in
// loc.
func resolvePeriod(value string, now time.Time, loc *time.Location) (time.Time, error) {
	if value == "" {
		return billdomain.MonthStart(now.In(loc)), nil
	}
	return billdomain.ParsePeriod(value)
}

func printRunSummary(out io.Writer, r *billingdomain.RunResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run:\t%s\n", r.RunID)
	fmt.Fprintf(w, "Period:\t%s\n", r.Period)
	fmt.Fprintf(w, "Status:\t%s\n", r.Status)
	fmt.Fprintf(w, "Eligible:\t%d\n", r.Eligible)
	fmt.Fprintf(w, "Generated:\t%d\n", r.Generated)
	fmt.Fprintf(w, "Skipped:\t%d\n", r.Skipped)
	fmt.Fprintf(w, "Failed:\t%d\n", r.Failed)
	fmt.Fprintf(w, "Duration:\t%s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	w.Flush()

	if len(r.Failures) == 0 {
		return
	}
	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CUSTOMER\tSUBSCRIPTION\tREASON")
	for _, f := range r.Failures {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.CustomerID, f.SubscriptionID, f.Reason)
	}
	w.Flush()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
