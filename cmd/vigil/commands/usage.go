package commands

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/vigil/ai/tracker"
	"github.com/teranos/vigil/display"
	"github.com/teranos/vigil/sym"
)

// UsageCmd reports generation usage from the ledger
var UsageCmd = &cobra.Command{
	Use:   "usage",
	Short: sym.DB + " Show generation usage and cost",
	Long: sym.DB + ` usage — Show generation usage and cost

Every call to the generation service is recorded in the usage ledger with
its model, token count and estimated cost.

Examples:
  vigil usage                # Last 24 hours
  vigil usage --since 720h   # Last 30 days
  vigil usage --json`,
	RunE: runUsage,
}

func init() {
	UsageCmd.Flags().Duration("since", 24*time.Hour, "Window to report on")
	UsageCmd.Flags().Bool("json", false, "Output as JSON")
}

type usageReport struct {
	Since     time.Time                `json:"since"`
	Stats     *tracker.UsageStats      `json:"stats"`
	Breakdown []tracker.ModelBreakdown `json:"models"`
}

func runUsage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	window, _ := cmd.Flags().GetDuration("since")
	since := time.Now().Add(-window)

	t := tracker.NewUsageTracker(database)
	ctx := cmd.Context()
	stats, err := t.GetUsageStats(ctx, since)
	if err != nil {
		return err
	}
	breakdown, err := t.GetModelBreakdown(ctx, since)
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), usageReport{Since: since.UTC(), Stats: stats, Breakdown: breakdown})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Generation usage since %s\n", sym.DB, since.Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(out, "Requests:      %d (%.0f%% successful)\n", stats.TotalRequests, stats.SuccessRate*100)
	fmt.Fprintf(out, "Runs:          %d\n", stats.Runs)
	fmt.Fprintf(out, "Tokens:        %d\n", stats.TotalTokens)
	fmt.Fprintf(out, "Cost:          $%.4f\n", stats.TotalCost)
	fmt.Fprintf(out, "Models:        %d\n\n", stats.UniqueModels)

	if len(breakdown) == 0 {
		return nil
	}
	data := pterm.TableData{{"MODEL", "PROVIDER", "REQUESTS", "TOKENS", "COST"}}
	for _, mb := range breakdown {
		data = append(data, []string{
			mb.ModelName,
			mb.ModelProvider,
			fmt.Sprintf("%d", mb.RequestCount),
			fmt.Sprintf("%d", mb.TotalTokens),
			fmt.Sprintf("$%.4f", mb.TotalCost),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, table)
	return nil
}
