package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/matchcompat/internal/output"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Process pending recalculation jobs once",
	Long: `Claim and process pending jobs, oldest first, until the item or time
budget runs out. A job cut short by the time budget is returned to pending
with its finished pairs kept.

Examples:
  matchcompat tick                       # configured budgets
  matchcompat tick --max-items 5 --max-duration 30s`,
	RunE: runTick,
}

var (
	tickMaxItems    int
	tickMaxDuration time.Duration
)

func init() {
	rootCmd.AddCommand(tickCmd)
	tickCmd.Flags().IntVar(&tickMaxItems, "max-items", 0, "Maximum jobs to process (default: worker.max_items)")
	tickCmd.Flags().DurationVar(&tickMaxDuration, "max-duration", 0, "Time budget (default: worker.max_seconds)")
}

func runTick(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	summary := e.ScheduledTick(ctx, tickMaxItems, tickMaxDuration)
	return output.Output(outputFmt, summary)
}
