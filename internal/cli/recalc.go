package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/matchcompat/internal/output"
	"github.com/vijay-prabhu/matchcompat/internal/recalc"
)

var recalcCmd = &cobra.Command{
	Use:   "recalc [user]",
	Short: "Recalculate pairs immediately, outside the queue",
	Long: `Recalculate a user's pairs immediately, or every eligible pair with --all.

Examples:
  matchcompat recalc alice           # merge: update changed pairs, add new ones
  matchcompat recalc alice --reset   # drop alice's pairs and rebuild them
  matchcompat recalc --all           # compute every eligible pair once`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecalc,
}

var (
	recalcAll   bool
	recalcReset bool
)

func init() {
	rootCmd.AddCommand(recalcCmd)
	recalcCmd.Flags().BoolVar(&recalcAll, "all", false, "Recalculate every eligible pair")
	recalcCmd.Flags().BoolVar(&recalcReset, "reset", false, "Delete the user's pairs before rebuilding")
}

func runRecalc(cmd *cobra.Command, args []string) error {
	switch {
	case recalcAll && len(args) > 0:
		return errors.New("--all does not take a user")
	case recalcAll && recalcReset:
		return errors.New("--reset applies to a single user")
	case !recalcAll && len(args) == 0:
		return errors.New("a user is required unless --all is given")
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var progress recalc.ProgressCallback
	terminal := NewTerminal()
	if outputFmt != "json" {
		progress = terminal.ProgressPrinter()
	}

	if recalcAll {
		results, err := e.RecalculateEveryone(ctx, progress)
		terminal.Done()
		if err != nil && len(results) == 0 {
			return err
		}
		if err := output.Output(outputFmt, results); err != nil {
			return err
		}
		if err != nil {
			return fmt.Errorf("stopped after %d user(s): %w", len(results), err)
		}
		return nil
	}

	res, err := e.Recalculate(ctx, args[0], recalc.Options{FullReset: recalcReset, Progress: progress})
	terminal.Done()
	if err != nil && res == nil {
		return err
	}
	if outErr := output.Output(outputFmt, res); outErr != nil {
		return outErr
	}
	return err
}
