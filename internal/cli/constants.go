package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/matchcompat/internal/output"
)

var constantsCmd = &cobra.Command{
	Use:   "constants",
	Short: "View or change the scoring constants",
}

var constantsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the constants in effect",
	RunE:  runConstantsShow,
}

var constantsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change one or more constants",
	Long: `Change one or more scoring constants. Stored pairs keep their old
scores until their users are recalculated.

Examples:
  matchcompat constants set --adjust-magnitude 6
  matchcompat constants set --importance-exponent 1.5 --open-to-all-weight 0.5`,
	RunE: runConstantsSet,
}

var (
	constAdjust   float64
	constExponent float64
	constOpen     float64
)

func init() {
	rootCmd.AddCommand(constantsCmd)
	constantsCmd.AddCommand(constantsShowCmd)
	constantsCmd.AddCommand(constantsSetCmd)

	constantsSetCmd.Flags().Float64Var(&constAdjust, "adjust-magnitude", 0, "Points available per question direction")
	constantsSetCmd.Flags().Float64Var(&constExponent, "importance-exponent", 0, "Exponent applied to importance above 3")
	constantsSetCmd.Flags().Float64Var(&constOpen, "open-to-all-weight", 0, "Share of points given to open answers")
}

func runConstantsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	c, err := e.CurrentConstants(ctx)
	if err != nil {
		return err
	}
	return output.Output(outputFmt, c)
}

func runConstantsSet(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if !flags.Changed("adjust-magnitude") && !flags.Changed("importance-exponent") && !flags.Changed("open-to-all-weight") {
		return errors.New("nothing to change; pass at least one constant flag")
	}

	ctx := cmd.Context()
	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	c, err := e.CurrentConstants(ctx)
	if err != nil {
		return err
	}
	if flags.Changed("adjust-magnitude") {
		c.AdjustMagnitude = constAdjust
	}
	if flags.Changed("importance-exponent") {
		c.ImportanceExponent = constExponent
	}
	if flags.Changed("open-to-all-weight") {
		c.OpenToAllWeight = constOpen
	}

	if err := e.UpdateConstants(ctx, c); err != nil {
		return err
	}
	if outputFmt != "json" {
		fmt.Println("Constants updated. Run 'matchcompat recalc --all' to rescore stored pairs.")
	}
	return output.Output(outputFmt, c)
}
