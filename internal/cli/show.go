package cli

import (
	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/matchcompat/internal/engine"
	"github.com/vijay-prabhu/matchcompat/internal/output"
	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

var showCmd = &cobra.Command{
	Use:   "show <user> <other>",
	Short: "Show the compatibility between two users",
	Long: `Show the compatibility between two users from the first user's side.
Pairs not stored yet are computed on the fly.

Examples:
  matchcompat show alice bob
  matchcompat show alice bob --required          # required questions only
  matchcompat show alice bob --exclude-required  # everything else`,
	Args: cobra.ExactArgs(2),
	RunE: runShow,
}

var matchesCmd = &cobra.Command{
	Use:   "matches <user>",
	Short: "List a user's best stored matches",
	Long: `List a user's stored matches, best first.

Examples:
  matchcompat matches alice
  matchcompat matches alice --sort compatible_with_me --min 70
  matchcompat matches alice --required --limit 10 --offset 10`,
	Args: cobra.ExactArgs(1),
	RunE: runMatches,
}

var (
	showRequired        bool
	showExcludeRequired bool

	matchesSort     string
	matchesRequired bool
	matchesMin      float64
	matchesMax      float64
	matchesLimit    int
	matchesOffset   int
)

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(matchesCmd)

	showCmd.Flags().BoolVar(&showRequired, "required", false, "Score only questions either user marked required")
	showCmd.Flags().BoolVar(&showExcludeRequired, "exclude-required", false, "Score only questions neither user marked required")

	matchesCmd.Flags().StringVar(&matchesSort, "sort", engine.SortOverall, "Score to sort and filter by (overall, compatible_with_me, im_compatible_with)")
	matchesCmd.Flags().BoolVar(&matchesRequired, "required", false, "Use required-question scores")
	matchesCmd.Flags().Float64Var(&matchesMin, "min", 0, "Minimum score")
	matchesCmd.Flags().Float64Var(&matchesMax, "max", 100, "Maximum score")
	matchesCmd.Flags().IntVar(&matchesLimit, "limit", 20, "Maximum number of matches")
	matchesCmd.Flags().IntVar(&matchesOffset, "offset", 0, "Number of matches to skip")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	view, err := e.ReadCompatibility(ctx, args[0], args[1], scoring.ReadOptions{
		RequiredOnly:    showRequired,
		ExcludeRequired: showExcludeRequired,
	})
	if err != nil {
		return err
	}
	return output.Output(outputFmt, view)
}

func runMatches(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	matches, err := e.Matches(ctx, args[0], engine.MatchOptions{
		SortBy:       matchesSort,
		RequiredOnly: matchesRequired,
		Min:          matchesMin,
		Max:          matchesMax,
		Limit:        matchesLimit,
		Offset:       matchesOffset,
	})
	if err != nil {
		return err
	}
	return output.Output(outputFmt, matches)
}
