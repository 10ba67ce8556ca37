package cli

import (
	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/matchcompat/internal/engine"
	"github.com/vijay-prabhu/matchcompat/internal/output"
)

var importCmd = &cobra.Command{
	Use:   "import <seed.toml>",
	Short: "Load users and answers from a TOML seed file",
	Long: `Load users, answers and required marks from a TOML seed file.
Existing users are updated in place; match-ready users are queued.

Example seed:

  [[users]]
  username = "alice"
  required = ["q1"]

  [[users.answers]]
  question_id = "q1"
  me_value = 3
  me_importance = 3
  looking_for_value = 4
  looking_for_importance = 4`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	seed, err := engine.LoadSeed(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := e.Import(ctx, seed)
	if err != nil {
		return err
	}
	return output.Output(outputFmt, res)
}
