package cli

import (
	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/matchcompat/internal/output"
	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Record or remove answers",
}

var answerSetCmd = &cobra.Command{
	Use:   "set <user> <question>",
	Short: "Record a user's answer to a question",
	Long: `Record a user's answer to a question. Values run from 1 to 6 and
importance from 1 (irrelevant) to 5 (mandatory).

Examples:
  matchcompat answer set alice q1 --me 3 --want 4
  matchcompat answer set alice q2 --me 2 --want-open --me-importance 5`,
	Args: cobra.ExactArgs(2),
	RunE: runAnswerSet,
}

var answerDeleteCmd = &cobra.Command{
	Use:   "delete <user> <question>",
	Short: "Remove a user's answer",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnswerDelete,
}

var requireCmd = &cobra.Command{
	Use:   "require <user> <question>",
	Short: "Mark a question as required for a user",
	Args:  cobra.ExactArgs(2),
	RunE:  func(cmd *cobra.Command, args []string) error { return runRequire(cmd, args, true) },
}

var unrequireCmd = &cobra.Command{
	Use:   "unrequire <user> <question>",
	Short: "Clear a question's required mark",
	Args:  cobra.ExactArgs(2),
	RunE:  func(cmd *cobra.Command, args []string) error { return runRequire(cmd, args, false) },
}

var (
	answerMe             int
	answerMeOpen         bool
	answerMeImportance   int
	answerWant           int
	answerWantOpen       bool
	answerWantImportance int
)

func init() {
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(requireCmd)
	rootCmd.AddCommand(unrequireCmd)
	answerCmd.AddCommand(answerSetCmd)
	answerCmd.AddCommand(answerDeleteCmd)

	answerSetCmd.Flags().IntVar(&answerMe, "me", 0, "The user's own answer (1-6)")
	answerSetCmd.Flags().BoolVar(&answerMeOpen, "me-open", false, "The user has no position of their own")
	answerSetCmd.Flags().IntVar(&answerMeImportance, "me-importance", 3, "Importance of the user's own answer (1-5)")
	answerSetCmd.Flags().IntVar(&answerWant, "want", 0, "The answer wanted from others (1-6)")
	answerSetCmd.Flags().BoolVar(&answerWantOpen, "want-open", false, "Any answer from others is acceptable")
	answerSetCmd.Flags().IntVar(&answerWantImportance, "want-importance", 3, "Importance of the other user's answer (1-5)")
}

func runAnswerSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	a := scoring.Answer{
		QuestionID:           args[1],
		MeValue:              answerMe,
		MeOpenToAll:          answerMeOpen,
		MeImportance:         answerMeImportance,
		LookingForValue:      answerWant,
		LookingForOpenToAll:  answerWantOpen,
		LookingForImportance: answerWantImportance,
	}
	if a.MeOpenToAll && a.MeValue == 0 {
		a.MeValue = scoring.OpenValue
	}
	if a.LookingForOpenToAll && a.LookingForValue == 0 {
		a.LookingForValue = scoring.OpenValue
	}

	out, err := e.SubmitAnswer(ctx, args[0], a)
	if err != nil {
		return err
	}
	return output.Output(outputFmt, out)
}

func runAnswerDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := e.RemoveAnswer(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return output.Output(outputFmt, out)
}

func runRequire(cmd *cobra.Command, args []string, required bool) error {
	ctx := cmd.Context()
	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := e.SetRequired(ctx, args[0], args[1], required)
	if err != nil {
		return err
	}
	return output.Output(outputFmt, out)
}
