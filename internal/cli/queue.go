package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/output"
	"github.com/vijay-prabhu/matchcompat/internal/queue"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <user>",
	Short: "Queue a user's pairs for recalculation",
	Long: `Queue a user's pairs for recalculation. Without --force, users below
the match-ready threshold are skipped and a pending job is left alone.

Examples:
  matchcompat enqueue alice
  matchcompat enqueue alice --force   # reset to pending whatever its state`,
	Args: cobra.ExactArgs(1),
	RunE: runEnqueue,
}

var statusCmd = &cobra.Command{
	Use:   "status <user>",
	Short: "Show a user's recalculation job",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List recalculation jobs, oldest first",
	Long: `List recalculation jobs, oldest first.

Examples:
  matchcompat jobs
  matchcompat jobs --status failed
  matchcompat jobs --status pending --limit 10`,
	RunE: runJobs,
}

var (
	enqueueForce bool
	jobsStatus   string
	jobsLimit    int
)

func init() {
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(jobsCmd)

	enqueueCmd.Flags().BoolVar(&enqueueForce, "force", false, "Reset the job to pending regardless of threshold or state")
	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "Filter by status (pending, processing, completed, failed)")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 50, "Maximum number of jobs to list")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := e.Enqueue(ctx, args[0], enqueueForce)
	if err != nil {
		return err
	}
	return output.Output(outputFmt, res)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	job, err := e.JobStatus(ctx, args[0])
	if err != nil {
		return err
	}
	if job == nil {
		if outputFmt == "json" {
			return output.JSON(nil)
		}
		fmt.Printf("%s has never been queued\n", args[0])
		return nil
	}
	return output.Output(outputFmt, job)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	opts := database.JobListOptions{Limit: jobsLimit}
	if jobsStatus != "" {
		status, err := queue.ParseStatus(jobsStatus)
		if err != nil {
			return err
		}
		opts.Status = &status
	}

	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	jobs, err := e.ListJobs(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	return output.Output(outputFmt, jobs)
}
