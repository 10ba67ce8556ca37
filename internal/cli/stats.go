package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/matchcompat/internal/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show user, pair and job statistics",
	Long: `Display counts of users and answers, stored pairs against the number
expected between eligible users, and jobs by status.`,
	RunE: runStats,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the score cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached pair",
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := e.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	return output.Output(outputFmt, stats)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := e.ClearCache(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Printf("Cleared %s cache\n", e.Config().Cache.Backend)
	return nil
}
