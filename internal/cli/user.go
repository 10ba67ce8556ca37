package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/matchcompat/internal/output"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Register a new user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE:  runUserList,
}

var userExcludeCmd = &cobra.Command{
	Use:   "exclude <user>",
	Short: "Exclude a user from matching and drop their stored pairs",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runUserExclude(cmd, args[0], true) },
}

var userIncludeCmd = &cobra.Command{
	Use:   "include <user>",
	Short: "Return an excluded user to matching",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runUserExclude(cmd, args[0], false) },
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userExcludeCmd)
	userCmd.AddCommand(userIncludeCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	u, err := e.AddUser(ctx, args[0])
	if err != nil {
		return err
	}
	if outputFmt == "json" {
		return output.JSON(u)
	}
	fmt.Printf("Added %s (%s)\n", u.Username, u.ID)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	users, err := e.DB().ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	return output.Output(outputFmt, users)
}

func runUserExclude(cmd *cobra.Command, ref string, excluded bool) error {
	ctx := cmd.Context()
	e, _, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := e.SetExcluded(ctx, ref, excluded)
	if err != nil {
		return err
	}
	return output.Output(outputFmt, res)
}
