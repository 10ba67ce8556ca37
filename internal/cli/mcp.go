package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/matchcompat/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio transport)",
	Long: `Start the MCP (Model Context Protocol) server using stdio transport.

This lets AI assistants read compatibilities, check jobs and run the worker.

Add to the assistant's MCP config:

{
  "mcpServers": {
    "matchcompat": {
      "command": "/path/to/matchcompat",
      "args": ["mcp"]
    }
  }
}`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	e, log, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if !e.Config().MCP.Enabled {
		return fmt.Errorf("MCP server is disabled in config")
	}

	server := mcp.New(e, version, log)
	return server.Serve(ctx, os.Stdin, os.Stdout)
}
