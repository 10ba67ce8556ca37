package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/matchcompat/internal/config"
	"github.com/vijay-prabhu/matchcompat/internal/engine"
	"github.com/vijay-prabhu/matchcompat/internal/logger"
)

var (
	// Version info set from main
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	// Global flags
	configPath string
	outputFmt  string
	logLevel   string
)

// SetVersionInfo sets version information from build flags
func SetVersionInfo(v, c, b string) {
	version = v
	commit = c
	buildTime = b
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "matchcompat",
	Short: "Pairwise compatibility scoring for questionnaire answers",
	Long: `matchcompat scores how well pairs of users fit each other based on
their answers to a shared questionnaire.

It provides:
  - Directional and overall compatibility, on all questions or required ones only
  - A persistent job queue that recalculates users whose answers changed
  - An incremental worker with item and time budgets
  - MCP server for AI assistant integration`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default: ~/.config/matchcompat/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table",
		"output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override logging.level from the config file")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		configPath = filepath.Join(home, ".config", "matchcompat", "config.toml")
	}
}

// openEngine loads the config, builds the logger and opens the engine.
// The returned cleanup closes the engine and flushes the logger.
func openEngine(ctx context.Context) (*engine.Engine, *logger.Logger, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	log, err := logger.New(cfg.Logging.Mode, level)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	e, err := engine.Open(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := e.Close(); err != nil {
			log.Warn("failed to close engine", "error", err)
		}
		log.Sync()
	}
	return e, log, cleanup, nil
}

// signalContext is cancelled on interrupt or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("matchcompat %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", buildTime)
	},
}
