package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/matchcompat/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration file for errors",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Dir(configPath)
	dataDir := filepath.Join(home, ".local", "share", "matchcompat")

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file already exists at %s\n", configPath)
		fmt.Println("Use 'matchcompat config show' to view current configuration")
		return nil
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Add users:      matchcompat user add alice")
	fmt.Println("  2. Record answers: matchcompat answer set alice q1 --me 3 --want 4")
	fmt.Println("     or load a seed: matchcompat import users.toml")
	fmt.Println("  3. Process queue:  matchcompat tick (or run 'matchcompat serve')")

	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No config file found. Run 'matchcompat config init' to create one.")
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	fmt.Printf("# Config file: %s\n\n", configPath)
	fmt.Println(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(configPath); err != nil {
		return err
	}
	fmt.Printf("%s is valid\n", configPath)
	return nil
}

const defaultConfig = `# matchcompat configuration

[database]
path = "~/.local/share/matchcompat/matchcompat.db"

[scoring]
# Users are queued once they have answered this many questions
match_ready_threshold = 10
# Reaching the threshold on one of these recalculates the user right away
onboarding_questions = []
inline_onboarding = true

[worker]
max_items = 50         # jobs per tick
max_seconds = 240      # time budget per tick
interval_seconds = 300 # time between ticks under 'matchcompat serve'

[cache]
backend = "memory"     # memory, redis or none
ttl_seconds = 3600
redis_addr = "localhost:6379"
redis_db = 0
key_prefix = "matchcompat:"

[logging]
mode = "dev"           # dev or prod
level = "info"

[metrics]
addr = ":9464"         # /metrics and /healthz under 'matchcompat serve'

[mcp]
enabled = true
transport = "stdio"
`
