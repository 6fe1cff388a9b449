package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"threadscraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage threadscraper configuration files.

Configuration is merged from, highest priority first:
  - Command line flags
  - Environment variables (THREADSCRAPER_*)
  - .env files
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create threadscraper.yaml in the current directory (or the path given with
--config) with every option and an example thread list.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# threadscraper configuration
#
# Every option can also be set with an environment variable prefixed with
# THREADSCRAPER_, e.g. THREADSCRAPER_OUTPUT_DIR or THREADSCRAPER_ACCESS_TOKEN.
# Durations use Go syntax: 500ms, 2s, 20m.

api:
  base_url: "https://www.reddit.com"
  # Used instead of base_url when an access token is available
  oauth_base_url: "https://oauth.reddit.com"
  user_agent: "threadscraper/0.3 (research archive)"
  timeout: 15s

retry:
  # Attempts per request, the first included
  max_attempts: 6
  # 429 and 403 responses wait base_delay * 2^(attempt-1), capped at max_delay
  base_delay: 1s
  max_delay: 5m
  # Transport failures wait a constant network_delay
  network_delay: 3s

rate_limit:
  # 0 disables the global cap; pacing_delay below already spaces requests
  requests_per_minute: 0

fetch:
  root_limit: 500
  root_depth: 10
  # Child ids per continuation request (at most 100)
  chunk_size: 100
  checkpoint_every: 50
  progress_every: 10
  pacing_delay: 2s
  initial_delay: 2s
  # Pause between threads that hit the API
  thread_cooldown: 20m

output:
  directory: "./data/raw"
  # Defaults to the output directory
  checkpoint_directory: ""
  overwrite: false

# Processed in order by 'threadscraper run'. Threads sharing a group are merged
# when aggregating.
threads:
  - id: "1qfnyfb"
    label: "bills_broncos_p1"
    game: "Bills vs Broncos"
    group: "bills_broncos"
  - id: "1qfrol6"
    label: "bills_broncos_p2"
    game: "Bills vs Broncos"
    group: "bills_broncos"
  - id: "1nt2qh6"
    label: "packers_cowboys"
    game: "Packers vs Cowboys"
  - id: "1p931uu"
    label: "bears_eagles"
    game: "Bears vs Eagles"

aggregate:
  directory: "./data/derived"
  deleted_author: "[deleted]"
  top_fraction: 0.05
  # Histogram rows printed by 'aggregate'; 0 prints none
  histogram_preview: 20

export:
  database: "./data/threads.db"

metrics:
  # Prometheus text format file written after fetch and run
  textfile: ""

logging:
  level: "info"
  file: ""
  no_color: false
`

func configPath() string {
	if configFile != "" {
		return configFile
	}
	return "threadscraper.yaml"
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	console := ui.Default()
	console.Println("\nNext steps:")
	console.Println("1. Replace the example threads with the ones you want to archive")
	console.Println("2. Run 'threadscraper config validate' to check the configuration")
	console.Println("3. Run 'threadscraper run --dry-run', then 'threadscraper run'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var warnings []string
	if len(cfg.Threads) == 0 {
		warnings = append(warnings, "no threads configured")
	}
	if cfg.API.AccessToken == "" {
		warnings = append(warnings, "no access token configured; requests go to the anonymous host")
	}
	if cfg.Fetch.PacingDelay == 0 && cfg.RateLimit.RequestsPerMinute == 0 {
		warnings = append(warnings, "pacing_delay and requests_per_minute are both 0; expect rate limiting")
	}
	for _, dir := range []string{cfg.Output.Directory, cfg.CheckpointDir(), cfg.Aggregate.Directory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	}

	for _, w := range warnings {
		ui.PrintWarning(w)
	}
	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Threads", fmt.Sprintf("%d", len(cfg.Threads)))
	ui.PrintInfo("Output", cfg.Output.Directory)
	ui.PrintInfo("Pacing", fmt.Sprintf("%s between requests, %s between threads", cfg.Fetch.PacingDelay, cfg.Fetch.ThreadCooldown))
	return nil
}

