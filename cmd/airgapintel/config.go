package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"airgapintel/pkg/catalog"
	"airgapintel/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage AirgapIntel configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (AIRGAPINTEL_*, also read from .env)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.airgapintel.yaml'
unless a different path is specified with the --config flag.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration including values from all sources:
  - Command line flags
  - Environment variables
  - Configuration file
  - Default values`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and catalog",
	Long: `Validate the configuration file and, when sources_file is set, the feed
catalog it points to.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Catalog entries (kinds, URLs, date policies, match patterns)`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# AirgapIntel Configuration File
#
# Environment variables prefixed with AIRGAPINTEL_ override these values,
# for example AIRGAPINTEL_DAYS_BACK or AIRGAPINTEL_OUTPUT_DIR.

run:
  # Days before today to include; today is always included
  days_back: 7

output:
  # Root of the feed tree carried across the air gap
  base_directory: "AirgapIntel_Feeds"

  # CSV run log, relative to base_directory unless absolute
  log_file: "misp_feed_download_log.csv"

  # Write manifest.json with sha256 sums after each run
  write_manifest: true

http:
  request_timeout: 60s
  user_agent: "Mozilla/5.0 (compatible; MISPFeedDownloader/1.0)"

  # Attempts per request; network errors, 429 and 5xx are retried
  max_attempts: 2
  retry_delay: 2s

  # exponential doubles retry_delay per attempt (capped at 30s); constant always waits retry_delay
  backoff: exponential

rate_limit:
  # Requests per minute across all downloads
  requests_per_minute: 120

download:
  # Parallel downloads, 1-10. 1 processes feeds strictly in catalog order.
  concurrent_downloads: 1

metrics:
  # Prometheus textfile, relative to base_directory; empty disables it
  textfile: "airgapintel.prom"

logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional)
  file: ""

# YAML catalog replacing the built-in MISP default feed list (optional)
sources_file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	// Determine config file path
	configPath := configFile
	if configPath == "" {
		configPath = ".airgapintel.yaml"
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the configuration file")
	fmt.Println("2. Run 'airgapintel config validate' to check it")
	fmt.Println("3. Preview the feeds with 'airgapintel feeds'")
	fmt.Println("4. Start collecting with 'airgapintel run'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	// Convert to YAML for display
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))
	fmt.Println()
	ui.PrintInfo("Run log", cfg.LogPath())
	if path := cfg.MetricsPath(); path != "" {
		ui.PrintInfo("Metrics", path)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	ui.PrintSuccess("Configuration is valid")

	if cfg.SourcesFile == "" {
		ui.PrintInfo("Catalog", fmt.Sprintf("built-in (%d feeds)", len(catalog.Default())))
		return nil
	}

	entries, err := catalog.Load(cfg.SourcesFile)
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Catalog %s is valid (%d feeds)", cfg.SourcesFile, len(entries)))
	return nil
}
