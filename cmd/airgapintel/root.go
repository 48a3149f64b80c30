package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"airgapintel/pkg/config"
	"airgapintel/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFile    string
	noColor    bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "airgapintel",
	Short: "Collect MISP threat-intelligence feeds for transfer into an air-gapped network",
	Long: `AirgapIntel downloads the MISP project's default threat-intelligence feeds
on an internet-connected host and lays them out in a directory tree that can be
carried into a disconnected network.

Features:
  - Built-in catalog of the MISP default feeds, replaceable with a YAML file
  - Date-windowed scraping of CIRCL, Botvrij and abuse.ch MISP listings
  - Append-only CSV run log and a sha256 manifest for integrity checks
  - Optional bounded concurrency with a shared rate limit
  - Prometheus textfile metrics for node_exporter`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
			ui.NoColor = true
		}

		// Don't show logo for certain commands
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.airgapintel.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every feed instead of a progress bar")

	// Version template
	rootCmd.SetVersionTemplate(`AirgapIntel {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves configuration from every source. Only flags the
// operator actually set override the file and environment.
func loadConfig(cmd *cobra.Command, extra map[string]interface{}) (*config.Config, error) {
	flags := make(map[string]interface{})
	for k, v := range extra {
		flags[k] = v
	}
	if cmd.Flags().Changed("log-level") {
		flags["log-level"] = logLevel
	}
	if cmd.Flags().Changed("log-file") {
		flags["log-file"] = logFile
	}

	return config.Load(configFile, flags)
}
