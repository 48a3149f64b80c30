package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"airgapintel/internal/downloader"
	"airgapintel/pkg/catalog"
	"airgapintel/pkg/config"
	"airgapintel/pkg/fetch"
	"airgapintel/pkg/harvest"
	"airgapintel/pkg/linkparse"
	"airgapintel/pkg/logger"
	"airgapintel/pkg/metrics"
	"airgapintel/pkg/ratelimit"
	"airgapintel/pkg/retry"
	"airgapintel/pkg/storage"
	"airgapintel/pkg/ui"
)

var (
	// Run command flags
	daysBack    string
	assumeYes   bool
	outputDir   string
	concurrent  int
	rateLimit   int
	timeout     time.Duration
	sourcesFile string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Download every catalog feed for the last N days",
	Long: `Download the MISP default feeds (or the catalog given with --sources) into
the output directory, one subdirectory per category.

Listings that publish dated files (CIRCL, abuse.ch) only contribute files from
the last N days plus today. Every outcome is appended to the CSV run log in the
output directory, and a manifest.json with sha256 sums is written at the end.

When stdin is a terminal you are asked for the number of days and for
confirmation; --days-back and --yes skip those prompts.`,
	Example: `  # Interactive run with the defaults
  airgapintel run

  # Unattended run for cron, last 3 days, 4 parallel downloads
  airgapintel run --days-back 3 --yes --concurrent 4

  # Use a custom catalog and output directory
  airgapintel run --sources feeds.yaml --output /srv/transfer/feeds`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&daysBack, "days-back", "d", strconv.Itoa(config.DefaultDaysBack), "number of days back to download (invalid values use the default)")
	runCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "start without asking for confirmation")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: AirgapIntel_Feeds)")
	runCmd.Flags().IntVar(&concurrent, "concurrent", 1, "number of parallel downloads (1-10)")
	runCmd.Flags().IntVar(&rateLimit, "rate-limit", 120, "requests per minute across all downloads")
	runCmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "per-request timeout")
	runCmd.Flags().StringVar(&sourcesFile, "sources", "", "YAML catalog replacing the built-in feed list")
}

func runFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("days-back") {
		flags["days-back"] = daysBack
	}
	if cmd.Flags().Changed("output") {
		flags["output"] = outputDir
	}
	if cmd.Flags().Changed("concurrent") {
		flags["concurrent"] = concurrent
	}
	if cmd.Flags().Changed("rate-limit") {
		flags["rate-limit"] = rateLimit
	}
	if cmd.Flags().Changed("timeout") {
		flags["timeout"] = timeout
	}
	if cmd.Flags().Changed("sources") {
		flags["sources"] = sourcesFile
	}
	return flags
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, runFlags(cmd))
	if err != nil {
		return err
	}

	// the progress bar owns the terminal unless the operator asked for logs
	if !verbose && !cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = "error"
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("AirgapIntel starting")

	days := cfg.Run.DaysBack
	if interactive() {
		p := newPrompter(os.Stdin, os.Stdout)
		if !cmd.Flags().Changed("days-back") {
			days = p.daysBack(days)
		}
		if !assumeYes && !p.confirm(days, cfg.Output.BaseDirectory) {
			ui.PrintWarning("Aborted")
			return nil
		}
	}

	entries, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backoff, err := retry.NewBackoff(cfg.HTTP.Backoff, cfg.HTTP.RetryDelay)
	if err != nil {
		return err
	}
	client := fetch.NewClient(fetch.Options{
		Timeout:     cfg.HTTP.RequestTimeout,
		UserAgent:   cfg.HTTP.UserAgent,
		MaxAttempts: cfg.HTTP.MaxAttempts,
		RetryDelay:  cfg.HTTP.RetryDelay,
		Backoff:     backoff,
		Limiter:     ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute),
		Logger:      log,
	})

	adapters, err := catalog.Build(entries, client, linkparse.New())
	if err != nil {
		return err
	}

	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return err
	}

	runMetrics := metrics.New()
	pool := downloader.NewWorkerPool(downloader.Config{
		Workers:   cfg.Download.ConcurrentDownloads,
		Fetcher:   client,
		Storage:   store,
		Recorders: []downloader.Recorder{runMetrics},
		Logger:    log,
	})

	h, err := harvest.New(harvest.Config{
		Adapters:      adapters,
		Executor:      pool,
		Output:        store,
		OpenLog:       harvest.CSVLog(cfg.LogPath()),
		Metrics:       runMetrics,
		MetricsPath:   cfg.MetricsPath(),
		WriteManifest: cfg.Output.WriteManifest,
		Progress:      ui.NewProgress(os.Stdout, verbose),
		Logger:        log,
	})
	if err != nil {
		return err
	}

	ui.PrintInfo("Days back", fmt.Sprintf("%d", days))
	ui.PrintInfo("Output", store.Root())
	ui.PrintInfo("Sources", fmt.Sprintf("%d in %d categories", len(adapters), len(catalog.Categories(entries))))

	result, err := h.Execute(ctx, harvest.RunConfig{DaysBack: days})
	if err != nil {
		return err
	}

	ui.PrintSummary(result)
	fmt.Println()
	ui.PrintInfo("Log file", cfg.LogPath())
	if ctx.Err() != nil {
		ui.PrintWarning("Run interrupted; feeds not yet started were skipped")
	}

	return nil
}

// loadCatalog returns the configured catalog, or the built-in one
func loadCatalog(cfg *config.Config) ([]catalog.Entry, error) {
	if cfg.SourcesFile == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(cfg.SourcesFile)
}
