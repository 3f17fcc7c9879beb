package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gpfetch/pkg/auth"
	"gpfetch/pkg/config"
	"gpfetch/pkg/engine"
	"gpfetch/pkg/gopro"
	"gpfetch/pkg/logger"
	"gpfetch/pkg/ratelimit"
	"gpfetch/pkg/storage"
	"gpfetch/pkg/ui"
)

var (
	// Fetch command flags
	outputDir   string
	concurrent  int
	perPage     int
	maxPages    int
	maxRecords  int
	rateLimit   int
	dryRun      bool
	accountName string
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download all media from your GoPro cloud library",
	Long: `Enumerate your GoPro cloud media library page by page and download
every item to the output directory.

This command requires a valid GoPro cloud session, configured through:
  - Stored credentials (use 'gpfetch auth login' to store)
  - Environment variables (GOPRO_COOKIE or GOPRO_ACCESS_TOKEN)
  - Configuration file

Files already present in the output directory are skipped, so rerunning
after an interrupted or partially failed run only fetches what is missing.`,
	Example: `  # Download everything using default settings
  gpfetch fetch

  # Download to a specific directory with more workers
  gpfetch fetch --output ~/gopro --concurrency 8

  # Preview without downloading
  gpfetch fetch --dry-run

  # Limit the run to the two newest pages
  gpfetch fetch --max-pages 2

  # Use a specific stored account
  gpfetch fetch --account personal`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runFetch()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for downloads (default: ./gopro_media)")
	fetchCmd.Flags().IntVar(&concurrent, "concurrency", 0, "number of concurrent downloads")
	fetchCmd.Flags().IntVar(&perPage, "per-page", 0, "records requested per listing page")
	fetchCmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many listing pages (0 = all)")
	fetchCmd.Flags().IntVar(&maxRecords, "max-records", 0, "stop after this many records (0 = all)")
	fetchCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "download requests per minute (0 = unlimited)")
	fetchCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list what would be downloaded without downloading")
	fetchCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
}

func runFetch() {
	// Build flags map from command line
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if concurrent > 0 {
		flags["concurrency"] = concurrent
	}
	if perPage > 0 {
		flags["per-page"] = perPage
	}
	if maxPages > 0 {
		flags["max-pages"] = maxPages
	}
	if maxRecords > 0 {
		flags["max-records"] = maxRecords
	}
	if rateLimit > 0 {
		flags["rate-limit"] = rateLimit
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	logger.WithField("version", version).Info("gpfetch starting")

	authCtx := resolveAuthContext(cfg)

	storageManager, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		ui.PrintError("Failed to prepare output directory", err.Error())
		os.Exit(1)
	}
	ui.PrintInfo("Output directory", storageManager.OutputDir())

	client := gopro.NewClient(
		cfg.GoPro.APIBaseURL,
		cfg.GoPro.UserAgent,
		authCtx,
		cfg.Download.ListTimeout,
		cfg.Download.DownloadTimeout,
		logger.GetLogger(),
	)

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.RateLimit.RequestsPerMinute > 0 {
		limiter = ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute)
	}

	eng := engine.New(client, client, storageManager, limiter, logger.GetLogger())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if dryRun {
		ui.PrintHighlight("[DRY RUN - NOTHING WILL BE DOWNLOADED]")
	}

	summary, err := eng.Run(ctx, engine.Options{
		PerPage:     cfg.Download.PerPage,
		MaxPages:    cfg.Download.MaxPages,
		MaxRecords:  cfg.Download.MaxRecords,
		Concurrency: cfg.Download.ConcurrentDownloads,
		DryRun:      dryRun,
	})

	printSummary(summary, dryRun)

	if err != nil {
		logger.WithError(err).Error("Fetch aborted")
		ui.PrintError("FETCH FAILED", err.Error())
		fmt.Println("\nIf this is an authentication failure, your session cookie may")
		fmt.Println("have expired. Refresh it and store it again:")
		fmt.Println("  gpfetch auth login")
		os.Exit(1)
	}

	if summary.Failed > 0 {
		ui.PrintWarning(fmt.Sprintf("%d downloads failed; rerun to retry just those", summary.Failed))
		os.Exit(1)
	}

	logger.Info("Fetch completed successfully")
	ui.PrintSuccess("[FETCH COMPLETED SUCCESSFULLY]")
}

// resolveAuthContext picks credentials in priority order: the named
// account, then config/env values, then the default stored account.
func resolveAuthContext(cfg *config.Config) auth.AuthContext {
	credManager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if accountName != "" {
		account, err := credManager.Retrieve(accountName)
		if err != nil {
			ui.PrintError("Account not found", accountName)
			ui.PrintInfo("Available accounts", "Use 'gpfetch auth list' to see stored accounts")
			os.Exit(1)
		}
		logger.WithField("account", account.Name).Info("Using stored credentials")
		ui.PrintInfo("Using account", account.Name)
		return account.AuthContext()
	}

	if cfg.GoPro.CookieHeader != "" || cfg.GoPro.AccessToken != "" {
		logger.Info("Using credentials from configuration")
		return auth.NewAuthContext(cfg.GoPro.CookieHeader, cfg.GoPro.AccessToken)
	}

	account, err := credManager.RetrieveDefault()
	if err != nil {
		logger.Error("No credentials found")
		ui.PrintError("No GoPro credentials found", "")
		fmt.Println("\nTo store credentials securely, run:")
		fmt.Println("  gpfetch auth login")
		fmt.Println("\nYou can also set environment variables:")
		fmt.Println("  export GOPRO_COOKIE='<full Cookie header from your browser>'")
		fmt.Println("  export GOPRO_ACCESS_TOKEN=<gp_access_token value>")
		os.Exit(1)
	}

	logger.WithField("account", account.Name).Info("Using stored credentials")
	ui.PrintInfo("Using account", account.Name)
	return account.AuthContext()
}

func printSummary(summary *engine.Summary, dryRun bool) {
	fmt.Println()
	ui.PrintHighlight("Run Summary")
	ui.PrintInfo("Pages fetched", fmt.Sprintf("%d", summary.PagesFetched))
	ui.PrintInfo("Records seen", fmt.Sprintf("%d", summary.RecordsSeen))
	if summary.NoCandidate > 0 {
		ui.PrintInfo("Records without a download URL", fmt.Sprintf("%d", summary.NoCandidate))
	}
	if dryRun {
		ui.PrintInfo("Would download", fmt.Sprintf("%d", summary.JobsQueued))
		return
	}
	ui.PrintInfo("Downloaded", fmt.Sprintf("%d", summary.Downloaded))
	ui.PrintInfo("Skipped (already present)", fmt.Sprintf("%d", summary.Skipped))
	ui.PrintInfo("Failed", fmt.Sprintf("%d", summary.Failed))

	for _, failure := range summary.Failures {
		var detail string
		if failure.Error != nil {
			detail = failure.Error.Error()
		}
		ui.PrintWarning("failed: "+failure.Job.URL, detail)
	}
}

// Make fetch the default command when no subcommand is specified
func init() {
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fetchCmd.RunE(fetchCmd, args)
		}
		return cmd.Help()
	}
	rootCmd.Args = cobra.ArbitraryArgs
}
