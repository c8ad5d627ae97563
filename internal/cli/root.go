package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"placewatch/internal/control"
	"placewatch/internal/core/config"
	"placewatch/internal/scrape"
)

var (
	cfgPath    string
	keyword    string
	location   string
	maxResults int
	headless   bool
	proxyFile  string
	noRotation bool
	isDebug    bool
)

var rootCmd = &cobra.Command{
	Use:   "placewatch",
	Short: "Resilient place scraper",
	Long: `placewatch collects structured business records from a hostile,
rate-limited web target, rotating proxy identities on failure and
deduplicating listings by fuzzy name and location identity.`,
	Run: runScrape,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (YAML)")
	rootCmd.Flags().StringVarP(&keyword, "keyword", "k", "", `search keyword (e.g. "cafe", "gym")`)
	rootCmd.Flags().StringVarP(&location, "location", "l", "", "location (city name or zip code)")
	rootCmd.Flags().IntVarP(&maxResults, "max", "m", 0, "maximum number of places to scrape")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "run the browser headless")
	rootCmd.Flags().StringVar(&proxyFile, "proxy-file", "", "proxy list file (host:port or host:port:username:password)")
	rootCmd.Flags().BoolVar(&noRotation, "no-rotation", false, "disable identity rotation even when a proxy file is set")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

func runScrape(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		initLogger("info")
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	applyFlags(cmd, cfg)

	level := cfg.Logging.Level
	if isDebug {
		level = "debug"
	}
	initLogger(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := control.NewRunner(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize run", "error", err)
		os.Exit(1)
	}

	admitted, err := runner.Run(ctx)
	if err != nil {
		logTerminal(err)
		if admitted > 0 {
			slog.Info("Partial results saved", "admitted", admitted)
		}
		os.Exit(1)
	}

	slog.Info("Scraping completed", "total_results", admitted)
}

func loadConfig() (*config.AppConfig, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	return config.Load(cfgPath)
}

// applyFlags lets explicit CLI flags override the config file.
func applyFlags(cmd *cobra.Command, cfg *config.AppConfig) {
	if keyword != "" {
		cfg.Search.Keyword = keyword
	}
	if location != "" {
		cfg.Search.Location = location
	}
	if maxResults > 0 {
		cfg.Search.MaxResults = maxResults
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if proxyFile != "" {
		cfg.Proxy.File = proxyFile
		cfg.Proxy.RotationEnabled = true
	}
	if noRotation {
		cfg.Proxy.RotationEnabled = false
	}
}

func initLogger(level string) {
	slogLevel := slog.LevelInfo
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})))
}

// logTerminal reports a terminal failure with its full structure so the
// cause is unambiguous in the log.
func logTerminal(err error) {
	var failure *scrape.Failure
	if errors.As(err, &failure) {
		slog.Error("Run failed",
			"reason", failure.Reason.String(),
			"fault", failure.Fault.String(),
			"attempts", failure.Attempts,
			"last_identity", failure.Identity,
			"error", failure.Err)
		return
	}
	slog.Error("Run failed", "error", err)
}
