package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/pfrederiksen/library-due-dates/internal/calendar"
	"github.com/pfrederiksen/library-due-dates/internal/config"
	"github.com/pfrederiksen/library-due-dates/internal/logger"
	"github.com/pfrederiksen/library-due-dates/internal/scraper"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version is reported by --version
var Version = "dev"

var (
	flagConfig  string
	flagFormat  string
	flagVerbose bool
	flagDryRun  bool
	flagSort    string
	flagOutput  string
	flagForce   bool
)

// Collaborator constructors, replaced in tests
var (
	newFetcher = fetcherFromConfig
	openStore  = storeFromConfig
)

// NewRootCmd creates the root command. Without a subcommand it syncs.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library-due-dates",
		Short: "Keep a calendar of library due dates in sync with your loans",
		Long: `A CLI tool that logs in to a library patron account, reads the
checked-out items and keeps a dedicated calendar holding one all-day event
per due date. Events for returned or renewed items are removed.`,
		Version:      Version,
		SilenceUsage: true,
		RunE:         runSync,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.config/library-due-dates/config.yaml)")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")
	addDryRunFlag(cmd)

	cmd.AddCommand(
		newSyncCmd(),
		newLoansCmd(),
		newExportCmd(),
		newStatusCmd(),
		newConfigCmd(),
	)

	return cmd
}

func addDryRunFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Show the changes without touching the calendar")
}

// outputFormat validates --format
func outputFormat() (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}
	return format, nil
}

// loadConfig reads and validates configuration, then sets up logging
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if flagVerbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.NewWithFormat(level, logger.Format(cfg.Log.Format), os.Stderr))

	return cfg, nil
}

func fetcherFromConfig(cfg *config.Config) scraper.Fetcher {
	sc := scraper.Config{
		LoginURL:   cfg.Library.LoginURL,
		LoginTitle: cfg.Library.LoginTitle,
		Credentials: scraper.Credentials{
			Username: cfg.Library.Username,
			PIN:      cfg.Library.PIN,
		},
		Timeout: cfg.Library.Timeout,
	}

	if cfg.Library.Fetcher == config.FetcherBrowser {
		return scraper.NewBrowser(sc)
	}
	return scraper.New(sc)
}

func storeFromConfig(ctx context.Context, cfg *config.Config, readOnly bool) (calendar.Store, error) {
	switch cfg.Calendar.Backend {
	case config.BackendGoogle:
		creds, err := config.ExpandPath(cfg.Calendar.GoogleCredentials)
		if err != nil {
			return nil, err
		}
		store, err := calendar.NewGoogleStore(ctx, cfg.Calendar.Name, option.WithCredentialsFile(creds))
		if err != nil {
			return nil, err
		}
		store.ReadOnly = readOnly
		return store, nil
	case config.BackendMemory:
		return calendar.NewMemoryStore(), nil
	case config.BackendICS:
		path, err := config.ExpandPath(cfg.Calendar.ICSPath)
		if err != nil {
			return nil, err
		}
		store := calendar.NewICSStore(path, cfg.Calendar.Name)
		store.ReadOnly = readOnly
		return store, nil
	default:
		return nil, fmt.Errorf("unknown calendar backend %q", cfg.Calendar.Backend)
	}
}

// Execute runs the CLI
func Execute() {
	err := NewRootCmd().ExecuteContext(context.Background())
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, scraper.ErrMissingCredentials) {
			fmt.Fprintln(os.Stderr, "Set library.username and library.pin, DUEDATES_LIBRARY_USERNAME and DUEDATES_LIBRARY_PIN, or library.credentials_file.")
		}
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}
