package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/library-due-dates/internal/calendar"
	"github.com/pfrederiksen/library-due-dates/internal/config"
	"github.com/pfrederiksen/library-due-dates/internal/event"
	"github.com/pfrederiksen/library-due-dates/internal/logger"
	"github.com/pfrederiksen/library-due-dates/internal/metrics"
	"github.com/pfrederiksen/library-due-dates/internal/runner"
	"github.com/pfrederiksen/library-due-dates/internal/storage"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the calendar with the checked-out items",
		Args:  cobra.NoArgs,
		RunE:  runSync,
	}
	addDryRunFlag(cmd)
	return cmd
}

// runSync is the main command logic
func runSync(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	cal, err := openStore(cmd.Context(), cfg, flagDryRun)
	if err != nil {
		return fmt.Errorf("opening calendar: %w", err)
	}

	m := metrics.New()
	r := runner.New(newFetcher(cfg), cal, m)

	report, runErr := r.Run(cmd.Context(), runner.Options{
		DryRun:   flagDryRun,
		Calendar: cfg.Calendar.Name,
	})

	if !flagDryRun {
		if err := store.SaveRun(report); err != nil {
			logger.Error("Saving run report failed", logger.Fields{"data_dir": store.Dir()}, err)
		}
	}

	if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Error("Writing metrics failed", logger.Fields{"path": cfg.MetricsFile}, err)
	}

	if err := WriteReport(cmd.OutOrStdout(), report, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return runErr
}

func newLoansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List checked-out items and their due dates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}
			order, err := parseSortOrder(flagSort)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			records, err := runner.New(newFetcher(cfg), nil, nil).Loans(cmd.Context())
			if err != nil {
				return err
			}

			sortLoans(records, order)
			return WriteLoans(cmd.OutOrStdout(), records, format)
		},
	}

	cmd.Flags().StringVar(&flagSort, "sort", string(SortByDue), "Sort order: due or title")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the due-date events as an iCalendar feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			records, err := runner.New(newFetcher(cfg), nil, nil).Loans(cmd.Context())
			if err != nil {
				return err
			}

			feed := calendar.Feed(cfg.Calendar.Name, event.FromLoans(records))

			if flagOutput == "" || flagOutput == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), feed)
				return err
			}

			path, err := config.ExpandPath(flagOutput)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(feed), 0644); err != nil {
				return fmt.Errorf("writing feed: %w", err)
			}
			logger.Info("Exported calendar feed", logger.Fields{
				"path":   path,
				"events": len(records),
			})
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write the feed to a file instead of stdout")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the result of the last sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := storage.New(cfg.DataDir)
			if err != nil {
				return fmt.Errorf("initializing storage: %w", err)
			}

			report, err := store.LoadLastRun()
			if errors.Is(err, storage.ErrNoRuns) {
				fmt.Fprintln(cmd.OutOrStdout(), "No sync has been recorded yet.")
				return nil
			}
			if err != nil {
				return err
			}

			return WriteStatus(cmd.OutOrStdout(), report, format)
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flagConfig
			if path == "" {
				path = config.DefaultPath()
			}

			if config.Exists(path) && !flagForce {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := config.Save(path, config.Default()); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&flagForce, "force", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
