package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"NewsAggregator/internal/app"
	"NewsAggregator/internal/config"
	"NewsAggregator/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	serve := func(cmd *cobra.Command, _ []string) error {
		cfg := config.Load(configPath)
		logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

		application := app.New(cmd.Context(), cfg, logger)
		if err := application.Run(cmd.Context()); err != nil {
			logger.Error("application stopped", "error", err)
			return err
		}
		return nil
	}

	root := &cobra.Command{
		Use:           "newsaggregator",
		Short:         "RSS news aggregator with AI classification",
		Long:          "newsaggregator polls RSS/Atom feeds, deduplicates and scores new articles, and serves them over a JSON API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file (defaults to $NEWS_AGGREGATOR_CONFIG)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Fetch on startup, then serve the API until interrupted",
		RunE:  serve,
	})

	root.AddCommand(&cobra.Command{
		Use:   "fetch",
		Short: "Run one fetch cycle, persist the results and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load(configPath)
			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

			report, err := app.New(cmd.Context(), cfg, logger).FetchOnce(cmd.Context())
			if err != nil {
				logger.Error("fetch failed", "error", err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sources=%d fetched=%d considered=%d duplicates=%d added=%d\n",
				report.Sources, report.Fetched, report.Considered, report.Duplicates, report.Added)
			return nil
		},
	})

	return root
}
