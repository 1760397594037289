package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"ytscrape"
	"ytscrape/internal/config"
	"ytscrape/internal/logging"
)

type rootFlags struct {
	config   string
	channel  string
	backend  string
	logLevel string
	workers  int
}

// newRootCommand builds the ytscrape command. Client options are handed to
// the Data API service.
func newRootCommand(clientOpts ...option.ClientOption) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "ytscrape",
		Short: "Collect a YouTube channel and its videos into local datasets",
		Long: `ytscrape resolves a channel by name, collects its metadata and the
details of every uploaded video, and merges them into the channel and video
datasets. Reruns update rows in place instead of duplicating them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, flags, clientOpts)
		},
	}

	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&flags.channel, "channel", "", "Channel to collect (prompted for when omitted)")
	cmd.Flags().StringVar(&flags.backend, "backend", "", "Storage backend: csv or sqlite")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Concurrent video detail fetches")

	return cmd
}

func runScrape(cmd *cobra.Command, flags rootFlags, clientOpts []option.ClientOption) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Color:  logging.ShouldColorize(os.Stderr),
	})
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	if cfg.Source != "" {
		logger.Debug("configuration loaded", zap.String("file", cfg.Source))
	}

	query := flags.channel
	if query == "" {
		query, err = promptChannel(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	scraper, err := ytscrape.Open(ctx, cfg, logger, clientOpts...)
	if err != nil {
		return err
	}
	defer scraper.Close()

	report, err := scraper.Run(ctx, query)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(report))
	if len(report.Failures) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), renderFailures(report.Failures))
	}
	return nil
}

// loadConfig reads the configuration and applies command-line overrides,
// which take priority over the environment.
func loadConfig(flags rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.config)
	if err != nil {
		return nil, err
	}
	if flags.backend != "" {
		cfg.Storage.Backend = flags.backend
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.workers != 0 {
		cfg.YouTube.Workers = flags.workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
