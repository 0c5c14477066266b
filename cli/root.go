package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"bikeshare-risk/config"
	"bikeshare-risk/dataset"
)

// Execute runs the CLI.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// app carries what every subcommand needs once flags and configuration are
// resolved.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		logFormat  string
	)
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "bikerisk",
		Short:         "Bike-share trip and crash dataset tools",
		Long:          "Load and normalize bike-share trips and vehicle crashes, join them by proximity and rasterize crash risk.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.InitConfig(configPath); err != nil {
				return err
			}
			cfg := config.Cfg
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Log.Format = logFormat
			}
			a.cfg = cfg
			a.logger = newLogger(cmd.ErrOrStderr(), cfg)
			slog.SetDefault(a.logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(newTripsCmd(a))
	rootCmd.AddCommand(newCrashesCmd(a))
	rootCmd.AddCommand(newJoinCmd(a))
	rootCmd.AddCommand(newRasterCmd(a))

	return rootCmd
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) loader() (*dataset.Loader, error) {
	return dataset.FromConfig(a.cfg, a.logger)
}
