package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reviewharvest/lib/telemetry"
	"reviewharvest/services/harvest"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string

	config harvest.Config
	tel    telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "harvest",
	Short: "harvest crawls products, reviews and testimonials from a shop and links them into one dataset.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		var err error
		tel, err = telemetry.SetupFromEnv(cmd.Context(), "harvest")
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}

		config, err = harvest.LoadConfig(configPath)
		if err != nil {
			return err
		}
		slog.Debug("loaded config", "base_url", config.BaseUrl, "data_dir", config.DataDir)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(
		&configPath, "config", "c", "",
		"path to a harvest.json5 config, by default it is searched for from the working directory upwards",
	)
}

// execute runs the command line in args. telemetry is flushed however the
// command ended, cobra skips post run hooks when a command fails.
func execute(ctx context.Context, args []string) error {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)

	shutdownErr := tel.Shutdown(context.Background())
	if shutdownErr != nil {
		slog.Warn("failed to flush telemetry", "err", shutdownErr)
	}
	tel = telemetry.Telemetry{}
	return err
}

func ExecuteContext(ctx context.Context) {
	err := execute(ctx, os.Args[1:])
	if err != nil {
		slog.Error("harvest failed", "err", err)
		os.Exit(1)
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
