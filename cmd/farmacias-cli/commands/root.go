package commands

import (
	"context"
	"fmt"
	"os"

	"farmacias-turno/internal/components/telemetry"
	"farmacias-turno/internal/config"
	"farmacias-turno/internal/farmacias"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath string
	strategy   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "farmacias-cli",
	Short: "farmacias-cli queries the pharmacies on duty list and diagnoses the upstream.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The configuration file to read, a bare name is also searched for in parent directories.")
	rootCmd.PersistentFlags().StringVar(&strategy, "strategy", "", "Overrides the configured acquisition strategy (direct, rendered or escalate).")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadNearest(configPath, os.LookupEnv)
	if err != nil {
		return config.Config{}, err
	}
	if strategy != "" {
		cfg.Strategy = strategy
		err = cfg.Validate()
		if err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

func loadPipeline() (farmacias.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return farmacias.Pipeline{}, err
	}
	tel := telemetry.SlogAPI{}
	acquirer, err := config.NewAcquirer(cfg, tel)
	if err != nil {
		return farmacias.Pipeline{}, err
	}
	return farmacias.NewPipeline(cfg.PipelineConfig(), acquirer, tel), nil
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(cmd.OutOrStdout())
	return t
}
