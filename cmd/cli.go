package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sonyaz93/Divaparadise-ai/internal/analysis"
	"github.com/sonyaz93/Divaparadise-ai/internal/config"
	applog "github.com/sonyaz93/Divaparadise-ai/internal/log"
	"github.com/sonyaz93/Divaparadise-ai/internal/pipeline"
	"github.com/sonyaz93/Divaparadise-ai/internal/transport"
	"github.com/sonyaz93/Divaparadise-ai/pkg/build"
	"github.com/sonyaz93/Divaparadise-ai/pkg/core"
	"github.com/spf13/cobra"
)

// options collects the persistent flags and the configuration they
// produce before any subcommand runs.
type options struct {
	configPath string
	logLevel   string
	gain       float64
	numBars    int

	cfg *config.Config
}

// Execute builds the command tree and runs it with args.
func Execute(ctx context.Context, args []string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// NewRootCmd returns the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	buildInfo := build.GetBuildFlags()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Configuration
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to a YAML config file. Default is "+config.DefaultConfigFile+" when present")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel,
		"Log level (debug, info, warn, error)")

	// Engine Configuration
	rootCmd.PersistentFlags().Float64VarP(&opts.gain, "gain", "g", config.DefaultGain,
		"Linear gain applied before the limiter, clamped to [0, 2]")
	rootCmd.PersistentFlags().IntVarP(&opts.numBars, "bars", "b", config.DefaultNumBars,
		"Number of spectrum bars per frame")

	rootCmd.AddCommand(
		newProcessCmd(opts),
		newSpectrumCmd(opts),
		newServeCmd(opts),
	)

	return rootCmd
}

// load reads the config file and environment, then applies any flags the
// user set explicitly.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("gain") {
		cfg.Engine.Gain = o.gain
	}
	if flags.Changed("bars") {
		cfg.Engine.NumBars = o.numBars
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := applog.ParseLevel(cfg.LogLevel)
	applog.SetLevel(level)

	o.cfg = cfg
	return nil
}

// newPipeline builds an engine, an analyser and a pipeline from cfg.
func newPipeline(cfg *config.Config, t transport.Transport) (*pipeline.Pipeline, error) {
	window, err := analysis.ParseWindowFunc(cfg.Analysis.Window)
	if err != nil {
		return nil, err
	}
	analyser, err := analysis.NewAnalyser(analysis.Options{
		FFTSize:     cfg.Analysis.FFTSize,
		Window:      window,
		Smoothing:   cfg.Analysis.Smoothing,
		MinDecibels: cfg.Analysis.MinDecibels,
		MaxDecibels: cfg.Analysis.MaxDecibels,
	})
	if err != nil {
		return nil, err
	}

	engine := core.New()
	engine.SetGain(cfg.Engine.Gain)

	return pipeline.New(engine, analyser, t, pipeline.Options{
		NumBars:       cfg.Engine.NumBars,
		GateEnabled:   cfg.Gate.Enabled,
		GateThreshold: cfg.Gate.Threshold,
		Decay:         cfg.Gate.Decay,
	})
}

// formatBars renders bars with four decimals, separated by spaces.
func formatBars(bars []float32) string {
	var sb strings.Builder
	for i, b := range bars {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatFloat(float64(b), 'f', 4, 32))
	}
	return sb.String()
}
