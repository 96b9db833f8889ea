package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/integrators"
	"github.com/san-kum/gravsim/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir   string
	logLevel  string
	logFormat string
)

// simFlags are the run parameters shared by every command that builds an
// engine. Set flags override the config file, which overrides the preset.
type simFlags struct {
	configFile  string
	dt          float64
	softening   float64
	g           float64
	duration    float64
	integrator  string
	evaluator   string
	theta       float64
	seed        int64
	timeScale   float64
	maxCatchUp  int
	sampleEvery int64
}

func (f *simFlags) register(cmd *cobra.Command) {
	def := config.DefaultConfig()
	fs := cmd.Flags()
	fs.StringVar(&f.configFile, "config", "", "config file path (yaml)")
	fs.Float64Var(&f.dt, "dt", def.Dt, "timestep")
	fs.Float64Var(&f.softening, "softening", def.Softening, "softening length")
	fs.Float64Var(&f.g, "g", def.G, "gravitational constant")
	fs.Float64Var(&f.duration, "time", def.Duration, "simulated duration")
	fs.StringVar(&f.integrator, "integrator", def.Integrator, fmt.Sprintf("integrator %v", integrators.Names()))
	fs.StringVar(&f.evaluator, "evaluator", def.Evaluator, fmt.Sprintf("force evaluator %v", compute.Names()))
	fs.Float64Var(&f.theta, "theta", def.Theta, "barnes-hut opening angle")
	fs.Int64Var(&f.seed, "seed", def.Seed, "random seed for generated bodies")
	fs.Float64Var(&f.timeScale, "time-scale", def.TimeScale, "simulated time per wall-clock second")
	fs.IntVar(&f.maxCatchUp, "max-catch-up", def.MaxCatchUp, "most steps taken per clock poll")
	fs.Int64Var(&f.sampleEvery, "sample-every", 10, "steps between stored samples")
}

// resolve builds the configuration for a command. name is the preset from
// the command line, if any; fallback is used when neither a preset nor a
// config file is given.
func (f *simFlags) resolve(cmd *cobra.Command, name, fallback string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case f.configFile != "":
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	case name != "" || fallback != "":
		if name == "" {
			name = fallback
		}
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	default:
		return nil, fmt.Errorf("a preset or --config is required (presets: %v)", config.ListPresets())
	}

	changed := cmd.Flags().Changed
	if changed("dt") {
		cfg.Dt = f.dt
	}
	if changed("softening") {
		cfg.Softening = f.softening
	}
	if changed("g") {
		cfg.G = f.g
	}
	if changed("time") {
		cfg.Duration = f.duration
	}
	if changed("integrator") {
		cfg.Integrator = f.integrator
	}
	if changed("evaluator") {
		cfg.Evaluator = f.evaluator
	}
	if changed("theta") {
		cfg.Theta = f.theta
	}
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("time-scale") {
		cfg.TimeScale = f.timeScale
	}
	if changed("max-catch-up") {
		cfg.MaxCatchUp = f.maxCatchUp
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	return logger.New(logger.Config{Level: logLevel, Encoding: logFormat})
}

// newFileLogger is for presenters that own the terminal.
func newFileLogger() (*zap.Logger, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	return logger.New(logger.Config{
		Level:       logLevel,
		Encoding:    "json",
		OutputPaths: []string{filepath.Join(dataDir, "gravsim.log")},
	})
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "gravsim",
		Short:        "2D n-body gravity simulator",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".gravsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log encoding (console, json)")

	rootCmd.AddCommand(
		newRunCmd(),
		newLiveCmd(),
		newWindowCmd(),
		newServeCmd(),
		newListCmd(),
		newPlotCmd(),
		newExportCmd(),
		newExportCSVCmd(),
		newExportSVGCmd(),
		newAnalyzeCmd(),
		newPresetsCmd(),
		newBenchCmd(),
		newCompareCmd(),
		newScenarioCmd(),
		newSweepCmd(),
		newMonteCarloCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
