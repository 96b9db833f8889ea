package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/integrators"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/sim"
	"github.com/san-kum/gravsim/internal/snapshot"
	"github.com/san-kum/gravsim/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	var flags simFlags
	var noSave bool
	cmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a headless simulation and store the samples",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, argOr(args, 0), "binary")
			if err != nil {
				return err
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			engine, err := cfg.Build()
			if err != nil {
				return err
			}

			s := sim.New(engine)
			s.AddMetric(metrics.NewEnergy(cfg.G, cfg.Softening))
			s.AddMetric(metrics.NewEnergyDrift(cfg.G, cfg.Softening))
			s.AddMetric(metrics.NewMomentumDrift())

			fmt.Printf("running %s: %d bodies, %s, %s\n", cfg.Name, engine.Store().Len(), cfg.Integrator, cfg.Evaluator)
			log.Info("batch run started",
				zap.String("name", cfg.Name),
				zap.Int64("steps", cfg.Steps()),
				zap.Float64("dt", cfg.Dt),
			)
			start := time.Now()
			result, runErr := s.Run(cmd.Context(), sim.Config{
				Steps:       cfg.Steps(),
				SampleEvery: flags.sampleEvery,
				RadiusScale: cfg.RadiusScale,
			})
			if result == nil {
				return runErr
			}
			elapsed := time.Since(start)
			if runErr != nil {
				log.Error("batch run failed", zap.Error(runErr), zap.Int64("steps", result.StepsTaken))
			}

			fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
			if !noSave {
				st := storage.New(dataDir)
				if err := st.Init(); err != nil {
					return err
				}
				runID, err := st.Save(cfg, result, runErr)
				if err != nil {
					return err
				}
				fmt.Printf("run id: %s\n", runID)
			}
			fmt.Printf("steps: %d\n", result.StepsTaken)
			fmt.Printf("samples: %d\n", len(result.Samples))
			fmt.Printf("energy drift: %.3e\n", result.EnergyDrift)
			fmt.Printf("momentum drift: %.3e\n", result.MomentumDrift)
			fmt.Println("\nmetrics:")
			for _, name := range sortedKeys(result.Metrics) {
				fmt.Printf("  %s: %.6g\n", name, result.Metrics[name])
			}
			return runErr
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list the built-in presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tBODIES\tINTEG\tEVAL\tDT\tDURATION")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				bodies := fmt.Sprint(len(cfg.Bodies))
				if cfg.Generator != nil {
					bodies = fmt.Sprintf("%d+%d %s", len(cfg.Bodies), cfg.Generator.Count, cfg.Generator.Kind)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%g\n",
					name, bodies, cfg.Integrator, cfg.Evaluator, cfg.Dt, cfg.Duration)
			}
			return w.Flush()
		},
	}
}

func newBenchCmd() *cobra.Command {
	var sizes []int
	var steps int
	var seed int64
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "time the force evaluators on random clusters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("%w: steps must be positive", dynamo.ErrInvalidParams)
			}
			fmt.Printf("benchmarking %v over %d steps\n\n", compute.Names(), steps)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "EVALUATOR\tBODIES\tSTEPS\tTIME\tSTEPS/SEC\tENERGY DRIFT")

			for _, n := range sizes {
				for _, name := range compute.Names() {
					cfg := config.DefaultConfig()
					cfg.Name = "bench"
					cfg.Seed = seed
					cfg.Softening = 0.1
					cfg.Evaluator = name
					cfg.Duration = float64(steps) * cfg.Dt
					cfg.Generator = &config.GeneratorConfig{Kind: "random", Count: n, Radius: 5, Mass: 1}

					engine, err := cfg.Build()
					if err != nil {
						return err
					}
					start := time.Now()
					result, err := sim.Simulate(cmd.Context(), engine, int64(steps), int64(steps))
					if err != nil {
						return fmt.Errorf("%s with %d bodies: %w", name, n, err)
					}
					elapsed := time.Since(start)

					fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%.0f\t%.2e\n",
						name, n, result.StepsTaken, elapsed.Round(time.Microsecond),
						float64(result.StepsTaken)/elapsed.Seconds(), result.EnergyDrift)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntSliceVar(&sizes, "bodies", []int{100, 500, 2000}, "cluster sizes")
	cmd.Flags().IntVar(&steps, "steps", 20, "steps per measurement")
	cmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	return cmd
}

func newCompareCmd() *cobra.Command {
	var flags simFlags
	cmd := &cobra.Command{
		Use:   "compare [preset] [integrator...]",
		Short: "compare energy conservation of integrators on one preset",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args[1:]
			if len(names) == 0 {
				names = integrators.Names()
			}
			base, err := flags.resolve(cmd, args[0], "")
			if err != nil {
				return err
			}

			fmt.Printf("comparing %s on %s (dt=%g, t=%g)\n\n", strings.Join(names, ", "), base.Name, base.Dt, base.Duration)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "INTEGRATOR\tSTEPS\tTIME\tENERGY DRIFT\tMOMENTUM DRIFT\tSTATUS")

			series := make([][]float64, 0, len(names))
			for _, name := range names {
				cfg := base.Clone()
				cfg.Integrator = name
				engine, err := cfg.Build()
				if err != nil {
					return err
				}

				var e0 float64
				var curve []float64
				observer := sim.ObserverFunc(func(s *snapshot.Snapshot) {
					e := metrics.TotalEnergy(s.All(), cfg.G, cfg.Softening)
					if len(curve) == 0 {
						e0 = e
					}
					curve = append(curve, relErr(e, e0))
				})

				start := time.Now()
				result, runErr := sim.Simulate(cmd.Context(), engine, cfg.Steps(), max(flags.sampleEvery, 1), observer)
				if result == nil {
					return runErr
				}
				status := "ok"
				if runErr != nil {
					if !errors.Is(runErr, dynamo.ErrNumericalInstability) {
						return runErr
					}
					status = "faulted"
				}
				fmt.Fprintf(w, "%s\t%d\t%v\t%.3e\t%.3e\t%s\n",
					name, result.StepsTaken, time.Since(start).Round(time.Millisecond),
					result.EnergyDrift, result.MomentumDrift, status)
				series = append(series, finite(curve))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Println()
			fmt.Println(asciigraph.PlotMany(series,
				asciigraph.Height(12),
				asciigraph.Width(80),
				asciigraph.Caption("relative energy error: "+strings.Join(names, ", ")),
				asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green, asciigraph.Blue, asciigraph.Yellow, asciigraph.Cyan),
			))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// finite replaces non-finite points so a faulted curve still plots.
func finite(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			x = 0
		}
		out[i] = x
	}
	if len(out) == 0 {
		out = append(out, 0)
	}
	return out
}

func relErr(e, e0 float64) float64 {
	if e0 == 0 {
		return 0
	}
	return math.Abs(e-e0) / math.Abs(e0)
}

func argOr(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
