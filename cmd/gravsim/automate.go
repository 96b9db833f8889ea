package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/gravsim/internal/automation"
	"github.com/san-kum/gravsim/internal/storage"
	"github.com/spf13/cobra"
)

func newScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the batch runs listed in a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			st := storage.New(dataDir)
			if err := st.Init(); err != nil {
				return err
			}

			fmt.Printf("scenario %s: %d runs\n", sc.Name, len(sc.Runs))
			if sc.Description != "" {
				fmt.Println(sc.Description)
			}
			fmt.Println()

			results, err := automation.RunScenario(cmd.Context(), sc, st, log)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tCONFIG\tINTEG\tEVAL\tSTEPS\tENERGY DRIFT\tRUN ID\tSTATUS")
			for i, r := range results {
				status := "ok"
				if r.Err != nil {
					status = r.Err.Error()
				}
				runID := "-"
				if r.RunID != "" {
					runID = r.RunID[:8]
				}
				var steps int64
				var drift float64
				if r.Result != nil {
					steps, drift = r.Result.StepsTaken, r.Result.EnergyDrift
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%.3e\t%s\t%s\n",
					i+1, r.Config.Name, r.Config.Integrator, r.Config.Evaluator, steps, drift, runID, status)
			}
			if ferr := w.Flush(); ferr != nil {
				return ferr
			}
			return err
		},
	}
}

func newSweepCmd() *cobra.Command {
	var flags simFlags
	var param string
	var lo, hi float64
	var points int
	cmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "run a preset across a range of one parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := flags.resolve(cmd, argOr(args, 0), "binary")
			if err != nil {
				return err
			}
			sweep := &automation.ParameterSweep{
				Base:   base,
				Param:  param,
				Min:    lo,
				Max:    hi,
				Points: points,
			}

			fmt.Printf("sweeping %s of %s from %g to %g (%d points)\n\n", param, base.Name, lo, hi, points)
			results, err := automation.RunSweep(cmd.Context(), sweep)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\tSTEPS\tENERGY DRIFT\tMOMENTUM DRIFT\tSTATUS\n", param)
			drift := make([]float64, 0, len(results))
			for _, p := range results {
				status := "ok"
				if p.Err != nil {
					status = "faulted"
				}
				fmt.Fprintf(w, "%g\t%d\t%.3e\t%.3e\t%s\n", p.Value, p.Steps, p.EnergyDrift, p.MomentumDrift, status)
				drift = append(drift, p.EnergyDrift)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(drift) > 1 {
				fmt.Println()
				fmt.Println(asciigraph.Plot(finite(drift),
					asciigraph.Height(10),
					asciigraph.Width(60),
					asciigraph.Caption("energy drift vs "+param),
				))
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&param, "param", "dt", fmt.Sprintf("parameter to vary %v", automation.SweepParams()))
	cmd.Flags().Float64Var(&lo, "min", 0.0005, "first value")
	cmd.Flags().Float64Var(&hi, "max", 0.01, "last value")
	cmd.Flags().IntVar(&points, "points", 8, "number of values")
	return cmd
}

func newMonteCarloCmd() *cobra.Command {
	var flags simFlags
	var trials int
	var perturbation, escape float64
	cmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "check how often a preset stays bound under perturbed initial positions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := flags.resolve(cmd, argOr(args, 0), "figure8")
			if err != nil {
				return err
			}

			fmt.Printf("monte carlo on %s: %d trials, perturbation %g, escape radius %g\n\n", base.Name, trials, perturbation, escape)
			results, err := automation.RunMonteCarlo(cmd.Context(), &automation.MonteCarloConfig{
				Base:         base,
				Perturbation: perturbation,
				Trials:       trials,
				Seed:         base.Seed,
				EscapeRadius: escape,
				SampleEvery:  flags.sampleEvery,
			})
			if err != nil {
				return err
			}

			stability := make([]float64, len(results))
			for i, r := range results {
				stability[i] = r.Stability
			}
			stable, unstable := automation.MonteCarloStats(results)
			fmt.Printf("stable: %d\n", stable)
			fmt.Printf("unstable: %d\n", unstable)
			fmt.Printf("mean stability: %.3f\n\n", automation.MeanStability(results))
			fmt.Println(asciigraph.Plot(stability,
				asciigraph.Height(8),
				asciigraph.Width(60),
				asciigraph.Caption("stability per trial"),
			))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&trials, "trials", 32, "number of trials")
	cmd.Flags().Float64Var(&perturbation, "perturbation", 0.01, "largest initial position offset")
	cmd.Flags().Float64Var(&escape, "escape-radius", 5, "distance from the centre of mass that counts as escaped")
	return cmd
}
