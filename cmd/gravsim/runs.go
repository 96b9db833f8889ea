package main

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/gravsim/internal/analysis"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/export"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/snapshot"
	"github.com/san-kum/gravsim/internal/storage"
	"github.com/san-kum/gravsim/internal/viz"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := storage.New(dataDir).List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTIME\tBODIES\tSTEPS\tDT\tINTEG\tEVAL\tDRIFT\tSTATUS")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%g\t%s\t%s\t%.2e\t%s\n",
					run.ID[:8],
					run.Name,
					run.Timestamp.Local().Format("2006-01-02 15:04:05"),
					run.Bodies,
					run.Steps,
					run.Dt,
					run.Integrator,
					run.Evaluator,
					run.EnergyDrift,
					run.Status,
				)
			}
			return w.Flush()
		},
	}
}

// loadRun reads the metadata and samples of a stored run.
func loadRun(runID string) (*storage.RunMetadata, []*snapshot.Snapshot, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	samples, err := st.LoadSamples(meta.ID, radiusScaleFor(meta.Name))
	if err != nil {
		return nil, nil, err
	}
	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("run %s has no samples", meta.ID)
	}
	return meta, samples, nil
}

func radiusScaleFor(name string) float64 {
	if p := config.GetPreset(name); p != nil {
		return p.RadiusScale
	}
	return snapshot.DefaultRadiusScale
}

func newPlotCmd() *cobra.Command {
	var width, height int
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot diagnostics and trajectories of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, samples, err := loadRun(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("run: %s\n", meta.ID)
			fmt.Printf("name: %s\n", meta.Name)
			fmt.Printf("samples: %d\n\n", len(samples))

			energy := make([]float64, len(samples))
			momentum := make([]float64, len(samples))
			bodies := make([]float64, len(samples))
			for i, s := range samples {
				energy[i] = metrics.TotalEnergy(s.All(), meta.G, meta.Softening)
				p := metrics.Momentum(s.All())
				momentum[i] = p.X*p.X + p.Y*p.Y
				bodies[i] = float64(s.Len())
			}

			for _, series := range []struct {
				data    []float64
				caption string
			}{
				{energy, "total energy vs sample"},
				{momentum, "|P|² vs sample"},
				{bodies, "live bodies vs sample"},
			} {
				fmt.Println(asciigraph.Plot(finite(series.data),
					asciigraph.Height(10),
					asciigraph.Width(width),
					asciigraph.Caption(series.caption),
				))
				fmt.Println()
			}

			if plot := analysis.TrajectoryASCII(samples, width, height); plot != "" {
				fmt.Println("trajectories:")
				fmt.Println(plot)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "plot width")
	cmd.Flags().IntVar(&height, "height", 24, "trajectory plot height")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run with its samples as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}
}

func newExportCSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export the samples of a run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportCSV(os.Stdout, args[0])
		},
	}
}

func newExportSVGCmd() *cobra.Command {
	var out, theme string
	var width, height int
	var paths bool
	cmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render the final state of a run, or its trajectories, as SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, samples, err := loadRun(args[0])
			if err != nil {
				return err
			}

			t := viz.GetTheme(theme)
			var svg string
			if paths {
				svg = export.TrajectoriesSVG(samples, t, width, height)
			} else {
				svg = export.SnapshotSVG(samples[len(samples)-1], t, width, height)
			}

			if out == "" || out == "-" {
				_, err = fmt.Print(svg)
				return err
			}
			if err := os.WriteFile(out, []byte(svg), 0644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&theme, "theme", viz.Themes[0].Name, fmt.Sprintf("color theme %v", viz.ThemeNames()))
	cmd.Flags().IntVar(&width, "width", 800, "image width")
	cmd.Flags().IntVar(&height, "height", 800, "image height")
	cmd.Flags().BoolVar(&paths, "trajectories", false, "draw every sampled position as a path")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var lyapunov bool
	var lyapunovSteps int
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "measure orbital periods of a run and compare them to Kepler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, samples, err := loadRun(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("orbit analysis: %s (%s)\n\n", meta.ID, meta.Name)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "BODY\tPERIOD\tKEPLER\tERROR\tREVS\tA\tE")
			for _, b := range samples[0].Bodies {
				orbit, err := analysis.MeasureOrbit(samples, b.ID, meta.G)
				if err != nil {
					// Escapers and bodies removed mid-run have no period.
					fmt.Fprintf(w, "%d\t-\t-\t-\t0\t-\t-\n", b.ID)
					continue
				}
				fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%.2f%%\t%d\t%.4f\t%.4f\n",
					b.ID, orbit.Period, orbit.KeplerPeriod, 100*orbit.RelativeError(),
					orbit.Revolutions, orbit.SemiMajorAxis, orbit.Eccentricity)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(samples) > 4 {
				first := samples[0].Bodies[0].ID
				series := make([]float64, 0, len(samples))
				for _, s := range samples {
					for _, b := range s.Bodies {
						if b.ID == first {
							series = append(series, b.Pos.X)
						}
					}
				}
				interval := samples[1].Time - samples[0].Time
				ps := analysis.PowerSpectrum(series)
				fmt.Println()
				fmt.Println(asciigraph.Plot(ps[:max(len(ps)/4, 1)],
					asciigraph.Height(12),
					asciigraph.Width(80),
					asciigraph.Caption(fmt.Sprintf("power spectrum (body %d, x)", first)),
				))
				if period, err := analysis.DominantPeriod(series, interval); err == nil {
					fmt.Printf("\ndominant period: %.4f\n", period)
				}
			}

			if lyapunov {
				cfg := config.GetPreset(meta.Name)
				if cfg == nil {
					return fmt.Errorf("lyapunov needs the initial state; %q is not a preset", meta.Name)
				}
				cfg.G, cfg.Softening, cfg.Dt = meta.G, meta.Softening, meta.Dt
				cfg.Integrator, cfg.Evaluator, cfg.Seed = meta.Integrator, meta.Evaluator, meta.Seed
				if meta.Theta > 0 {
					cfg.Theta = meta.Theta
				}
				lambda, err := analysis.LyapunovExponent(cfg.Build, analysis.LyapunovConfig{
					Perturbation: 1e-8,
					Steps:        lyapunovSteps,
				})
				if err != nil && !errors.Is(err, dynamo.ErrNumericalInstability) {
					return err
				}
				if err != nil {
					fmt.Printf("lyapunov: diverged (%v)\n", err)
				} else {
					fmt.Printf("lyapunov exponent: %.4f\n", lambda)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&lyapunov, "lyapunov", false, "estimate the largest lyapunov exponent from the preset")
	cmd.Flags().IntVar(&lyapunovSteps, "lyapunov-steps", 10000, "steps for the lyapunov estimate")
	return cmd
}

func sortedKeys(m map[string]float64) []string {
	return slices.Sorted(maps.Keys(m))
}
