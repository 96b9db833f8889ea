package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/gui"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/sim"
	"github.com/san-kum/gravsim/internal/snapshot"
	"github.com/san-kum/gravsim/internal/stream"
	"github.com/san-kum/gravsim/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// newRunner assembles the interactive pipeline for cfg: engine, clock,
// publisher seeded with the initial state, and the runner that owns them.
func newRunner(cfg *config.Config, log *zap.Logger, c *metrics.Collectors) (*sim.Runner, error) {
	engine, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	clk, err := cfg.Clock()
	if err != nil {
		return nil, err
	}
	pub := snapshot.NewPublisher(snapshot.Capture(engine, cfg.RadiusScale))
	return sim.NewRunner(engine, clk, pub,
		sim.WithLogger(log),
		sim.WithCollectors(c),
		sim.WithTickHz(cfg.TickHz),
		sim.WithRadiusScale(cfg.RadiusScale),
	)
}

// present runs the simulation on its own goroutine while show blocks on
// the calling one. The runner is stopped when show returns; a fault is
// reported after the presenter has released the terminal or window.
func present(ctx context.Context, r *sim.Runner, show func() error) error {
	go r.Run(ctx)
	showErr := show()
	r.Stop()
	<-r.Done()
	if showErr != nil {
		return showErr
	}
	if err := r.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func vizOptions(cfg *config.Config, theme string) viz.Options {
	return viz.Options{
		Name:    cfg.Name,
		Params:  cfg.EngineParams(),
		Theme:   theme,
		GIFPath: cfg.Name + ".gif",
	}
}

func newLiveCmd() *cobra.Command {
	var flags simFlags
	var theme string
	cmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a simulation in the terminal; without a preset a picker is shown",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *config.Config
			var err error
			if len(args) == 0 && flags.configFile == "" {
				cfg, err = viz.PickPreset()
				if err != nil || cfg == nil {
					return err
				}
			} else if cfg, err = flags.resolve(cmd, argOr(args, 0), ""); err != nil {
				return err
			}

			log, err := newFileLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			r, err := newRunner(cfg, log, nil)
			if err != nil {
				return err
			}
			return present(cmd.Context(), r, func() error {
				return viz.Run(r, r.Publisher(), vizOptions(cfg, theme))
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&theme, "theme", viz.Themes[0].Name, fmt.Sprintf("color theme %v", viz.ThemeNames()))
	return cmd
}

func newWindowCmd() *cobra.Command {
	var flags simFlags
	var theme string
	cmd := &cobra.Command{
		Use:   "window [preset]",
		Short: "run a simulation in a desktop window",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, argOr(args, 0), "disk")
			if err != nil {
				return err
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			r, err := newRunner(cfg, log, nil)
			if err != nil {
				return err
			}
			return present(cmd.Context(), r, func() error {
				gui.Run(r, r.Publisher(), vizOptions(cfg, theme))
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&theme, "theme", viz.Themes[0].Name, fmt.Sprintf("color theme %v", viz.ThemeNames()))
	return cmd
}

func newServeCmd() *cobra.Command {
	var flags simFlags
	var addr string
	var fps float64
	var anyOrigin bool
	cmd := &cobra.Command{
		Use:   "serve [preset]",
		Short: "run a simulation and stream it to browsers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, argOr(args, 0), "disk")
			if err != nil {
				return err
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			r, err := newRunner(cfg, log, metrics.NewCollectors(reg))
			if err != nil {
				return err
			}
			srv := stream.NewServer(r.Publisher(),
				stream.WithLogger(log),
				stream.WithGatherer(reg),
				stream.WithFPS(fps),
				stream.WithAllowedOrigin(anyOrigin),
			)

			fmt.Printf("streaming %s on http://%s\n", cfg.Name, addr)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				// A fault leaves the last snapshot on display; only the
				// server shutting down ends the command.
				if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Warn("simulation ended", zap.Error(err))
				}
				return nil
			})
			g.Go(func() error {
				defer r.Stop()
				return srv.ListenAndServe(ctx, addr)
			})
			return g.Wait()
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().Float64Var(&fps, "fps", stream.DefaultFPS, "frames pushed per second")
	cmd.Flags().BoolVar(&anyOrigin, "any-origin", false, "accept websocket connections from any origin")
	return cmd
}
