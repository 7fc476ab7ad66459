package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/ellipsim/internal/analysis"
	"github.com/san-kum/ellipsim/internal/config"
	"github.com/san-kum/ellipsim/internal/ensemble"
	"github.com/san-kum/ellipsim/internal/export"
	"github.com/san-kum/ellipsim/internal/geometry"
	"github.com/san-kum/ellipsim/internal/integrators"
	"github.com/san-kum/ellipsim/internal/particle"
	"github.com/san-kum/ellipsim/internal/sim"
	"github.com/san-kum/ellipsim/internal/storage"
	"github.com/san-kum/ellipsim/internal/viz"
)

var (
	dataDir    string
	configFile string

	semiA      float64
	semiB      float64
	numBodies  int
	mass       float64
	radius     float64
	vmax       float64
	seed       int64
	integrator string
	duration   float64
	dtMax      float64
	workers    int

	svgOut        string
	svgTrajectory bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ellipsim",
		Short: "collisional particle dynamics on an ellipse",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ellipsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store the result",
		RunE:  runSimulation,
	}
	addSetupFlags(runCmd)
	runCmd.Flags().Float64Var(&duration, "time", 10.0, "simulated duration")
	runCmd.Flags().Float64Var(&dtMax, "dt-max", 1e-3, "upper step bound")
	runCmd.Flags().IntVar(&workers, "workers", 0, "worker count (0 = all CPUs)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run with live terminal visualization",
		RunE:  runLive,
	}
	addSetupFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot conservation drift for a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "summary statistics for a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	svgCmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "export a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  svgRun,
	}
	svgCmd.Flags().StringVarP(&svgOut, "out", "o", "", "output file (default <run_id>.svg)")
	svgCmd.Flags().BoolVar(&svgTrajectory, "trajectory", false, "draw trajectories instead of the final frame")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a full run (metadata, trajectory, conservation) as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [integrator1] [integrator2] ...",
		Short: "compare integrators on the same ensemble",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	addSetupFlags(compareCmd)
	compareCmd.Flags().Float64Var(&duration, "time", 10.0, "simulated duration")
	compareCmd.Flags().Float64Var(&dtMax, "dt-max", 1e-3, "upper step bound")

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(args[0], config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, analyzeCmd, svgCmd, exportCmd, compareCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSetupFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&semiA, "a", config.DefaultA, "semi-major axis")
	cmd.Flags().Float64Var(&semiB, "b", config.DefaultB, "semi-minor axis")
	cmd.Flags().IntVar(&numBodies, "n", config.DefaultN, "particle count")
	cmd.Flags().Float64Var(&mass, "mass", config.DefaultMass, "particle mass")
	cmd.Flags().Float64Var(&radius, "radius", config.DefaultRadius, "particle radius")
	cmd.Flags().Float64Var(&vmax, "vmax", config.DefaultVMax, "velocity draw bound")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().StringVar(&integrator, "integrator", "forestruth", "integrator (forestruth, leapfrog)")
}

// loadConfig merges the optional config file under the CLI flags:
// flags the user set explicitly win over the file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("a") {
		cfg.A = semiA
	}
	if cmd.Flags().Changed("b") {
		cfg.B = semiB
	}
	if cmd.Flags().Changed("n") {
		cfg.Ensemble.N = numBodies
	}
	if cmd.Flags().Changed("mass") {
		cfg.Ensemble.Mass = mass
	}
	if cmd.Flags().Changed("radius") {
		cfg.Ensemble.Radius = radius
	}
	if cmd.Flags().Changed("vmax") {
		cfg.Ensemble.VMax = vmax
	}
	if cmd.Flags().Changed("seed") || cfg.Ensemble.Seed == 0 {
		cfg.Ensemble.Seed = seed
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("time") {
		cfg.Run.MaxTime = duration
	}
	if cmd.Flags().Changed("dt-max") {
		cfg.Run.DtMax = dtMax
	}
	if cmd.Flags().Changed("workers") {
		cfg.Run.Workers = workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup builds the ellipse, the initial ensemble, and the stepper
// from a merged configuration.
func setup(cfg *config.Config) (*geometry.Ellipse, *ensembleState, error) {
	e, err := geometry.New(cfg.A, cfg.B)
	if err != nil {
		return nil, nil, err
	}
	sys, err := ensemble.Generate(e, ensemble.Params{
		N:      cfg.Ensemble.N,
		Mass:   cfg.Ensemble.Mass,
		Radius: cfg.Ensemble.Radius,
		VMax:   cfg.Ensemble.VMax,
		Seed:   cfg.Ensemble.Seed,
	})
	if err != nil {
		return nil, nil, err
	}
	stepper, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, nil, err
	}
	return e, &ensembleState{sys: sys, stepper: stepper}, nil
}

type ensembleState struct {
	sys     *particle.System
	stepper integrators.Stepper
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	e, es, err := setup(cfg)
	if err != nil {
		return err
	}

	simulator, err := sim.New(cfg.SimConfig(), es.stepper)
	if err != nil {
		return err
	}

	fmt.Printf("running %d particles on a %gx%g ellipse (e=%.4f, %s)...\n",
		cfg.Ensemble.N, cfg.A, cfg.B, e.Eccentricity(), es.stepper.Name())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, runErr := simulator.Run(ctx, es.sys)
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "run ended early: %v\n", runErr)
	}

	runID, err := st.Save(es.stepper.Name(), cfg.Ensemble.Seed, result)
	if err != nil {
		return err
	}

	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("reason: %s\n", result.Reason)
	fmt.Printf("steps: %d in %v\n", result.StepsTaken, result.WallTime.Round(time.Millisecond))
	fmt.Printf("collisions: %d\n", result.TotalCollisions)
	fmt.Printf("energy error: %.3e\n", result.FinalEnergyError)
	fmt.Printf("momentum error: %.3e\n", result.FinalMomentumError)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	_, es, err := setup(cfg)
	if err != nil {
		return err
	}

	m := viz.NewModel(es.sys, es.stepper, cfg.SimConfig())
	p := tea.NewProgram(m)
	_, err = p.Run()
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tA\tB\tN\tINTEG\tCOLLISIONS\tE_ERR\tREASON")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%.3g\t%.3g\t%d\t%s\t%d\t%.2e\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.A,
			run.B,
			run.N,
			run.Integrator,
			run.TotalCollisions,
			run.FinalEnergyError,
			run.Reason,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	times, energy, momentum, _, err := st.LoadConservation(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s (%d particles, e=%.4f, %s)\n\n",
		meta.ID, meta.N, meta.Eccentricity, meta.Integrator)
	fmt.Println(viz.ConservationChart(times, energy, momentum, 80, 10))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	times, energy, momentum, collisions, err := st.LoadConservation(runID)
	if err != nil {
		return err
	}
	_, phi, phidot, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	e, err := geometry.New(meta.A, meta.B)
	if err != nil {
		return err
	}

	eDrift := analysis.Drift(energy)
	pDrift := analysis.Drift(momentum)

	fmt.Printf("run: %s (%d particles, e=%.4f, %s)\n\n", meta.ID, meta.N, meta.Eccentricity, meta.Integrator)
	fmt.Printf("energy:    E0=%.6g  max drift %.3e  mean drift %.3e\n", eDrift.Initial, eDrift.Max, eDrift.Mean)
	fmt.Printf("momentum:  P0=%.6g  max drift %.3e  mean drift %.3e\n", pDrift.Initial, pDrift.Max, pDrift.Mean)
	fmt.Printf("collision rate: %.3f /s  (%d total)\n", analysis.CollisionRate(times, collisions), meta.TotalCollisions)
	fmt.Printf("mean speed: %.4f\n\n", analysis.MeanSpeed(e, phi, phidot))

	hist := analysis.DensityHistogram(phi, 36)
	fmt.Println(asciigraph.Plot(hist,
		asciigraph.Height(8), asciigraph.Width(72),
		asciigraph.Caption("angular occupancy (0 to 2π)")))
	return nil
}

func svgRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	_, phi, _, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(phi) == 0 {
		return fmt.Errorf("no trajectory data in %s", runID)
	}
	e, err := geometry.New(meta.A, meta.B)
	if err != nil {
		return err
	}

	var doc string
	if svgTrajectory {
		doc = export.TrajectorySVG(e, phi, 800, 500)
	} else {
		doc = export.SnapshotSVG(e, phi[len(phi)-1], config.DefaultRadius, 800, 500)
	}

	out := svgOut
	if out == "" {
		out = runID + ".svg"
	}
	if err := os.WriteFile(out, []byte(doc), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	return st.ExportRunJSON(os.Stdout, args[0])
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("comparing integrators (%d particles, t=%.1fs, dt<=%.1e)\n\n",
		cfg.Ensemble.N, cfg.Run.MaxTime, cfg.Run.DtMax)
	fmt.Printf("%-12s  %-12s  %-12s  %-10s  %-10s\n",
		"integrator", "energy_err", "momentum_err", "collisions", "time_ms")
	fmt.Println(strings.Repeat("-", 64))

	for _, name := range args {
		stepper, err := integrators.New(name)
		if err != nil {
			fmt.Printf("%-12s  error: %v\n", name, err)
			continue
		}

		// Identical seed, so every integrator sees the same ensemble.
		e, err := geometry.New(cfg.A, cfg.B)
		if err != nil {
			return err
		}
		sys, err := ensemble.Generate(e, ensemble.Params{
			N:      cfg.Ensemble.N,
			Mass:   cfg.Ensemble.Mass,
			Radius: cfg.Ensemble.Radius,
			VMax:   cfg.Ensemble.VMax,
			Seed:   cfg.Ensemble.Seed,
		})
		if err != nil {
			return err
		}

		runCfg := cfg.SimConfig()
		runCfg.ProjectionInterval = 0 // raw integrator drift, no correction

		simulator, err := sim.New(runCfg, stepper)
		if err != nil {
			return err
		}

		result, runErr := simulator.Run(context.Background(), sys)
		if runErr != nil {
			fmt.Printf("%-12s  error: %v\n", name, runErr)
			continue
		}

		fmt.Printf("%-12s  %12.3e  %12.3e  %10d  %10.1f\n",
			stepper.Name(),
			result.FinalEnergyError,
			result.FinalMomentumError,
			result.TotalCollisions,
			float64(result.WallTime.Microseconds())/1000)
	}
	return nil
}
