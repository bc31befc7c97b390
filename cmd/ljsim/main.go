package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/ljsim/internal/analysis"
	"github.com/san-kum/ljsim/internal/automation"
	"github.com/san-kum/ljsim/internal/compute"
	"github.com/san-kum/ljsim/internal/config"
	"github.com/san-kum/ljsim/internal/dynamo"
	"github.com/san-kum/ljsim/internal/experiment"
	"github.com/san-kum/ljsim/internal/export"
	"github.com/san-kum/ljsim/internal/optim"
	"github.com/san-kum/ljsim/internal/storage"
	"github.com/san-kum/ljsim/internal/tensor"
	"github.com/san-kum/ljsim/internal/tui"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool

	integrator  string
	backend     string
	dimensions  int
	particles   int
	initMethod  string
	dt          float64
	steps       int
	recordEvery int
	seed        int64
	temperature float64
	boxLength   float64
	threads     int
	launchProcs int

	frameRate    int
	stepsPerTick int
	replicas     int
	workers      int
	renorm       int
	perturbation float64
	saveConfig   string
	snapshotSVG  string
	themeName    string

	sweepParam  string
	sweepMin    float64
	sweepMax    float64
	sweepPoints int
	gridFlags  []string
	metricName  string
)

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

func main() {
	rootCmd := &cobra.Command{
		Use:   "ljsim",
		Short: "Lennard-Jones particle simulator",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ljsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log run diagnostics to stderr")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store its energy series",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().StringVar(&saveConfig, "save-config", "", "write the resolved config to this path")
	runCmd.Flags().StringVar(&snapshotSVG, "snapshot", "", "write the final particle positions as SVG to this path")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the energy series of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and samples to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "energy statistics and spectrum",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")
	liveCmd.Flags().IntVar(&stepsPerTick, "steps-per-frame", 10, "steps per frame")
	liveCmd.Flags().StringVar(&themeName, "theme", "default", fmt.Sprintf("color theme %v", tui.ThemeNames()))

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "compare host and device step throughput",
		Args:  cobra.NoArgs,
		RunE:  benchBackends,
	}
	addConfigFlags(benchCmd)

	compareCmd := &cobra.Command{
		Use:   "compare [integrator1] [integrator2] ...",
		Short: "compare integrators on the same initial state",
		RunE:  compareIntegrators,
	}
	addConfigFlags(compareCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run replicas with consecutive seeds",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	addConfigFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&replicas, "replicas", 4, "number of replicas")
	ensembleCmd.Flags().IntVar(&workers, "workers", 0, "replicas run at once (0: GOMAXPROCS)")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov",
		Short: "estimate the largest Lyapunov exponent",
		Args:  cobra.NoArgs,
		RunE:  runLyapunov,
	}
	addConfigFlags(lyapunovCmd)
	lyapunovCmd.Flags().IntVar(&renorm, "renorm", 10, "steps between renormalisations")
	lyapunovCmd.Flags().Float64Var(&perturbation, "perturbation", 1e-8, "initial displacement in units of sigma")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export the energy series of a run to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of simulations",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run one simulation per value of a parameter",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "dt", fmt.Sprintf("parameter to vary %v", config.Tunable))
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 1e-4, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1e-2, "last value")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 5, "number of values")

	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "grid search for the parameters minimizing a metric",
		Args:  cobra.NoArgs,
		RunE:  runOptimize,
	}
	addConfigFlags(optimizeCmd)
	optimizeCmd.Flags().StringArrayVar(&gridFlags, "grid", nil, "parameter values, e.g. dt=1e-4,5e-4,1e-3 (repeatable)")
	optimizeCmd.Flags().StringVar(&metricName, "metric", "energy_drift", "metric to minimize")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tN\tDIM\tBACKEND\tDESCRIPTION")
			for _, name := range config.ListPresets() {
				p := config.Presets[name]
				n := p.Config.Particles
				if p.Config.Init == config.InitExplicit {
					n = len(p.Config.Positions["x"])
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", name, n, p.Config.Dimensions, p.Config.Backend, p.Description)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd, analyzeCmd,
		liveCmd, benchCmd, compareCmd, ensembleCmd, lyapunovCmd, scenarioCmd, sweepCmd, optimizeCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&integrator, "integrator", "verlet", "integrator (explicit, verlet)")
	cmd.Flags().StringVar(&backend, "backend", config.BackendHost, "tensor backend (host, device)")
	cmd.Flags().IntVar(&dimensions, "dim", config.DefaultDimensions, "spatial dimensions (1-3)")
	cmd.Flags().IntVarP(&particles, "particles", "n", config.DefaultParticles, "number of particles")
	cmd.Flags().StringVar(&initMethod, "init", config.InitLattice, "placement (random, lattice)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	cmd.Flags().IntVar(&recordEvery, "record-every", config.DefaultRecordEvery, "steps between samples")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "thermostat target (0: off)")
	cmd.Flags().Float64Var(&boxLength, "box", config.DefaultBoxLength, "box side length")
	cmd.Flags().IntVar(&threads, "threads-per-block", 0, "device tile side (0: discover)")
	cmd.Flags().IntVar(&launchProcs, "device-workers", 0, "device worker goroutines (0: discover)")
}

// resolveConfig layers the preset, the config file and explicitly set
// flags, in that order. It also returns a name for the run.
func resolveConfig(cmd *cobra.Command) (*config.Config, string, error) {
	name := "custom"
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		name = preset
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("backend") {
		cfg.Backend = backend
	}
	if flags.Changed("dim") {
		cfg.Dimensions = dimensions
	}
	if flags.Changed("particles") {
		cfg.Particles = particles
	}
	if flags.Changed("init") {
		cfg.Init = initMethod
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("record-every") {
		cfg.RecordEvery = recordEvery
	}
	if flags.Changed("seed") || (preset == "" && configFile == "") {
		cfg.Seed = seed
	}
	if flags.Changed("temperature") {
		cfg.Params.Temperature = temperature
	}
	if flags.Changed("box") {
		cfg.Params.BoxLength = boxLength
	}

	discovered := compute.Discover()
	if flags.Changed("threads-per-block") {
		cfg.Launch.ThreadsPerBlock = threads
	}
	if flags.Changed("device-workers") {
		cfg.Launch.Workers = launchProcs
	}
	if cfg.Launch.ThreadsPerBlock == 0 {
		cfg.Launch.ThreadsPerBlock = discovered.ThreadsPerBlock
	}
	if cfg.Launch.Workers == 0 {
		cfg.Launch.Workers = discovered.Workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

func newLogger() *slog.Logger {
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if saveConfig != "" {
		if err := config.Save(saveConfig, cfg); err != nil {
			return err
		}
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.New(cfg, newLogger())
	if err != nil {
		return err
	}
	defer exp.Close()

	ctx, cancel := interruptContext()
	defer cancel()

	fmt.Println(titleStyle.Render(fmt.Sprintf("running %s: %d particles, %s, %s",
		name, exp.System().N(), exp.System().Integrator().Name(), exp.Backend().Name())))
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil && (result == nil || ctx.Err() == nil) {
		return err
	}
	elapsed := time.Since(start)
	if ctx.Err() != nil {
		fmt.Printf("interrupted after %d steps\n", result.StepsTaken)
	}

	runID, err := st.Save(name, cfg, result)
	if err != nil {
		return err
	}

	if snapshotSVG != "" {
		if err := writeSnapshot(exp.System(), snapshotSVG); err != nil {
			return err
		}
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("samples: %d\n", len(result.Samples))
	fmt.Printf("final drift: %.6e\n", result.FinalDrift)
	fmt.Printf("error: %.6e\n", result.EnergyError)
	printMetrics(result.Metrics)
	return nil
}

func printMetrics(metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, metrics[name])
	}
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
	fmt.Fprintln(w, "ID\tTIME\tN\tDIM\tSTEPS\tDT\tINTEG\tBACKEND\tFINAL DRIFT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.3g\t%s\t%s\t%.2e\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Particles,
			run.Dimensions,
			run.Steps,
			run.Dt,
			run.Integrator,
			run.Backend,
			run.FinalDrift,
		)
	}
	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, []dynamo.Sample, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("run %s has no samples", runID)
	}
	return meta, samples, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("particles: %d, integrator: %s\n", meta.Particles, meta.Integrator)
	fmt.Printf("samples: %d\n\n", len(samples))

	series := []struct {
		caption string
		value   func(dynamo.Sample) float64
	}{
		{"total energy H", func(s dynamo.Sample) float64 { return s.Hamilton }},
		{"potential energy U", func(s dynamo.Sample) float64 { return s.Potential }},
		{"kinetic energy K", func(s dynamo.Sample) float64 { return s.Kinetic }},
		{"temperature T", func(s dynamo.Sample) float64 { return s.Temperature }},
	}

	for _, ser := range series {
		data := make([]float64, len(samples))
		for i, s := range samples {
			data[i] = ser.value(s)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(ser.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, *meta, samples)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.WriteCSV(os.Stdout, samples)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}

	report, err := analysis.Analyze(samples)
	if err != nil {
		return err
	}

	fmt.Printf("energy analysis: %s\n\n", meta.ID)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERIES\tMEAN\tSTD\tMIN\tMAX\tDRIFT\tERROR")
	for _, row := range []struct {
		name string
		s    analysis.Summary
	}{
		{"potential", report.Potential},
		{"kinetic", report.Kinetic},
		{"hamilton", report.Hamilton},
		{"temperature", report.Temperature},
	} {
		fmt.Fprintf(w, "%s\t%.6g\t%.3g\t%.6g\t%.6g\t%.2e\t%.2e\n",
			row.name, row.s.Mean, row.s.Std, row.s.Min, row.s.Max, row.s.Drift(), row.s.RelativeError())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(samples) < 4 {
		return nil
	}
	h := make([]float64, len(samples))
	for i, s := range samples {
		h[i] = s.Hamilton
	}
	sampleDt := samples[1].Time - samples[0].Time
	freqs, power := analysis.PowerSpectrum(h, sampleDt)
	if len(power) < 2 {
		return nil
	}

	fmt.Println()
	graph := asciigraph.Plot(power[1:],
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("amplitude spectrum of H"),
	)
	fmt.Println(graph)
	fmt.Println()

	freq := analysis.DominantFrequency(h, sampleDt)
	fmt.Printf("dominant frequency: %.4g (resolution %.3g)\n", freq, freqs[1])
	if freq > 0 {
		fmt.Printf("period: %.4g\n", 1.0/freq)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	if err := tui.SetTheme(themeName); err != nil {
		return err
	}
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, newLogger())
	if err != nil {
		return err
	}
	defer exp.Close()

	m := tui.NewModel(exp.System(), cfg.Dt, cfg.Steps, stepsPerTick, frameRate)
	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(tui.Model); ok && fm.Err() != nil {
		return fm.Err()
	}
	return nil
}

func benchBackends(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s: %d steps\n\n", name, cfg.Steps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tN\tSTEPS\tTIME\tSTEPS/SEC\tFINAL H")

	for _, be := range experiment.NewRegistry().ListBackends() {
		run := cfg.Clone()
		run.Backend = be
		exp, err := experiment.New(run, newLogger())
		if err != nil {
			return err
		}

		start := time.Now()
		result, err := exp.Run(context.Background())
		elapsed := time.Since(start)
		backendName := exp.Backend().Name()
		n := exp.System().N()
		exp.Close()
		if err != nil {
			return err
		}

		last := result.Samples[len(result.Samples)-1]
		fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%.0f\t%.6g\n",
			backendName, n, result.StepsTaken, elapsed.Round(time.Millisecond),
			float64(result.StepsTaken)/elapsed.Seconds(), last.Hamilton)
	}
	return w.Flush()
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = experiment.NewRegistry().ListIntegrators()
	}

	fmt.Printf("comparing integrators on %s (seed %d)\n\n", name, cfg.Seed)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tSTEPS\tTIME\tDRIFT\tERROR\tFINAL H")

	var series [][]float64
	for _, integ := range args {
		run := cfg.Clone()
		run.Integrator = integ
		exp, err := experiment.New(run, newLogger())
		if err != nil {
			return err
		}

		start := time.Now()
		result, err := exp.Run(context.Background())
		elapsed := time.Since(start)
		exp.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", integ, err)
		}

		energies := result.Energies()
		series = append(series, energies)
		fmt.Fprintf(w, "%s\t%d\t%v\t%.2e\t%.2e\t%.6g\n",
			integ, result.StepsTaken, elapsed.Round(time.Millisecond),
			result.Metrics["energy_drift"], result.EnergyError, energies[len(energies)-1])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	graph := asciigraph.PlotMany(series,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("total energy: "+strings.Join(args, ", ")),
	)
	fmt.Println(graph)
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, newLogger())
	if err != nil {
		return err
	}
	defer exp.Close()

	ctx, cancel := interruptContext()
	defer cancel()

	fmt.Printf("running %d replicas of %s\n\n", replicas, name)
	start := time.Now()
	results, err := exp.Ensemble(ctx, replicas, workers)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tDRIFT\tERROR\tMEAN T\tMEAN H")
	for i, res := range results {
		fmt.Fprintf(w, "%d\t%.2e\t%.2e\t%.4g\t%.6g\n",
			cfg.Seed+int64(i), res.Metrics["energy_drift"], res.EnergyError,
			res.Metrics["temperature"], res.Metrics["energy"])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\ncompleted in %v\n", time.Since(start))
	return nil
}

func runLyapunov(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, newLogger())
	if err != nil {
		return err
	}
	defer exp.Close()

	fmt.Printf("lyapunov estimate for %s over %d steps\n", name, cfg.Steps)
	lambda, err := analysis.LyapunovExponent(exp.System(), cfg.Dt, cfg.Steps, renorm, perturbation*cfg.Params.Sigma)
	if err != nil {
		return err
	}

	out := map[string]any{
		"lambda":   lambda,
		"steps":    cfg.Steps,
		"renorm":   renorm,
		"chaotic":  lambda > 0,
		"time":     float64(cfg.Steps) * cfg.Dt,
		"particle": exp.System().N(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeSnapshot(sys *dynamo.System, path string) error {
	snap, err := sys.Snapshot()
	if err != nil {
		return err
	}
	axes := sys.Axes()
	h, v := axes[0], tensor.Axis("")
	if len(axes) > 1 {
		v = axes[1]
	}
	svg := export.ParticlesToSVG(snap, h, v, sys.Params().BoxLength, 60, 30, 6)
	return os.WriteFile(path, []byte(svg), 0644)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	_, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}
	svg := export.EnergySVG(samples, 800, 400)
	if svg == "" {
		return fmt.Errorf("run %s needs at least two samples", args[0])
	}
	_, err = fmt.Fprintln(os.Stdout, svg)
	return err
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := interruptContext()
	defer cancel()

	fmt.Println(titleStyle.Render("scenario " + sc.Name))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}
	results, err := automation.RunScenario(ctx, sc, st, newLogger(), os.Stdout)
	if err != nil {
		return err
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tINTEG\tSTEPS\tDRIFT\tERROR")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2e\t%.2e\n",
			r.RunID, r.Result.Integrator, r.Result.StepsTaken, r.Result.Metrics["energy_drift"], r.Result.EnergyError)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := interruptContext()
	defer cancel()

	sweep := &automation.ParameterSweep{
		Base:      cfg,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepPoints,
	}
	fmt.Printf("sweeping %s over [%g, %g] on %s\n", sweepParam, sweepMin, sweepMax, name)
	results, err := automation.RunSweep(ctx, sweep, newLogger(), os.Stderr)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tDRIFT\tERROR\tMIN H\tMAX H\tMEAN T\tSTATUS\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		fmt.Fprintf(w, "%.4g\t%.2e\t%.2e\t%.6g\t%.6g\t%.4g\t%s\n",
			r.ParamValue, r.EnergyDrift, r.EnergyError, r.MinEnergy, r.MaxEnergy, r.MeanTemperature, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stable, unstable := automation.SweepStats(results)
	fmt.Printf("\n%d stable, %d unstable, %d failed\n", stable, unstable, len(results)-stable-unstable)
	return nil
}

// parseGrid turns "name=v1,v2,..." flags into parameter names and values.
func parseGrid(grids []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(grids))
	ranges := make([][]float64, 0, len(grids))
	for _, g := range grids {
		name, list, ok := strings.Cut(g, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("bad grid %q, want name=v1,v2", g)
		}
		var vals []float64
		for _, f := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("bad grid value in %q: %w", g, err)
			}
			vals = append(vals, v)
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if len(gridFlags) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}
	names, ranges, err := parseGrid(gridFlags)
	if err != nil {
		return err
	}

	ctx, cancel := interruptContext()
	defer cancel()

	g := optim.NewGridSearch(names, ranges).WithLogger(newLogger())
	best, val, err := g.Search(ctx, cfg, metricName)
	if err != nil {
		return err
	}

	fmt.Printf("grid search on %s: %d combinations completed\n", name, g.Evaluated())
	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s = %g\n", k, best[k])
	}
	fmt.Printf("%s: %.6g\n", metricName, val)
	return nil
}
