package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/kilosim/internal/analysis"
	"github.com/san-kum/kilosim/internal/automation"
	"github.com/san-kum/kilosim/internal/config"
	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/experiment"
	"github.com/san-kum/kilosim/internal/export"
	"github.com/san-kum/kilosim/internal/optim"
	"github.com/san-kum/kilosim/internal/storage"
	"github.com/san-kum/kilosim/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir    string
	logLevel   string
	logJSON    bool
	logger     = zap.NewNop()
	configFile string
	preset     string
	dt         float64
	duration   float64
	seed       int64
	kilobots   int
	behavior   string
	lightType  string
	policyType string
	noSave     bool
	jsonOut    bool
	numRuns    int
	parallel   int
	svgOut     string
	svgSize    int
	trails     bool
	themeName  string
	sweepSpecs []string
	metricName string
	maximize   bool
	topN       int
	saveSteps  bool
	pathID     int
)

const arrivalRadius = 0.1

// main registers the commands and opens the interactive preset browser when
// no subcommand is given.
func main() {
	rootCmd := &cobra.Command{
		Use:           "kilosim",
		Short:         "kilobot swarm phototaxis simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(logLevel, logJSON)
			if err != nil {
				return err
			}
			logger = l
			viz.SetTheme(themeName)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(logger)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".kilosim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as json")
	rootCmd.PersistentFlags().StringVar(&themeName, "theme", "cyberpunk", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run an experiment and store it",
		Args:  cobra.NoArgs,
		RunE:  runExperiment,
	}
	experimentFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "print the full run as json")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run an experiment with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	experimentFlags(liveCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "repeat an experiment over consecutive seeds",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	experimentFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&numRuns, "runs", 8, "number of runs")
	ensembleCmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent runs (0 = GOMAXPROCS)")

	sweepCmd := &cobra.Command{
		Use:     "sweep",
		Short:   "grid search experiment parameters for the best metric",
		Example: "  kilosim sweep --preset phototaxis --param behavior.update_interval=10,30,60 --param policy.kp=0:2:5 --metric mean_ambient --maximize",
		Args:    cobra.NoArgs,
		RunE:    runSweep,
	}
	experimentFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepSpecs, "param", nil, "parameter values as name=v1,v2 or name=min:max:n (repeatable)")
	sweepCmd.Flags().StringVar(&metricName, "metric", "mean_ambient", "metric to rank trials by")
	sweepCmd.Flags().BoolVar(&maximize, "maximize", false, "rank highest first")
	sweepCmd.Flags().IntVar(&topN, "top", 10, "trials to print (0 = all)")
	sweepCmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent trials (0 = GOMAXPROCS)")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of experiments",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&saveSteps, "save", true, "store steps that set save_as")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot swarm statistics of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&pathID, "kilobot", -1, "also draw the path of this kilobot")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [run_id]",
		Short: "render the last frame of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  snapshotRun,
	}
	snapshotCmd.Flags().StringVarP(&svgOut, "out", "o", "", "output file (default stdout)")
	snapshotCmd.Flags().IntVar(&svgSize, "size", 600, "image size in pixels")
	snapshotCmd.Flags().BoolVar(&trails, "trails", false, "draw kilobot paths instead of the last frame")

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).Delete(args[0])
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	validateCmd := &cobra.Command{
		Use:   "validate [config]",
		Short: "check a config file against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: ok (%s light, %d %s kilobots)\n", args[0], cfg.Light.Type, cfg.Kilobots.Count, cfg.Kilobots.Behavior)
			return nil
		},
	}

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "print the config JSON schema",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.Schema())
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, ensembleCmd, sweepCmd, scenarioCmd, listCmd, plotCmd, exportCmd, exportJSONCmd, snapshotCmd, deleteCmd, presetsCmd, validateCmd, schemaCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func experimentFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration ("+strings.Join(config.ListPresets(), ", ")+")")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&kilobots, "kilobots", config.DefaultKilobots, "number of kilobots")
	cmd.Flags().StringVar(&behavior, "behavior", "", "kilobot behavior ("+strings.Join(experiment.NewRegistry().ListBehaviors(), ", ")+")")
	cmd.Flags().StringVar(&lightType, "light", "", "light type ("+strings.Join(experiment.NewRegistry().ListLights(), ", ")+")")
	cmd.Flags().StringVar(&policyType, "policy", "", "light policy ("+strings.Join(experiment.NewRegistry().ListPolicies(), ", ")+")")
}

// loadConfig layers the preset, then the config file, then any flag the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("kilobots") {
		cfg.Kilobots.Count = kilobots
		if cfg.Kilobots.Placement == "poses" {
			cfg.Kilobots.Placement = "grid"
		}
	}
	if flags.Changed("behavior") {
		cfg.Kilobots.Behavior = behavior
		cfg.Kilobots.Params = nil
	}
	if flags.Changed("light") && lightType != cfg.Light.Type {
		cfg.Light = config.LightSpec{Type: lightType}
	}
	if flags.Changed("policy") {
		cfg.Policy = config.PolicyConfig{Type: policyType}
	}

	if cfg.Name == "" {
		cfg.Name = cfg.Light.Type
	}
	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg, experiment.WithLogger(logger))
	if err := exp.Setup(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if !jsonOut {
		fmt.Printf("running %s: %d kilobots, %s light, %.0fs...\n", cfg.Name, cfg.Kilobots.Count, cfg.Light.Type, cfg.Duration)
	}
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	logger.Info("run complete", zap.Duration("elapsed", elapsed), zap.Int("steps", result.StepsTaken))

	for _, e := range result.Errors {
		logger.Warn("simulation error", zap.Error(e))
	}

	runID := ""
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		if runID, err = st.Save(cfg, result); err != nil {
			return err
		}
	}

	if jsonOut {
		return storage.ExportJSONStdout(cfg, result)
	}

	fmt.Printf("completed in %v\n", elapsed)
	if runID != "" {
		fmt.Printf("run id: %s\n", runID)
	}
	fmt.Printf("steps: %d\n", result.StepsTaken)
	printMetrics(result.Metrics)
	return nil
}

func printMetrics(ms map[string]float64) {
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(ms))
	for name := range ms {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-20s %.6f\n", name, ms[name])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return viz.RunLive(viz.SessionFor(cfg, logger))
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if numRuns < 1 {
		return fmt.Errorf("%w: runs must be at least 1", dynamo.ErrInvalidConfig)
	}

	ens := experiment.NewEnsemble(cfg, numRuns, cfg.Seed, experiment.WithLogger(logger))
	if parallel > 0 {
		ens.SetParallelism(parallel)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %d x %s (seeds %d..%d)...\n", numRuns, cfg.Name, cfg.Seed, cfg.Seed+int64(numRuns)-1)
	start := time.Now()
	results, err := ens.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	stats := experiment.Summarize(results)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTD\tMIN\tMAX\tN")
	for _, name := range experiment.MetricNames(stats) {
		st := stats[name]
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%.6f\t%.6f\t%d\n", name, st.Mean, st.Std, st.Min, st.Max, st.N)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(sweepSpecs) == 0 {
		return fmt.Errorf("%w: at least one --param is required (known: %s, behavior.<name>)", dynamo.ErrInvalidConfig, strings.Join(config.ParamNames(), ", "))
	}

	names := make([]string, 0, len(sweepSpecs))
	ranges := make([][]float64, 0, len(sweepSpecs))
	for _, spec := range sweepSpecs {
		name, vals, err := optim.ParseParam(spec)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}

	opts := []optim.Option{
		optim.WithLogger(logger),
		optim.WithExperimentOptions(experiment.WithLogger(logger)),
	}
	if maximize {
		opts = append(opts, optim.Maximize())
	}
	if parallel > 0 {
		opts = append(opts, optim.WithParallelism(parallel))
	}
	gs, err := optim.NewGridSearch(names, ranges, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("sweeping %s: %d trials over %s...\n", cfg.Name, gs.Size(), strings.Join(names, ", "))
	start := time.Now()
	trials, err := gs.Search(ctx, cfg, metricName)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	if topN > 0 && topN < len(trials) {
		trials = trials[:topN]
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\t%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(metricName))
	for i, tr := range trials {
		vals := make([]string, len(names))
		for j, n := range names {
			vals[j] = fmt.Sprintf("%g", tr.Params[n])
		}
		fmt.Fprintf(w, "%d\t%s\t%.6f\n", i+1, strings.Join(vals, "\t"), tr.Value)
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	opts := []automation.Option{
		automation.WithBaseDir(filepath.Dir(args[0])),
		automation.WithLogger(logger),
	}
	if saveSteps {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		opts = append(opts, automation.WithSaver(st))
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("scenario %s: %d steps\n", sc.Name, len(sc.Steps))
	results, err := automation.NewRunner(opts...).Run(ctx, sc)
	for i, r := range results {
		line := fmt.Sprintf("  %d. %-20s steps=%d mean_ambient=%.4f", i+1, r.Name, r.Result.StepsTaken, r.Result.Metrics["mean_ambient"])
		if r.RunID != "" {
			line += " run=" + r.RunID
		}
		fmt.Println(line)
	}
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
	fmt.Fprintln(w, "ID\tNAME\tTIME\tLIGHT\tBEHAVIOR\tPOLICY\tBOTS\tDURATION\tAMBIENT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%.1fs\t%.4f\n",
			run.ID,
			run.Name,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Light,
			run.Behavior,
			run.Policy,
			run.Kilobots,
			run.Duration,
			run.Metrics["mean_ambient"],
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	snaps, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(snaps) < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("name: %s (%s light, %s)\n", meta.Name, meta.Light, meta.Behavior)
	fmt.Printf("samples: %d\n\n", len(snaps))

	dt := meta.Dt
	captions := map[string]string{
		analysis.Ambient:       "mean ambient light",
		analysis.Spread:        "swarm spread (m)",
		analysis.LightDistance: "mean distance to light (m)",
	}
	for _, name := range []string{analysis.Ambient, analysis.Spread, analysis.LightDistance} {
		series, err := analysis.Series(snaps, name)
		if err != nil {
			return err
		}
		data := analysis.Finite(series)
		if len(data) < 2 {
			continue
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(captions[name]),
		)
		fmt.Println(graph)
		fmt.Println()

		switch name {
		case analysis.Ambient:
			if period, ok := analysis.DominantPeriod(data, dt); ok {
				fmt.Printf("ambient oscillation period: %.1fs\n\n", period)
			}
		case analysis.LightDistance:
			if idx, ok := analysis.FirstCrossing(series, arrivalRadius, false); ok {
				fmt.Printf("swarm within %.2fm of the light at t=%.1fs\n\n", arrivalRadius, idx*dt)
			}
		}
	}

	if pathID >= 0 {
		path, err := analysis.Path(snaps, pathID)
		if err != nil {
			return err
		}
		box := dynamo.Uniform(2, -1, 1)
		if meta.Config != nil {
			box = meta.Config.ArenaBox()
		}
		fmt.Printf("kilobot %d path (o start, @ end):\n", pathID)
		fmt.Print(analysis.PathToASCII(path, box, 61, 25))
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// loadResult rebuilds a stored run and the config it was made with.
func loadResult(runID string) (*config.Config, *dynamo.Result, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	snaps, err := st.LoadStates(runID)
	if err != nil {
		return nil, nil, err
	}

	cfg := meta.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Name, cfg.Seed, cfg.Dt, cfg.Duration = meta.Name, meta.Seed, meta.Dt, meta.Duration
	}
	return cfg, &dynamo.Result{Snapshots: snaps, Metrics: meta.Metrics, StepsTaken: meta.Steps}, nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	cfg, result, err := loadResult(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSONStdout(cfg, result)
}

func snapshotRun(cmd *cobra.Command, args []string) error {
	cfg, result, err := loadResult(args[0])
	if err != nil {
		return err
	}
	if len(result.Snapshots) == 0 {
		return fmt.Errorf("run %s has no frames", args[0])
	}

	exp := experiment.New(cfg.Clone(), experiment.WithLogger(logger))
	if err := exp.Setup(); err != nil {
		return err
	}
	scene := viz.SceneFrom(exp.GetSimulator(), cfg.ArenaBox(), cfg.Arena.Walls)

	var svg string
	if trails {
		svg = export.TrailsToSVG(scene, result.Snapshots, svgSize)
	} else {
		svg = export.ArenaSVG(scene, &result.Snapshots[len(result.Snapshots)-1], svgSize)
	}

	if svgOut == "" {
		fmt.Println(svg)
		return nil
	}
	if err := os.WriteFile(svgOut, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", svgOut)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tLIGHT\tBEHAVIOR\tPOLICY\tBOTS\tDURATION")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.0fs\n",
			name, cfg.Light.Type, cfg.Kilobots.Behavior, cfg.Policy.Type, cfg.Kilobots.Count, cfg.Duration)
	}
	return w.Flush()
}
