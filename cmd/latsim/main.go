package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/latsim/internal/config"
	"github.com/san-kum/latsim/internal/experiment"
	"github.com/san-kum/latsim/internal/logging"
	"github.com/san-kum/latsim/internal/storage"
	"github.com/san-kum/latsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir      string
	configFile   string
	preset       string
	steps        int
	dumpInterval int
	ranks        int
	seed         int64
	bufferSize   int
	bufferTime   time.Duration
	logLevel     string
	logFormat    string
	jsonOutput   bool
	filterExpr   string
	reindex      bool
	plotWidth    int
	plotHeight   int
	live         bool
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "latsim",
		Short:        "lattice kinetic Monte Carlo with buffered trajectory output",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".latsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run simulation and store its trajectory",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of KMC steps")
	runCmd.Flags().IntVar(&dumpInterval, "dump-interval", config.DefaultDumpInterval, "record every n steps")
	runCmd.Flags().IntVar(&ranks, "ranks", config.DefaultRanks, "number of lock-stepped ranks")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	runCmd.Flags().IntVar(&bufferSize, "buffer-size", config.DefaultMaxBufferSize, "flush when buffered labels exceed this many bytes")
	runCmd.Flags().DurationVar(&bufferTime, "buffer-time", config.DefaultMaxBufferTime, "flush when the buffer is older than this")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	runCmd.Flags().BoolVar(&live, "live", false, "show live progress of the master rank")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&filterExpr, "filter", "", `CEL expression over run metadata, e.g. 'ranks > 1 && metrics["coverage_A"] > 0.5'`)
	listCmd.Flags().BoolVar(&reindex, "reindex", false, "rebuild the run index from metadata files first")

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run summary and coverage",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&jsonOutput, "json", false, "print metadata as json")
	showCmd.Flags().IntVar(&plotWidth, "width", 60, "plot width")
	showCmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")

	archiveCmd := &cobra.Command{
		Use:   "archive [run_id]",
		Short: "compress run trajectory with zstd",
		Args:  cobra.ExactArgs(1),
		RunE:  archiveRun,
	}

	catCmd := &cobra.Command{
		Use:   "cat [run_id]",
		Short: "print run trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  catRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, showCmd, archiveCmd, catCmd, presetsCmd)
	return rootCmd
}

// loadConfig resolves the run configuration: preset or config file first,
// then any flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	switch {
	case configFile != "" && preset != "":
		return nil, fmt.Errorf("--config and --preset are mutually exclusive")
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
	}

	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Simulation.Steps = steps
	}
	if flags.Changed("dump-interval") {
		cfg.Simulation.DumpInterval = dumpInterval
	}
	if flags.Changed("ranks") {
		cfg.Simulation.Ranks = ranks
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed = seed
	}
	if flags.Changed("buffer-size") {
		cfg.Trajectory.MaxBufferSize = bufferSize
	}
	if flags.Changed("buffer-time") {
		cfg.Trajectory.MaxBufferTime = bufferTime
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}

	return cfg, cfg.Validate()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: logging.Format(cfg.Log.Format),
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	name := preset
	if name == "" && configFile != "" {
		name = "config"
	}

	st := storage.New(dataDir)
	st.SetLogger(log)
	exp := experiment.New(cfg, name, st, logging.Component(log, "experiment"))

	var meta *storage.RunMetadata
	if live {
		meta, err = runLive(ctx, cmd, exp, name)
	} else {
		meta, err = exp.Run(ctx)
	}
	if err != nil {
		if meta != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "run %s failed and was stored\n", meta.ID)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "trajectory: %s\n", st.TrajectoryPath(meta.ID))
	fmt.Fprintf(out, "steps: %d  recorded: %d  time: %.6g\n", meta.StepsTaken, meta.Recorded, meta.FinalTime)
	return nil
}

// runLive runs the experiment in the background while a bubbletea program
// renders the master rank's progress. Quitting the view cancels the run.
func runLive(ctx context.Context, cmd *cobra.Command, exp *experiment.Experiment, title string) (*storage.RunMetadata, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if title == "" {
		title = "latsim"
	}
	p := tea.NewProgram(viz.NewLiveModel(title, cancel),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	exp.OnProgress(func(pr experiment.Progress) {
		p.Send(viz.ProgressMsg(pr))
	})

	type outcome struct {
		meta *storage.RunMetadata
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		meta, err := exp.Run(ctx)
		done <- outcome{meta, err}
		p.Send(viz.DoneMsg{Meta: meta, Err: err})
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cancel()
		<-done
		return nil, err
	}
	cancel()
	res := <-done
	return res.meta, res.err
}

func listRuns(cmd *cobra.Command, args []string) error {
	filter, err := storage.NewFilter(filterExpr)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if reindex {
		if _, err := st.Reindex(); err != nil {
			return err
		}
	}
	runs, err := st.List()
	if err != nil {
		return err
	}
	runs, err = filter.Apply(runs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tRANKS\tSTEPS\tRECORDED\tSIM TIME\tSTATUS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%.4g\t%s\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Ranks,
			run.StepsTaken,
			run.Recorded,
			run.FinalTime,
			viz.Status(&run),
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	out := cmd.OutOrStdout()

	if jsonOutput {
		return st.ExportJSON(args[0], out)
	}

	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(out, viz.Summary(meta))
	if plot := viz.CoveragePlot(meta, plotWidth, plotHeight); plot != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, plot)
	}
	return nil
}

func archiveRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	path, err := st.Archive(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "archived: %s\n", path)
	return nil
}

func catRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	r, err := st.OpenTrajectory(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	_, err = io.Copy(cmd.OutOrStdout(), r)
	return err
}
