package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pthm-cable/bracetopia/config"
	"github.com/pthm-cable/bracetopia/game"
	"github.com/pthm-cable/bracetopia/renderer"
	"github.com/pthm-cable/bracetopia/telemetry"
)

const (
	exitUsage   = 1
	exitInvalid = 2
)

// usageError marks bad command-line syntax.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintln(stderr, err)

	var verr *config.ValidationError
	var uerr *usageError
	switch {
	case errors.As(err, &verr):
		printUsage(stderr)
		return exitInvalid
	case errors.As(err, &uerr):
		printUsage(stderr)
		return exitUsage
	default:
		return 1
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bracetopia",
		Short:         "Brace-style segregation simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &usageError{fmt.Errorf("unexpected argument %q", args[0])}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd.Flags(), cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return simulate(cmd.Context(), cfg, stdout, stderr)
		},
	}

	cmd.SetOut(stderr)
	cmd.SetErr(stderr)
	cmd.SetHelpFunc(func(*cobra.Command, []string) { printHelp(stderr) })
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	f := cmd.Flags()
	f.IntP("delay", "t", 0, "microseconds cycle delay")
	f.IntP("cycles", "c", 0, "count cycle maximum value")
	f.IntP("dim", "d", 0, "width and height dimension")
	f.IntP("strength", "s", 0, "strength of preference")
	f.IntP("vacancy", "v", 0, "percent vacancies")
	f.IntP("endline", "e", 0, "percent Endline braces")
	f.String("config", "", "path to config.yaml (empty = use defaults)")
	f.Int64("seed", 0, "RNG seed (0 = time-based)")
	f.String("shuffle", "", "initial shuffle: swap or uniform")
	f.String("output-dir", "", "directory for CSV logs and config snapshot")
	f.String("snapshot-dir", "", "directory for grid snapshots taken at bookmarks")
	f.String("record", "", "SQLite database recording run history")
	f.Bool("window", false, "draw continuous runs in a window")
	f.String("log-level", "", "log level: debug, info, warn, error")
	f.Bool("log-stats", false, "log per-cycle stats via slog")

	return cmd
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(f *pflag.FlagSet, cfg *config.Config) error {
	var err error
	setInt := func(name string, dst *int) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetInt(name)
		}
	}
	setString := func(name string, dst *string) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetString(name)
		}
	}
	setBool := func(name string, dst *bool) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetBool(name)
		}
	}

	setInt("dim", &cfg.Grid.Dimension)
	setInt("strength", &cfg.Preference.StrengthPercent)
	setInt("vacancy", &cfg.Grid.VacancyPercent)
	setInt("endline", &cfg.Grid.EndlinePercent)
	setString("shuffle", &cfg.Grid.Shuffle)
	setString("output-dir", &cfg.Telemetry.OutputDir)
	setString("snapshot-dir", &cfg.Telemetry.SnapshotDir)
	setString("record", &cfg.Telemetry.Record)
	setString("log-level", &cfg.Logging.Level)
	setBool("window", &cfg.Display.Window)
	setBool("log-stats", &cfg.Telemetry.LogStats)

	if err == nil && f.Changed("cycles") {
		var cycles int
		if cycles, err = f.GetInt("cycles"); err == nil {
			cfg.Run.Cycles = &cycles
		}
	}
	if err == nil && f.Changed("delay") {
		var us int
		// Non-positive delays keep the configured value.
		if us, err = f.GetInt("delay"); err == nil && us > 0 {
			cfg.Run.Delay = time.Duration(us) * time.Microsecond
		}
	}
	if err == nil && f.Changed("seed") {
		cfg.Run.Seed, err = f.GetInt64("seed")
	}
	return err
}

// simulate runs a validated configuration to completion or interruption.
func simulate(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	// stdout carries frames, so logs go to stderr.
	slog.SetDefault(slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level})))

	out, err := telemetry.NewOutputManager(cfg.Telemetry.OutputDir)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	rec, err := telemetry.OpenRecorder(cfg.Telemetry.Record)
	if err != nil {
		return err
	}
	defer rec.Close()

	opts := game.Options{
		Seed:             cfg.Run.Seed,
		Output:           out,
		Recorder:         rec,
		SnapshotDir:      cfg.Telemetry.SnapshotDir,
		LogStats:         cfg.Telemetry.LogStats,
		PerfWindow:       cfg.Telemetry.PerfWindow,
		BookmarkHistory:  cfg.Telemetry.BookmarkHistory,
		PlateauTolerance: cfg.Telemetry.PlateauTolerance,
	}
	sim := cfg.Simulation()
	g := game.New(sim, opts)

	if rec != nil {
		cfgYAML, err := cfg.MarshalYAMLBytes()
		if err != nil {
			return err
		}
		if _, err := rec.BeginRun(telemetry.RunInfo{
			Seed:            g.Seed(),
			Dimension:       sim.Dimension,
			VacancyPercent:  sim.VacancyPercent,
			EndlinePercent:  sim.EndlinePercent,
			StrengthPercent: sim.StrengthPercent,
			CycleLimit:      sim.CycleLimit,
			ConfigYAML:      string(cfgYAML),
		}); err != nil {
			return err
		}
	}

	var (
		sink  game.FrameSink
		pacer game.Pacer = game.SleepPacer{}
	)
	switch {
	case cfg.Display.Window && sim.Continuous():
		w := renderer.NewWindow(sim.Dimension, sim.FrameDelay, cfg.Display)
		defer w.Close()
		sink, pacer = w, w
	default:
		if cfg.Display.Window {
			slog.Warn("window display needs a continuous run; printing frames instead")
		}
		sink = newTerminal(stdout)
	}

	slog.Info("starting simulation",
		"seed", g.Seed(),
		"dim", sim.Dimension,
		"strength", sim.StrengthPercent,
		"vacancy", sim.VacancyPercent,
		"endline", sim.EndlinePercent,
		"continuous", sim.Continuous(),
		"cycle_limit", sim.CycleLimit,
		"run_id", rec.RunID(),
	)

	if err := g.Run(ctx, sink, pacer); err != nil {
		return err
	}

	slog.Info("simulation finished", "cycles", g.Cycle(), "output_dir", out.Dir())
	return nil
}

func newTerminal(w io.Writer) *renderer.Terminal {
	if f, ok := w.(*os.File); ok {
		return renderer.NewTerminal(f)
	}
	return renderer.NewWriterTerminal(w, false)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: ")
	fmt.Fprintln(w, "bracetopia [-h] [-t N] [-c N] [-d dim] [-s %str] [-v %vac] [-e %end] ")
}

func printHelp(w io.Writer) {
	printUsage(w)
	fmt.Fprint(w, `Option      Default   Example   Description
'-h'        NA        -h        print this usage message.
'-t N'      900000    -t 5000   microseconds cycle delay.
'-c N'      NA        -c4       count cycle maximum value.
'-d dim'    15        -d 7      width and height dimension.
'-s %str'   50        -s 30     strength of preference.
'-v %vac'   20        -v30      percent vacancies.
'-e %endl'  60        -e75      percent Endline braces. Others want Newline.

Long options:
  --config path       YAML config merged over the defaults
  --seed N            RNG seed (0 = time-based)
  --shuffle mode      initial shuffle: swap or uniform
  --output-dir dir    write config.yaml, cycles.csv and bookmarks.csv
  --snapshot-dir dir  save the grid as JSON at every bookmark
  --record path.db    record run history in a SQLite database
  --window            draw continuous runs in a window
  --log-level level   debug, info, warn or error
  --log-stats         log per-cycle stats and timings
`)
}
