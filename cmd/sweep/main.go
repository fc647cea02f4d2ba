// Package main sweeps preference strength over headless simulations and
// reports how happiness and segregation respond.
//
// Usage: go run ./cmd/sweep --from 10 --to 90 --step 10 --output out/
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/pthm-cable/bracetopia/config"
)

func main() {
	root := newSweepCmd()
	root.AddCommand(newCalibrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadBase loads the base config named by the persistent --config flag.
func loadBase(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// writeConfig writes cfg to path, creating its directory.
func writeConfig(cfg *config.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return cfg.WriteYAML(path)
}

// newEvaluatorFromFlags builds an evaluator from the persistent flags.
func newEvaluatorFromFlags(cmd *cobra.Command) (*Evaluator, *config.Config, error) {
	base, err := loadBase(cmd)
	if err != nil {
		return nil, nil, err
	}
	seeds, _ := cmd.Flags().GetInt("seeds")
	maxCycles, _ := cmd.Flags().GetInt("max-cycles")
	if seeds < 1 || maxCycles < 1 {
		return nil, nil, fmt.Errorf("--seeds and --max-cycles must be positive")
	}
	return NewEvaluator(base, seedList(seeds), maxCycles), base, nil
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "sweep",
		Short:        "Sweep preference strength across headless runs",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, base, err := newEvaluatorFromFlags(cmd)
			if err != nil {
				return err
			}
			from, _ := cmd.Flags().GetInt("from")
			to, _ := cmd.Flags().GetInt("to")
			step, _ := cmd.Flags().GetInt("step")
			outputDir, _ := cmd.Flags().GetString("output")

			if err := writeConfig(base, filepath.Join(outputDir, "base_config.yaml")); err != nil {
				return err
			}

			f, err := os.Create(filepath.Join(outputDir, "sweep.csv"))
			if err != nil {
				return fmt.Errorf("creating sweep.csv: %w", err)
			}
			defer f.Close()

			rows := runSweep(ev, strengthRange(from, to, step), cmd.OutOrStdout())
			if err := gocsv.Marshal(rows, f); err != nil {
				return fmt.Errorf("writing sweep.csv: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Results saved to: %s\n", f.Name())
			return nil
		},
	}

	cmd.PersistentFlags().String("config", "", "Base config YAML file (empty = use defaults)")
	cmd.PersistentFlags().Int("seeds", 5, "Number of seeds per strength")
	cmd.PersistentFlags().Int("max-cycles", 200, "Cycle cap per run")
	cmd.PersistentFlags().String("output", "sweep-out", "Output directory for results")

	cmd.Flags().Int("from", 10, "First strength percent")
	cmd.Flags().Int("to", 90, "Last strength percent")
	cmd.Flags().Int("step", 10, "Strength increment")

	return cmd
}

// runSweep evaluates each strength in turn, printing progress to w.
func runSweep(ev *Evaluator, strengths []int, w io.Writer) []SweepRow {
	rows := make([]SweepRow, 0, len(strengths))
	start := time.Now()

	for i, s := range strengths {
		row := ev.Evaluate(s)
		rows = append(rows, row)
		fmt.Fprintf(w, "Strength %d%% (%d/%d): happiness=%.4f±%.4f segregation=%.4f±%.4f satisfied=%d/%d | elapsed: %s\n",
			s, i+1, len(strengths),
			row.HappinessMean, row.HappinessStd,
			row.SegregationMean, row.SegregationStd,
			row.SatisfiedRuns, row.Seeds,
			time.Since(start).Round(time.Millisecond))
	}
	return rows
}
