package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/optimize"
)

// Calibrator searches for the strength whose mean final segregation is
// closest to a target.
type Calibrator struct {
	ev     *Evaluator
	target float64

	// Runs are deterministic per strength, so each is evaluated once.
	cache map[int]SweepRow
	best  SweepRow
	found bool
}

// NewCalibrator creates a calibrator for the given segregation target.
func NewCalibrator(ev *Evaluator, target float64) *Calibrator {
	return &Calibrator{ev: ev, target: target, cache: make(map[int]SweepRow)}
}

// Objective is the distance between the target and the mean segregation at
// strength x[0].
func (c *Calibrator) Objective(x []float64) float64 {
	s := clampStrength(x[0])
	row, ok := c.cache[s]
	if !ok {
		row = c.ev.Evaluate(s)
		c.cache[s] = row
	}

	loss := math.Abs(row.SegregationMean - c.target)
	if !c.found || loss < math.Abs(c.best.SegregationMean-c.target) {
		c.best = row
		c.found = true
	}
	return loss
}

// Best returns the closest strength evaluated so far.
func (c *Calibrator) Best() (SweepRow, bool) {
	return c.best, c.found
}

// Run minimizes the objective with Nelder-Mead starting from strength start.
func (c *Calibrator) Run(start float64, maxEvals int) (SweepRow, error) {
	problem := optimize.Problem{Func: c.Objective}
	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Concurrent:      0,
	}

	_, err := optimize.Minimize(problem, []float64{start}, settings, &optimize.NelderMead{SimplexSize: 20})
	best, ok := c.Best()
	if !ok {
		return SweepRow{}, fmt.Errorf("calibration evaluated no strengths: %w", err)
	}
	if err != nil {
		// Hitting the evaluation cap still leaves a usable best.
		slog.Warn("calibration ended early", "error", err)
	}
	return best, nil
}

func clampStrength(x float64) int {
	if math.IsNaN(x) {
		return 50
	}
	return int(math.Round(math.Min(math.Max(x, 1), 99)))
}

func newCalibrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "calibrate",
		Short:        "Find the strength producing a target segregation",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, base, err := newEvaluatorFromFlags(cmd)
			if err != nil {
				return err
			}
			target, _ := cmd.Flags().GetFloat64("target")
			maxEvals, _ := cmd.Flags().GetInt("max-evals")
			outputDir, _ := cmd.Flags().GetString("output")
			if target < 0 || target > 1 {
				return fmt.Errorf("--target (%v) must be in [0, 1]", target)
			}

			c := NewCalibrator(ev, target)
			best, err := c.Run(float64(base.Preference.StrengthPercent), maxEvals)
			if err != nil {
				return err
			}
			printCalibration(cmd.OutOrStdout(), best, target, len(c.cache))

			base.Preference.StrengthPercent = best.Strength
			path := filepath.Join(outputDir, "best_config.yaml")
			if err := writeConfig(base, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Best config saved to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().Float64("target", 0.8, "Target mean final segregation in [0, 1]")
	cmd.Flags().Int("max-evals", 40, "Maximum number of objective evaluations")
	return cmd
}

func printCalibration(w io.Writer, best SweepRow, target float64, evaluated int) {
	fmt.Fprintf(w, "Calibration complete after %d strengths\n", evaluated)
	fmt.Fprintf(w, "Target segregation: %.4f\n", target)
	fmt.Fprintf(w, "Best strength: %d%% (segregation=%.4f±%.4f, happiness=%.4f)\n",
		best.Strength, best.SegregationMean, best.SegregationStd, best.HappinessMean)
}
