package main

import (
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/bracetopia/config"
	"github.com/pthm-cable/bracetopia/game"
	"github.com/pthm-cable/bracetopia/systems"
)

// runResult holds the outcome of a single headless run.
type runResult struct {
	finalHappiness   float64
	finalSegregation float64
	satisfiedCycle   int // first cycle with no unsatisfied agents, -1 if never reached
	totalMoves       int
}

// SweepRow aggregates the runs of one strength value.
type SweepRow struct {
	Strength          int     `csv:"strength"`
	Seeds             int     `csv:"seeds"`
	HappinessMean     float64 `csv:"happiness_mean"`
	HappinessStd      float64 `csv:"happiness_std"`
	SegregationMean   float64 `csv:"segregation_mean"`
	SegregationStd    float64 `csv:"segregation_std"`
	SatisfiedRuns     int     `csv:"satisfied_runs"`
	SatisfiedCycleAvg float64 `csv:"satisfied_cycle_mean"` // over satisfied runs only
	MovesMean         float64 `csv:"moves_mean"`
}

// Evaluator runs headless simulations of a base configuration.
type Evaluator struct {
	base      *config.Config
	seeds     []int64
	maxCycles int
}

// NewEvaluator creates an evaluator running each strength once per seed for
// at most maxCycles cycles.
func NewEvaluator(base *config.Config, seeds []int64, maxCycles int) *Evaluator {
	return &Evaluator{base: base, seeds: seeds, maxCycles: maxCycles}
}

// Evaluate runs every seed at the given strength in parallel and aggregates
// the results.
func (e *Evaluator) Evaluate(strength int) SweepRow {
	results := make([]runResult, len(e.seeds))
	var wg sync.WaitGroup

	for i, seed := range e.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = e.runSimulation(strength, s)
		}(i, seed)
	}
	wg.Wait()

	return aggregate(strength, results)
}

// runSimulation runs one seed until every agent is satisfied or the cycle
// cap is reached.
func (e *Evaluator) runSimulation(strength int, seed int64) runResult {
	cfg := *e.base
	cfg.Preference.StrengthPercent = strength
	sim := cfg.Simulation()
	sim.CycleLimit = config.Cycles(e.maxCycles)

	g := game.New(sim, game.Options{Seed: seed})
	res := runResult{satisfiedCycle: -1}

	for g.Cycle() < e.maxCycles {
		frame, moves := g.Step()
		if frame.Stats.Unsatisfied == 0 {
			// Nobody moves from here on.
			res.satisfiedCycle = frame.Stats.Cycle
			break
		}
		res.totalMoves += moves
	}

	final := g.Evaluate()
	res.finalHappiness = final.Stats.AverageHappiness
	res.finalSegregation = systems.Segregation(final.Grid)
	return res
}

func aggregate(strength int, results []runResult) SweepRow {
	happiness := make([]float64, len(results))
	segregation := make([]float64, len(results))
	moves := make([]float64, len(results))
	var satisfied []float64

	for i, r := range results {
		happiness[i] = r.finalHappiness
		segregation[i] = r.finalSegregation
		moves[i] = float64(r.totalMoves)
		if r.satisfiedCycle >= 0 {
			satisfied = append(satisfied, float64(r.satisfiedCycle))
		}
	}

	row := SweepRow{
		Strength:      strength,
		Seeds:         len(results),
		SatisfiedRuns: len(satisfied),
	}
	if len(results) == 0 {
		return row
	}
	row.HappinessMean, row.HappinessStd = stat.PopMeanStdDev(happiness, nil)
	row.SegregationMean, row.SegregationStd = stat.PopMeanStdDev(segregation, nil)
	row.MovesMean = stat.Mean(moves, nil)
	if len(satisfied) > 0 {
		row.SatisfiedCycleAvg = stat.Mean(satisfied, nil)
	}
	return row
}

// seedList returns n deterministic seeds.
func seedList(n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = int64(i*1000 + 42)
	}
	return seeds
}

// strengthRange returns from, from+step, ... up to and including to,
// clamped to valid strengths.
func strengthRange(from, to, step int) []int {
	if step < 1 {
		step = 1
	}
	var out []int
	for s := max(from, 1); s <= min(to, 99); s += step {
		out = append(out, s)
	}
	return out
}
