package game

import (
	"math/rand"
	"time"

	"github.com/pthm-cable/bracetopia/config"
	"github.com/pthm-cable/bracetopia/systems"
	"github.com/pthm-cable/bracetopia/telemetry"
)

// Options configures optional behavior of a Game.
type Options struct {
	Seed int64 // 0 = time-based

	// Telemetry sinks; nil disables each.
	Output   *telemetry.OutputManager
	Recorder *telemetry.Recorder

	// SnapshotDir receives a grid snapshot for every bookmark; empty disables.
	SnapshotDir string

	LogStats         bool
	PerfWindow       int
	BookmarkHistory  int
	PlateauTolerance float64
}

// Game owns the grid and drives it cycle by cycle.
type Game struct {
	cfg  config.SimulationConfig
	opts Options
	seed int64
	rng  *rand.Rand

	grid  *systems.Grid
	cycle int

	// assessment of the current cycle, valid while assessed is true
	assessment systems.Assessment
	assessed   bool
	lastMoves  int

	perf      *telemetry.PerfCollector
	bookmarks *telemetry.BookmarkDetector
}

// New creates a game with a freshly populated grid.
func New(cfg config.SimulationConfig, opts Options) *Game {
	g := newGame(cfg, opts)
	g.grid = systems.Populate(cfg.Dimension, cfg.VacancyPercent, cfg.EndlinePercent, g.rng, cfg.Shuffle)
	return g
}

// newGame seeds the RNG and sets up telemetry, leaving the grid to the caller.
func newGame(cfg config.SimulationConfig, opts Options) *Game {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Game{
		cfg:       cfg,
		opts:      opts,
		seed:      seed,
		rng:       rand.New(rand.NewSource(seed)),
		perf:      telemetry.NewPerfCollector(opts.PerfWindow),
		bookmarks: telemetry.NewBookmarkDetector(opts.BookmarkHistory, opts.PlateauTolerance),
	}
}

// Seed returns the RNG seed the grid was populated with.
func (g *Game) Seed() int64 {
	return g.seed
}

// Config returns the simulation configuration.
func (g *Game) Config() config.SimulationConfig {
	return g.cfg
}

// Cycle returns the index of the cycle that will be evaluated next.
func (g *Game) Cycle() int {
	return g.cycle
}

// LastMoves returns the number of moves made by the most recent relocation pass.
func (g *Game) LastMoves() int {
	return g.lastMoves
}

// Snapshot returns a copy of the current grid.
func (g *Game) Snapshot() *systems.Grid {
	return g.grid.Clone()
}

// Evaluate scores the current grid and returns the cycle's frame. It does
// not change the grid.
func (g *Game) Evaluate() RenderFrame {
	g.assessment = systems.Assess(g.grid, g.cfg.StrengthPercent)
	g.assessed = true

	return RenderFrame{
		Grid: g.grid.Clone(),
		Stats: CycleStatistics{
			Cycle:            g.cycle,
			Moves:            g.lastMoves,
			AverageHappiness: g.assessment.AverageHappiness(),
			Vacancies:        g.assessment.Vacant,
			Occupied:         g.assessment.Occupied,
			Unsatisfied:      g.assessment.Unsatisfied,
		},
		Config:     g.cfg,
		Continuous: g.cfg.Continuous(),
	}
}

// Relocate runs the relocation pass for the current cycle, evaluating it
// first if needed, and advances to the next cycle. It returns the number of
// agents moved.
func (g *Game) Relocate() int {
	if !g.assessed {
		g.Evaluate()
	}

	var evaluated *systems.Grid
	if g.opts.SnapshotDir != "" {
		evaluated = g.grid.Clone()
	}

	moves := systems.Relocate(g.grid, g.assessment.Map)
	g.lastMoves = len(moves)

	g.perf.StartPhase(telemetry.PhaseTelemetry)
	g.recordCycle(g.assessment, moves, evaluated)

	g.assessed = false
	g.cycle++
	return g.lastMoves
}

// Step evaluates and relocates one cycle without rendering.
func (g *Game) Step() (RenderFrame, int) {
	frame := g.Evaluate()
	return frame, g.Relocate()
}
