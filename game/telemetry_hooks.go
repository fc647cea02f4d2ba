package game

import (
	"log/slog"

	"github.com/pthm-cable/bracetopia/systems"
	"github.com/pthm-cable/bracetopia/telemetry"
)

// telemetryEnabled reports whether any sink wants per-cycle stats.
func (g *Game) telemetryEnabled() bool {
	return g.opts.LogStats || g.opts.Output != nil || g.opts.Recorder != nil || g.opts.SnapshotDir != ""
}

// recordCycle feeds one completed cycle to the telemetry sinks. evaluated is
// the grid before relocation, nil when snapshots are disabled.
func (g *Game) recordCycle(a systems.Assessment, moves []systems.Move, evaluated *systems.Grid) {
	if !g.telemetryEnabled() {
		return
	}

	stats := g.cycleStats(a, len(moves))
	bookmarks := g.bookmarks.Check(stats)

	if g.opts.LogStats {
		stats.LogStats()
	}
	if err := g.opts.Output.WriteCycle(stats); err != nil {
		slog.Error("failed to write cycle stats", "cycle", stats.Cycle, "error", err)
	}

	for _, b := range bookmarks {
		b.LogBookmark()
		if err := g.opts.Output.WriteBookmark(b); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		if evaluated != nil {
			g.saveSnapshot(evaluated, b)
		}
	}

	if err := g.opts.Recorder.RecordCycle(stats, bookmarks); err != nil {
		slog.Error("failed to record cycle", "cycle", stats.Cycle, "error", err)
	}
}

// cycleStats builds the telemetry record of the current cycle.
func (g *Game) cycleStats(a systems.Assessment, moves int) telemetry.CycleStats {
	comp := g.grid.Counts()
	stats := telemetry.CycleStats{
		Cycle:       g.cycle,
		Moves:       moves,
		Occupied:    a.Occupied,
		Vacancies:   a.Vacant,
		Unsatisfied: a.Unsatisfied,
		Endline:     comp.Endline,
		Newline:     comp.Newline,
		Segregation: a.Segregation(),
	}
	stats.SetHappiness(a.Scores)
	return stats
}

// saveSnapshot writes the evaluated grid of a bookmarked cycle.
func (g *Game) saveSnapshot(grid *systems.Grid, b telemetry.Bookmark) {
	snap := &telemetry.Snapshot{
		Version:         telemetry.SnapshotVersion,
		RNGSeed:         g.seed,
		Dimension:       grid.Dim(),
		VacancyPercent:  g.cfg.VacancyPercent,
		EndlinePercent:  g.cfg.EndlinePercent,
		StrengthPercent: g.cfg.StrengthPercent,
		Cycle:           g.cycle,
		Rows:            grid.Rows(),
		Bookmark:        &b,
	}
	path, err := telemetry.SaveSnapshot(snap, g.opts.SnapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "cycle", g.cycle, "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "bookmark", string(b.Type))
}

// logPerf logs phase timings once per perf window.
func (g *Game) logPerf() {
	if !g.opts.LogStats || g.cycle == 0 || g.cycle%g.perf.WindowSize() != 0 {
		return
	}
	g.perf.Stats().LogStats()
}
