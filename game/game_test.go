package game

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pthm-cable/bracetopia/config"
	"github.com/pthm-cable/bracetopia/systems"
	"github.com/pthm-cable/bracetopia/telemetry"
)

func testConfig() config.SimulationConfig {
	return config.SimulationConfig{
		Dimension:       5,
		VacancyPercent:  20,
		EndlinePercent:  50,
		StrengthPercent: 50,
		FrameDelay:      time.Millisecond,
		Shuffle:         systems.ShuffleSwap,
	}
}

func finiteConfig(cycles int) config.SimulationConfig {
	cfg := testConfig()
	cfg.CycleLimit = config.Cycles(cycles)
	return cfg
}

// gameWithGrid builds a game around a fixed grid.
func gameWithGrid(t *testing.T, cfg config.SimulationConfig, opts Options, rows ...string) *Game {
	t.Helper()
	grid, err := systems.ParseGrid(rows...)
	if err != nil {
		t.Fatal(err)
	}
	g := newGame(cfg, opts)
	g.grid = grid
	return g
}

// collectSink records every frame it is given.
type collectSink struct {
	frames []RenderFrame
	after  func(n int) error
}

func (s *collectSink) Render(f RenderFrame) error {
	s.frames = append(s.frames, f)
	if s.after != nil {
		return s.after(len(s.frames))
	}
	return nil
}

func TestNewPopulatesTargetComposition(t *testing.T) {
	cfg := finiteConfig(1)
	g := New(cfg, Options{Seed: 7})

	want := systems.TargetComposition(5, 20, 50)
	if got := g.Snapshot().Counts(); got != want {
		t.Errorf("composition = %+v, want %+v", got, want)
	}
	if g.Seed() != 7 {
		t.Errorf("Seed() = %d, want 7", g.Seed())
	}
}

func TestSeedDeterminism(t *testing.T) {
	a := New(testConfig(), Options{Seed: 99})
	b := New(testConfig(), Options{Seed: 99})

	for i := 0; i < 10; i++ {
		if !a.Snapshot().Equal(b.Snapshot()) {
			t.Fatalf("grids diverged at cycle %d", i)
		}
		a.Step()
		b.Step()
	}
}

func TestEvaluateDoesNotMutate(t *testing.T) {
	g := New(testConfig(), Options{Seed: 3})
	before := g.Snapshot()

	frame := g.Evaluate()
	if !g.Snapshot().Equal(before) {
		t.Fatal("Evaluate changed the grid")
	}
	if frame.Stats.Cycle != 0 || frame.Stats.Moves != 0 {
		t.Errorf("first frame stats = %+v", frame.Stats)
	}
	if frame.Stats.Vacancies+frame.Stats.Occupied != 25 {
		t.Errorf("vacancies %d + occupied %d != 25", frame.Stats.Vacancies, frame.Stats.Occupied)
	}

	// The frame's grid is a snapshot.
	g.Relocate()
	if !frame.Grid.Equal(before) {
		t.Error("frame grid changed after relocation")
	}
}

func TestSatisfiedGridIsFixedPoint(t *testing.T) {
	g := gameWithGrid(t, testConfig(), Options{Seed: 1}, "eeeee", "ee.ee", "eeeee", "ee.ee", "eeeee")
	before := g.Snapshot()

	for i := 0; i < 3; i++ {
		frame, moves := g.Step()
		if moves != 0 {
			t.Fatalf("cycle %d moved %d agents", i, moves)
		}
		if frame.Stats.AverageHappiness != 1.0 {
			t.Errorf("cycle %d happiness = %v, want 1", i, frame.Stats.AverageHappiness)
		}
	}
	if !g.Snapshot().Equal(before) {
		t.Error("satisfied grid changed")
	}
}

func TestCompositionPreservedAcrossCycles(t *testing.T) {
	g := New(testConfig(), Options{Seed: 11})
	want := g.Snapshot().Counts()

	for i := 0; i < 25; i++ {
		g.Step()
		if got := g.Snapshot().Counts(); got != want {
			t.Fatalf("cycle %d composition = %+v, want %+v", i, got, want)
		}
	}
}

func TestFrameReportsPreviousMoves(t *testing.T) {
	g := New(testConfig(), Options{Seed: 5})

	_, moved := g.Step()
	frame := g.Evaluate()
	if frame.Stats.Cycle != 1 {
		t.Errorf("cycle = %d, want 1", frame.Stats.Cycle)
	}
	if frame.Stats.Moves != moved {
		t.Errorf("frame moves = %d, want %d", frame.Stats.Moves, moved)
	}
	if g.LastMoves() != moved {
		t.Errorf("LastMoves() = %d, want %d", g.LastMoves(), moved)
	}
}

func TestRunFinite(t *testing.T) {
	g := New(finiteConfig(3), Options{Seed: 2})
	sink := &collectSink{}

	if err := g.Run(context.Background(), sink, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.frames) != 3 {
		t.Fatalf("rendered %d frames, want 3", len(sink.frames))
	}
	for i, f := range sink.frames {
		if f.Stats.Cycle != i {
			t.Errorf("frame %d has cycle %d", i, f.Stats.Cycle)
		}
		if f.Continuous {
			t.Errorf("frame %d marked continuous", i)
		}
	}
	if g.Cycle() != 3 {
		t.Errorf("Cycle() = %d, want 3", g.Cycle())
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := New(testConfig(), Options{Seed: 2})
	sink := &collectSink{after: func(n int) error {
		if n == 2 {
			cancel()
		}
		return nil
	}}

	if err := g.Run(ctx, sink, NoPacer{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.frames) != 2 {
		t.Errorf("rendered %d frames, want 2", len(sink.frames))
	}
	// The second cycle was rendered but never relocated.
	if g.Cycle() != 1 {
		t.Errorf("Cycle() = %d, want 1", g.Cycle())
	}
	if !sink.frames[1].Continuous {
		t.Error("continuous run frame not marked continuous")
	}
}

func TestRunStoppedBySink(t *testing.T) {
	g := New(testConfig(), Options{Seed: 2})
	sink := &collectSink{after: func(n int) error {
		if n == 4 {
			return ErrStopped
		}
		return nil
	}}

	if err := g.Run(context.Background(), sink, SleepPacer{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.frames) != 4 {
		t.Errorf("rendered %d frames, want 4", len(sink.frames))
	}
}

func TestRunSinkError(t *testing.T) {
	boom := errors.New("boom")
	g := New(finiteConfig(5), Options{Seed: 2})
	sink := &collectSink{after: func(int) error { return boom }}

	err := g.Run(context.Background(), sink, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want %v", err, boom)
	}
}

func TestSleepPacerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SleepPacer{}.Wait(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait ignored cancellation")
	}
}

func TestRunWritesTelemetry(t *testing.T) {
	dir := t.TempDir()
	out, err := telemetry.NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	g := New(finiteConfig(4), Options{Seed: 8, Output: out})
	if err := g.Run(context.Background(), &collectSink{}, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "cycles.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("cycles.csv has %d lines, want header + 4:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "cycle,moves") {
		t.Errorf("unexpected header %q", lines[0])
	}
}

func TestRunZeroLimit(t *testing.T) {
	g := New(finiteConfig(0), Options{Seed: 2})
	sink := &collectSink{}

	if err := g.Run(context.Background(), sink, SleepPacer{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.frames) != 0 {
		t.Errorf("rendered %d frames, want 0", len(sink.frames))
	}
}

func TestNewIsDeterministicPerSeed(t *testing.T) {
	a := New(testConfig(), Options{Seed: 21})
	b := New(testConfig(), Options{Seed: 21})
	if !a.Snapshot().Equal(b.Snapshot()) {
		t.Fatal("same seed populated different grids")
	}
	// Only population has drawn from the RNG.
	if a.rng.Int63() != b.rng.Int63() {
		t.Error("RNG streams diverged after population")
	}
}

func TestGameWithGridSkipsPopulation(t *testing.T) {
	g := gameWithGrid(t, testConfig(), Options{Seed: 21}, "eeeee", "ee.ee", "eeeee", "ee.ee", "eeeee")
	fresh := newGame(testConfig(), Options{Seed: 21})
	if g.rng.Int63() != fresh.rng.Int63() {
		t.Error("building a game around a grid consumed random draws")
	}
}

func TestSnapshotOnBookmark(t *testing.T) {
	rows := []string{"eeeee", "ee.ee", "eeeee", "ee.ee", "eeeee"}
	dir := t.TempDir()
	g := gameWithGrid(t, testConfig(), Options{Seed: 1, SnapshotDir: dir}, rows...)
	g.Step()

	data, err := os.ReadFile(filepath.Join(dir, "snapshot_0_all_satisfied.json"))
	if err != nil {
		t.Fatalf("missing bookmark snapshot: %v", err)
	}
	var snap telemetry.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}
	if strings.Join(snap.Rows, "/") != strings.Join(rows, "/") {
		t.Errorf("snapshot rows %v, want %v", snap.Rows, rows)
	}
	if snap.RNGSeed != 1 || snap.StrengthPercent != 50 || snap.Dimension != 5 {
		t.Errorf("unexpected snapshot header %+v", snap)
	}
}
