package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/bracetopia/config"
)

func TestStrengthRange(t *testing.T) {
	tests := []struct {
		name           string
		from, to, step int
		want           []int
	}{
		{"inclusive", 10, 30, 10, []int{10, 20, 30}},
		{"uneven", 10, 35, 10, []int{10, 20, 30}},
		{"clamped", 0, 120, 50, []int{1, 51}},
		{"zero step", 5, 7, 0, []int{5, 6, 7}},
		{"empty", 60, 50, 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strengthRange(tt.from, tt.to, tt.step)
			if len(got) != len(tt.want) {
				t.Fatalf("strengthRange(%d, %d, %d) = %v, want %v", tt.from, tt.to, tt.step, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("strengthRange(%d, %d, %d) = %v, want %v", tt.from, tt.to, tt.step, got, tt.want)
					break
				}
			}
		})
	}
}

func TestClampStrength(t *testing.T) {
	tests := []struct {
		x    float64
		want int
	}{
		{50.4, 50},
		{50.6, 51},
		{-10, 1},
		{250, 99},
		{math.NaN(), 50},
	}
	for _, tt := range tests {
		if got := clampStrength(tt.x); got != tt.want {
			t.Errorf("clampStrength(%v) = %d, want %d", tt.x, got, tt.want)
		}
	}
}

func TestAggregate(t *testing.T) {
	row := aggregate(40, []runResult{
		{finalHappiness: 0.5, finalSegregation: 0.6, satisfiedCycle: -1, totalMoves: 10},
		{finalHappiness: 1.0, finalSegregation: 0.8, satisfiedCycle: 4, totalMoves: 20},
	})

	if row.Strength != 40 || row.Seeds != 2 || row.SatisfiedRuns != 1 {
		t.Errorf("unexpected row %+v", row)
	}
	if math.Abs(row.HappinessMean-0.75) > 1e-9 || math.Abs(row.HappinessStd-0.25) > 1e-9 {
		t.Errorf("happiness = %v±%v, want 0.75±0.25", row.HappinessMean, row.HappinessStd)
	}
	if math.Abs(row.SegregationMean-0.7) > 1e-9 {
		t.Errorf("segregation mean = %v, want 0.7", row.SegregationMean)
	}
	if row.SatisfiedCycleAvg != 4 || row.MovesMean != 15 {
		t.Errorf("satisfied cycle = %v, moves = %v", row.SatisfiedCycleAvg, row.MovesMean)
	}
}

func TestRunSimulationDeterministic(t *testing.T) {
	ev := NewEvaluator(config.Default(), nil, 15)

	a := ev.runSimulation(50, 7)
	b := ev.runSimulation(50, 7)
	if a != b {
		t.Errorf("same seed gave %+v and %+v", a, b)
	}
	if a.finalHappiness < 0 || a.finalHappiness > 1 || a.finalSegregation < 0 || a.finalSegregation > 1 {
		t.Errorf("out of range result %+v", a)
	}
}

func TestEvaluate(t *testing.T) {
	ev := NewEvaluator(config.Default(), seedList(3), 10)
	row := ev.Evaluate(30)

	if row.Seeds != 3 || row.SatisfiedRuns > 3 {
		t.Errorf("unexpected row %+v", row)
	}
	if row.HappinessMean < 0 || row.HappinessMean > 1 {
		t.Errorf("happiness mean %v out of range", row.HappinessMean)
	}
}

func TestCalibratorCachesStrengths(t *testing.T) {
	c := NewCalibrator(NewEvaluator(config.Default(), seedList(1), 5), 0.5)

	first := c.Objective([]float64{50.2})
	second := c.Objective([]float64{49.8})
	if first != second {
		t.Errorf("same rounded strength gave %v and %v", first, second)
	}
	if len(c.cache) != 1 {
		t.Errorf("cache has %d entries, want 1", len(c.cache))
	}
	if best, ok := c.Best(); !ok || best.Strength != 50 {
		t.Errorf("Best() = %+v, %v", best, ok)
	}
}

func TestSweepCommandWritesCSV(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	cmd := newSweepCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--from", "40", "--to", "60", "--step", "20", "--seeds", "2", "--max-cycles", "10", "--output", dir})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "sweep.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("sweep.csv has %d lines, want 3:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "strength,seeds,") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "40,2,") || !strings.HasPrefix(lines[2], "60,2,") {
		t.Errorf("unexpected rows %q", lines[1:])
	}
	if _, err := os.Stat(filepath.Join(dir, "base_config.yaml")); err != nil {
		t.Errorf("missing base config: %v", err)
	}
}
