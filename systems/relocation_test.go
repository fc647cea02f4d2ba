package systems

import (
	"math/rand"
	"testing"
)

func TestAssess(t *testing.T) {
	g := mustParse(t,
		"en.",
		"ne.",
		"...",
	)
	a := Assess(g, 50)

	if a.Occupied != 4 || a.Vacant != 5 {
		t.Fatalf("Occupied/Vacant = %d/%d, want 4/5", a.Occupied, a.Vacant)
	}
	// Each agent sees one like and two unlike neighbours.
	if a.Unsatisfied != 4 {
		t.Errorf("Unsatisfied = %d, want 4", a.Unsatisfied)
	}
	if a.Map.Get(Cell{0, 2}) != NotApplicable {
		t.Errorf("vacant cell marked %v", a.Map.Get(Cell{0, 2}))
	}
	if len(a.Scores) != 4 {
		t.Errorf("len(Scores) = %d, want 4", len(a.Scores))
	}
}

func TestAssessThresholdBoundary(t *testing.T) {
	// Happiness of exactly 0.5 satisfies a 50% preference.
	g := mustParse(t, "en.", "...", "...")
	g2 := mustParse(t, "ee.", "n..", "...")

	if a := Assess(g2, 50); a.Map.Get(Cell{0, 0}) != Satisfied {
		t.Errorf("happiness 0.5 at 50%% marked %v, want Satisfied", a.Map.Get(Cell{0, 0}))
	}
	if a := Assess(g2, 51); a.Map.Get(Cell{0, 0}) != Unsatisfied {
		t.Errorf("happiness 0.5 at 51%% marked %v, want Unsatisfied", a.Map.Get(Cell{0, 0}))
	}
	if a := Assess(g, 1); a.Unsatisfied != 2 {
		t.Errorf("Unsatisfied = %d, want 2", a.Unsatisfied)
	}
}

func TestAverageHappinessEmpty(t *testing.T) {
	a := Assess(NewGrid(5), 50)
	if a.Occupied != 0 {
		t.Fatalf("Occupied = %d, want 0", a.Occupied)
	}
	if got := a.AverageHappiness(); got != 0 {
		t.Errorf("AverageHappiness() = %v, want 0", got)
	}
}

func TestRelocateLIFO(t *testing.T) {
	// Unsatisfied agents at (0,0) and (0,1); vacancies at (0,2), (2,0), (2,1).
	g := mustParse(t,
		"en.",
		"nen",
		"..e",
	)
	m := NewSatisfactionMap(3)
	m.Set(Cell{0, 0}, Unsatisfied)
	m.Set(Cell{0, 1}, Unsatisfied)

	moves := Relocate(g, m)

	want := []Move{
		{From: Cell{0, 0}, To: Cell{2, 1}},
		{From: Cell{0, 1}, To: Cell{2, 0}},
	}
	if len(moves) != len(want) {
		t.Fatalf("got %d moves, want %d", len(moves), len(want))
	}
	for i := range want {
		if moves[i] != want[i] {
			t.Errorf("move %d = %+v, want %+v", i, moves[i], want[i])
		}
	}

	wantRows := []string{"...", "nen", "nee"}
	for i, row := range g.Rows() {
		if row != wantRows[i] {
			t.Errorf("row %d = %q, want %q", i, row, wantRows[i])
		}
	}
}

func TestRelocateCapacity(t *testing.T) {
	// Several unsatisfied agents compete for one vacancy.
	g := mustParse(t,
		"nen",
		"ene",
		"ne.",
	)
	a := Assess(g, 99)
	moves := Relocate(g, a.Map)

	if len(moves) != 1 {
		t.Fatalf("got %d moves, want 1", len(moves))
	}
	if moves[0].From != (Cell{0, 0}) || moves[0].To != (Cell{2, 2}) {
		t.Errorf("move = %+v, want first agent into the only vacancy", moves[0])
	}
}

func TestRelocateSatisfiedIsNoop(t *testing.T) {
	g := mustParse(t,
		"ee..",
		"ee..",
		"..nn",
		"..nn",
	)
	before := g.Clone()
	a := Assess(g, 50)
	if a.Unsatisfied != 0 {
		t.Fatalf("Unsatisfied = %d, want 0", a.Unsatisfied)
	}

	if moves := Relocate(g, a.Map); len(moves) != 0 {
		t.Errorf("got %d moves on a satisfied grid", len(moves))
	}
	if !g.Equal(before) {
		t.Errorf("grid changed:\n%s\nwant\n%s", g, before)
	}
}

func TestRelocatePreservesComposition(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))
	g := Populate(15, 20, 60, rng, ShuffleSwap)
	initial := g.Counts()

	for cycle := 0; cycle < 50; cycle++ {
		a := Assess(g, 60)
		moves := Relocate(g, a.Map)

		limit := a.Unsatisfied
		if a.Vacant < limit {
			limit = a.Vacant
		}
		if len(moves) > limit {
			t.Fatalf("cycle %d: %d moves exceeds min(%d unsatisfied, %d vacant)",
				cycle, len(moves), a.Unsatisfied, a.Vacant)
		}
		if got := g.Counts(); got != initial {
			t.Fatalf("cycle %d: composition %+v, want %+v", cycle, got, initial)
		}
	}
}
