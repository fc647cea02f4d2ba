// Package systems holds the grid, neighbourhood scoring and the relocation pass.
package systems

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// CellState is the occupant of a single grid position.
type CellState uint8

const (
	Vacant  CellState = iota
	Endline           // prefers braces at the end of the line
	Newline           // prefers braces on their own line
)

// Glyph returns the display character for the state.
func (s CellState) Glyph() byte {
	switch s {
	case Endline:
		return 'e'
	case Newline:
		return 'n'
	default:
		return '.'
	}
}

// Occupied reports whether an agent lives in the cell.
func (s CellState) Occupied() bool {
	return s != Vacant
}

func (s CellState) String() string {
	switch s {
	case Endline:
		return "endline"
	case Newline:
		return "newline"
	default:
		return "vacant"
	}
}

// stateFromGlyph is the inverse of Glyph.
func stateFromGlyph(b byte) (CellState, bool) {
	switch b {
	case 'e':
		return Endline, true
	case 'n':
		return Newline, true
	case '.':
		return Vacant, true
	}
	return Vacant, false
}

// Cell addresses a grid position.
type Cell struct {
	Row, Col int
}

// ShuffleMode selects how Populate scatters the initial layout.
type ShuffleMode string

const (
	// ShuffleSwap swaps every cell with a random target once. Cheap and
	// visually random, but not a uniform permutation.
	ShuffleSwap ShuffleMode = "swap"
	// ShuffleUniform is a Fisher-Yates shuffle.
	ShuffleUniform ShuffleMode = "uniform"
)

// Composition counts each cell state on a grid.
type Composition struct {
	Vacant  int
	Endline int
	Newline int
}

// Occupied returns the number of agents.
func (c Composition) Occupied() int {
	return c.Endline + c.Newline
}

// Total returns the number of cells.
func (c Composition) Total() int {
	return c.Vacant + c.Endline + c.Newline
}

// Grid is a square, row-major array of cell states. Its dimension is fixed
// at creation and Swap is the only mutation available after population.
type Grid struct {
	dim   int
	cells []CellState
}

// NewGrid returns an all-vacant grid.
func NewGrid(dim int) *Grid {
	return &Grid{
		dim:   dim,
		cells: make([]CellState, dim*dim),
	}
}

// TargetComposition computes the agent and vacancy counts for a grid of the
// given dimension. endlinePct applies to the non-vacant remainder.
func TargetComposition(dim, vacancyPct, endlinePct int) Composition {
	total := dim * dim
	vacant := int(math.Round(float64(total) * float64(vacancyPct) / 100.0))
	remaining := total - vacant
	endline := int(math.Round(float64(remaining) * float64(endlinePct) / 100.0))
	return Composition{
		Vacant:  vacant,
		Endline: endline,
		Newline: remaining - endline,
	}
}

// Populate builds a grid with the target composition, laid out row-major
// (endline, then newline, then vacant) and then shuffled with rng.
func Populate(dim, vacancyPct, endlinePct int, rng *rand.Rand, mode ShuffleMode) *Grid {
	g := NewGrid(dim)
	comp := TargetComposition(dim, vacancyPct, endlinePct)

	i := 0
	for n := 0; n < comp.Endline; n++ {
		g.cells[i] = Endline
		i++
	}
	for n := 0; n < comp.Newline; n++ {
		g.cells[i] = Newline
		i++
	}
	// The rest is already Vacant.

	g.shuffle(rng, mode)
	return g
}

func (g *Grid) shuffle(rng *rand.Rand, mode ShuffleMode) {
	if mode == ShuffleUniform {
		rng.Shuffle(len(g.cells), func(i, j int) {
			g.cells[i], g.cells[j] = g.cells[j], g.cells[i]
		})
		return
	}

	for row := 0; row < g.dim; row++ {
		for col := 0; col < g.dim; col++ {
			target := Cell{Row: rng.Intn(g.dim), Col: rng.Intn(g.dim)}
			g.Swap(Cell{Row: row, Col: col}, target)
		}
	}
}

// ParseGrid builds a grid from rows of glyphs ('e', 'n', '.').
func ParseGrid(rows ...string) (*Grid, error) {
	dim := len(rows)
	if dim == 0 {
		return nil, fmt.Errorf("parse grid: no rows")
	}
	g := NewGrid(dim)
	for r, line := range rows {
		if len(line) != dim {
			return nil, fmt.Errorf("parse grid: row %d has %d cells, want %d", r, len(line), dim)
		}
		for c := 0; c < dim; c++ {
			s, ok := stateFromGlyph(line[c])
			if !ok {
				return nil, fmt.Errorf("parse grid: invalid glyph %q at (%d,%d)", line[c], r, c)
			}
			g.cells[r*dim+c] = s
		}
	}
	return g, nil
}

// Dim returns the grid's width and height.
func (g *Grid) Dim() int {
	return g.dim
}

// InBounds reports whether (row, col) lies on the grid.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.dim && col >= 0 && col < g.dim
}

// At returns the state at (row, col). ok is false off the grid.
func (g *Grid) At(row, col int) (state CellState, ok bool) {
	if !g.InBounds(row, col) {
		return Vacant, false
	}
	return g.cells[row*g.dim+col], true
}

// Get returns the state of an in-bounds cell.
func (g *Grid) Get(c Cell) CellState {
	return g.cells[c.Row*g.dim+c.Col]
}

// Swap exchanges the states of two cells.
func (g *Grid) Swap(a, b Cell) {
	i := a.Row*g.dim + a.Col
	j := b.Row*g.dim + b.Col
	g.cells[i], g.cells[j] = g.cells[j], g.cells[i]
}

// Counts tallies the grid's composition.
func (g *Grid) Counts() Composition {
	var comp Composition
	for _, s := range g.cells {
		switch s {
		case Endline:
			comp.Endline++
		case Newline:
			comp.Newline++
		default:
			comp.Vacant++
		}
	}
	return comp
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	cells := make([]CellState, len(g.cells))
	copy(cells, g.cells)
	return &Grid{dim: g.dim, cells: cells}
}

// Equal reports whether two grids hold the same states.
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.dim != other.dim {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// Rows renders each row as a string of glyphs.
func (g *Grid) Rows() []string {
	rows := make([]string, g.dim)
	buf := make([]byte, g.dim)
	for r := 0; r < g.dim; r++ {
		for c := 0; c < g.dim; c++ {
			buf[c] = g.cells[r*g.dim+c].Glyph()
		}
		rows[r] = string(buf)
	}
	return rows
}

// String renders the grid one row per line.
func (g *Grid) String() string {
	return strings.Join(g.Rows(), "\n")
}
