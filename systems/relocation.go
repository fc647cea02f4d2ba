package systems

// Satisfaction classifies a cell for one relocation pass.
type Satisfaction uint8

const (
	NotApplicable Satisfaction = iota // vacant
	Satisfied
	Unsatisfied
)

// SatisfactionMap holds one Satisfaction per grid cell.
type SatisfactionMap struct {
	dim   int
	marks []Satisfaction
}

// NewSatisfactionMap returns a map with every cell NotApplicable.
func NewSatisfactionMap(dim int) *SatisfactionMap {
	return &SatisfactionMap{
		dim:   dim,
		marks: make([]Satisfaction, dim*dim),
	}
}

// Get returns the mark for c.
func (m *SatisfactionMap) Get(c Cell) Satisfaction {
	return m.marks[c.Row*m.dim+c.Col]
}

// Set marks c.
func (m *SatisfactionMap) Set(c Cell, s Satisfaction) {
	m.marks[c.Row*m.dim+c.Col] = s
}

// Assessment is the result of scoring every cell of a grid.
type Assessment struct {
	Map *SatisfactionMap

	// Scores holds the happiness of each occupied cell in row-major order.
	Scores       []float64
	HappinessSum float64

	Occupied    int
	Vacant      int
	Unsatisfied int

	// Neighbour tallies summed over every occupied cell.
	LikeNeighbors     int
	OccupiedNeighbors int
}

// Segregation is the share of occupied neighbour links that join agents of
// the same type, 0 when no agent has an occupied neighbour.
func (a Assessment) Segregation() float64 {
	if a.OccupiedNeighbors == 0 {
		return 0
	}
	return float64(a.LikeNeighbors) / float64(a.OccupiedNeighbors)
}

// AverageHappiness is the mean happiness of occupied cells, 0 when there are none.
func (a Assessment) AverageHappiness() float64 {
	if a.Occupied == 0 {
		return 0
	}
	return a.HappinessSum / float64(a.Occupied)
}

// Assess scores every occupied cell. An agent whose happiness is below
// strengthPercent/100 is Unsatisfied.
func Assess(g *Grid, strengthPercent int) Assessment {
	threshold := float64(strengthPercent) / 100.0
	a := Assessment{
		Map:    NewSatisfactionMap(g.dim),
		Scores: make([]float64, 0, len(g.cells)),
	}

	for row := 0; row < g.dim; row++ {
		for col := 0; col < g.dim; col++ {
			c := Cell{Row: row, Col: col}
			if !g.Get(c).Occupied() {
				a.Vacant++
				continue
			}

			same, occupied := NeighborCounts(g, c)
			a.LikeNeighbors += same
			a.OccupiedNeighbors += occupied

			h := happinessRatio(same, occupied)
			a.Scores = append(a.Scores, h)
			a.HappinessSum += h
			a.Occupied++

			if h < threshold {
				a.Map.Set(c, Unsatisfied)
				a.Unsatisfied++
			} else {
				a.Map.Set(c, Satisfied)
			}
		}
	}
	return a
}

// Move records one relocation.
type Move struct {
	From, To Cell
}

// Vacancies lists vacant cells in row-major order.
func Vacancies(g *Grid) []Cell {
	var spots []Cell
	for row := 0; row < g.dim; row++ {
		for col := 0; col < g.dim; col++ {
			if !g.cells[row*g.dim+col].Occupied() {
				spots = append(spots, Cell{Row: row, Col: col})
			}
		}
	}
	return spots
}

// Relocate moves unsatisfied agents into vacancies. Agents are visited in
// row-major order and the vacancy stack is consumed last-found first. Cells
// vacated during the pass are not reused until the next pass, and once the
// stack is empty the remaining unsatisfied agents stay put.
func Relocate(g *Grid, m *SatisfactionMap) []Move {
	spots := Vacancies(g)
	var moves []Move

	for row := 0; row < g.dim && len(spots) > 0; row++ {
		for col := 0; col < g.dim && len(spots) > 0; col++ {
			c := Cell{Row: row, Col: col}
			if m.Get(c) != Unsatisfied {
				continue
			}
			top := spots[len(spots)-1]
			spots = spots[:len(spots)-1]

			g.Swap(c, top)
			moves = append(moves, Move{From: c, To: top})
		}
	}
	return moves
}
