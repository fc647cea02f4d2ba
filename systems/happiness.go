package systems

// edgeOffsets are the up/down/left/right neighbours.
var edgeOffsets = [4]Cell{
	{Row: -1, Col: 0},
	{Row: 1, Col: 0},
	{Row: 0, Col: -1},
	{Row: 0, Col: 1},
}

// VisitNeighbors calls fn for each in-bounds neighbour of c. A diagonal is
// visited only when both the row and the column it is reached through are on
// the grid; the window never wraps.
func (g *Grid) VisitNeighbors(c Cell, fn func(n Cell, s CellState)) {
	for _, off := range edgeOffsets {
		if s, ok := g.At(c.Row+off.Row, c.Col+off.Col); ok {
			fn(Cell{Row: c.Row + off.Row, Col: c.Col + off.Col}, s)
		}
	}

	for _, dr := range [2]int{-1, 1} {
		if !g.InBounds(c.Row+dr, c.Col) {
			continue
		}
		for _, dc := range [2]int{-1, 1} {
			if !g.InBounds(c.Row, c.Col+dc) {
				continue
			}
			if s, ok := g.At(c.Row+dr, c.Col+dc); ok {
				fn(Cell{Row: c.Row + dr, Col: c.Col + dc}, s)
			}
		}
	}
}

// NeighborCounts returns how many occupied neighbours c has and how many of
// them share its state.
func NeighborCounts(g *Grid, c Cell) (same, occupied int) {
	self := g.Get(c)
	g.VisitNeighbors(c, func(_ Cell, s CellState) {
		if !s.Occupied() {
			return
		}
		occupied++
		if s == self {
			same++
		}
	})
	return same, occupied
}

// Happiness returns the fraction of c's occupied neighbours that share its
// type, in [0, 1]. An agent with no occupied neighbours is fully happy.
// Vacant cells score 0.
func Happiness(g *Grid, c Cell) float64 {
	if !g.Get(c).Occupied() {
		return 0
	}
	return happinessRatio(NeighborCounts(g, c))
}

func happinessRatio(same, occupied int) float64 {
	if occupied == 0 {
		return 1.0
	}
	return float64(same) / float64(occupied)
}

// Segregation returns the share of occupied neighbour links on the grid that
// join agents of the same type, or 0 when there are none.
func Segregation(g *Grid) float64 {
	return Assess(g, 0).Segregation()
}
