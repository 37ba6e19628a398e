package grid

// AssignWeights gives every cell its distance ring relative to end.
//
//	S | 3 | 3 | 3
//	3 | 2 | 2 | 2
//	3 | 2 | 1 | 1
//	3 | 2 | 1 | E
//
// Rings grow outward as squares; the first ring to reach a cell wins, so the
// weight is the exact Chebyshev distance. The end cell is never weighted.
func (g *Grid) AssignWeights(end *Cell) {
	rings := max(end.X, end.Y, g.dim-end.X, g.dim-end.Y)
	for i := 0; i <= rings; i++ {
		for a := -i; a <= i; a++ {
			for b := -i; b <= i; b++ {
				c, ok := g.At(end.X+a, end.Y+b)
				if !ok || c.ID == end.ID || c.HasWeight() {
					continue
				}
				c.Weight = i
			}
		}
	}
}

// ClearWeights resets every cell to Unweighted.
func (g *Grid) ClearWeights() {
	for _, c := range g.cells {
		c.Weight = Unweighted
	}
}
