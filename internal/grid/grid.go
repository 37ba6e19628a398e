// internal/grid/grid.go
//
// Grid model for a single round.
// Responsibilities:
//   - Allocate dimension² cells with stable ids (x + y*dimension).
//   - Bounds-checked lookups by coordinate and by id.
//   - Neighbour topology for the two adjacency modes.
//   - Chebyshev distance-ring weights relative to the end cell (weights.go).
//
// A Grid is owned by exactly one round and is never shared or reused.

package grid

import (
	"errors"
	"fmt"
)

// MinDimension is the smallest playable grid.
const MinDimension = 3

// Unweighted marks a cell that has not received a weight yet.
const Unweighted = -1

// ErrInvalidDimension is returned by New for dimensions below MinDimension.
var ErrInvalidDimension = errors.New("grid: invalid dimension")

// Mode selects the adjacency rules used for neighbour scans.
type Mode string

const (
	// ModeOrthogonal is the forward scan: down, right and down-right.
	ModeOrthogonal Mode = "orthogonal"
	// ModeCrazy is the full Moore neighbourhood.
	ModeCrazy Mode = "crazy"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ModeOrthogonal || m == ModeCrazy }

// Cell is a single grid square.
type Cell struct {
	ID      int  // x + y*dimension
	X, Y    int  // 0-indexed coordinate
	Visited bool // set during path generation only
	Weight  int  // Chebyshev distance to the end cell, or Unweighted
	Claimed bool // resolved as correct during recall
}

// HasWeight reports whether the weight assigner reached this cell.
func (c *Cell) HasWeight() bool { return c.Weight != Unweighted }

// Grid is a square of cells indexed by id.
type Grid struct {
	dim   int
	cells []*Cell
}

// New allocates a dim×dim grid. Start and end cells are pre-marked visited.
func New(dim int) (*Grid, error) {
	if dim < MinDimension {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}
	g := &Grid{dim: dim, cells: make([]*Cell, dim*dim)}
	for j := 0; j < dim; j++ {
		for i := 0; i < dim; i++ {
			id := i + j*dim
			g.cells[id] = &Cell{ID: id, X: i, Y: j, Weight: Unweighted}
		}
	}
	g.Start().Visited = true
	g.End().Visited = true
	return g, nil
}

// Dimension returns the number of cells in a row.
func (g *Grid) Dimension() int { return g.dim }

// Len returns the number of cells.
func (g *Grid) Len() int { return len(g.cells) }

// Cells returns the cells in id order. The slice is shared; do not append to it.
func (g *Grid) Cells() []*Cell { return g.cells }

// At returns the cell at (x, y), or false when the coordinate lies outside the grid.
func (g *Grid) At(x, y int) (*Cell, bool) {
	if x < 0 || x >= g.dim || y < 0 || y >= g.dim {
		return nil, false
	}
	return g.cells[x+y*g.dim], true
}

// Cell returns the cell with the given id.
func (g *Grid) Cell(id int) (*Cell, bool) {
	if id < 0 || id >= len(g.cells) {
		return nil, false
	}
	return g.cells[id], true
}

// Start is the top-left anchor.
func (g *Grid) Start() *Cell { return g.cells[0] }

// End is the bottom-right anchor.
func (g *Grid) End() *Cell { return g.cells[len(g.cells)-1] }

// IsAnchor reports whether id is the start or end cell.
func (g *Grid) IsAnchor(id int) bool { return id == 0 || id == len(g.cells)-1 }

// Neighbors returns the unvisited neighbours of c under mode.
// The scan runs x-offset outer, y-offset inner; orthogonal mode only looks
// forward (offsets 0..1), which biases walks toward the bottom-right corner.
func (g *Grid) Neighbors(c *Cell, mode Mode) []*Cell {
	lo := 0
	if mode == ModeCrazy {
		lo = -1
	}
	out := make([]*Cell, 0, 8)
	for a := lo; a < 2; a++ {
		for b := lo; b < 2; b++ {
			n, ok := g.At(c.X+a, c.Y+b)
			if !ok || n.ID == c.ID || n.Visited {
				continue
			}
			out = append(out, n)
		}
	}
	return out
}

// Adjacent reports whether b is a legal single step from a under mode,
// ignoring visited state.
func (g *Grid) Adjacent(a, b *Cell, mode Mode) bool {
	dx, dy := b.X-a.X, b.Y-a.Y
	if dx == 0 && dy == 0 {
		return false
	}
	if mode == ModeCrazy {
		return abs(dx) <= 1 && abs(dy) <= 1
	}
	return (dx == 0 || dx == 1) && (dy == 0 || dy == 1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
