package game

import "math"

// DefaultMargin is the gap between the canvas edge and the grid. The top
// margin is one and a half times larger to leave room for the countdown.
const DefaultMargin = 40.0

// Rect is a screen-space box; X/Y is the top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether (px, py) lies strictly inside r.
func (r Rect) Contains(px, py float64) bool {
	return px > r.X && px < r.X+r.W && py > r.Y && py < r.Y+r.H
}

// Layout maps grid cells to canvas coordinates. The grid is drawn in a
// square the size of the shorter canvas side.
type Layout struct {
	dim     int
	margin  float64
	cell    float64
	padding float64
}

// NewLayout builds the layout for a width×height canvas.
func NewLayout(width, height float64, dim int) Layout {
	side := math.Min(width, height)
	l := Layout{dim: dim, margin: DefaultMargin}
	if dim > 0 {
		l.cell = (side - 2*l.margin) / float64(dim)
	}
	l.padding = l.cell / 25
	return l
}

// Slot is the full area reserved for the cell at (x, y).
func (l Layout) Slot(x, y int) Rect {
	return Rect{
		X: float64(x)*l.cell + l.margin,
		Y: float64(y)*l.cell + 1.5*l.margin,
		W: l.cell,
		H: l.cell,
	}
}

// Box is the drawn cell: the slot inset by the padding.
func (l Layout) Box(x, y int) Rect {
	s := l.Slot(x, y)
	return Rect{X: s.X + l.padding, Y: s.Y + l.padding, W: s.W - 2*l.padding, H: s.H - 2*l.padding}
}

// CellAt resolves a canvas coordinate to a cell id. Points in the padding
// between cells, or outside the grid, resolve to nothing.
func (l Layout) CellAt(px, py float64) (int, bool) {
	if l.cell <= 0 {
		return 0, false
	}
	x := int(math.Floor((px - l.margin) / l.cell))
	y := int(math.Floor((py - 1.5*l.margin) / l.cell))
	if x < 0 || x >= l.dim || y < 0 || y >= l.dim {
		return 0, false
	}
	if !l.Box(x, y).Contains(px, py) {
		return 0, false
	}
	return x + y*l.dim, true
}
