// internal/path/path.go
//
// Randomized path generation over a weighted grid.
//
// The walk is a depth-first search with full backtracking, kept on an explicit
// stack so large grids cannot exhaust the goroutine stack:
//   - mark the current cell visited and collect its unvisited neighbours;
//   - pick one uniformly at random and append it to the path;
//   - stop as soon as the picked cell has weight 1 (one step from the end);
//   - on a dead end drop the cell from the path and resume at its parent.
//
// Visited flags are never cleared, so every cell is expanded at most once and
// the walk either reaches a weight-1 cell or empties the stack.

package path

import (
	"errors"

	"github.com/robalobadob/goback/internal/grid"
)

// ErrExhausted is returned when every reachable cell was visited without
// reaching a weight-1 cell.
var ErrExhausted = errors.New("path: generation exhausted")

// Picker chooses an index in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type Picker interface {
	IntN(n int) int
}

// Generate walks from start and returns the ordered ids of the path,
// excluding start itself. The grid must already carry weights.
func Generate(g *grid.Grid, start *grid.Cell, mode grid.Mode, rnd Picker) ([]int, error) {
	if start.Weight == 1 {
		start.Visited = true
		return []int{}, nil
	}

	stack := []*grid.Cell{start}
	var out []int
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		cur.Visited = true

		nbrs := g.Neighbors(cur, mode)
		if len(nbrs) == 0 {
			// Dead end: backtrack. The start frame never appears in the path.
			stack = stack[:len(stack)-1]
			if len(out) > 0 && out[len(out)-1] == cur.ID {
				out = out[:len(out)-1]
			}
			continue
		}

		next := nbrs[rnd.IntN(len(nbrs))]
		out = append(out, next.ID)
		if next.Weight == 1 {
			return out, nil
		}
		stack = append(stack, next)
	}
	return nil, ErrExhausted
}
