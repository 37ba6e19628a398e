// internal/game/types.go
//
// Core type definitions for the round controller.
// Defines:
//   - Cue: abstract audio cue identifiers emitted by the controller.
//   - CellState: the colour state a drawing layer should use for a cell.
//   - Snapshot / CellView: the render model handed to clients.
//   - Result: summary of a finished (won or aborted) round.

package game

import (
	"time"

	"github.com/robalobadob/goback/internal/grid"
)

// Cue names a sound the client may play. The controller emits cues
// regardless of whether sound is enabled.
type Cue string

const (
	CueAdvance       Cue = "advance"
	CuePartial       Cue = "partial"
	CueMismatch      Cue = "mismatch"
	CueRevealStep    Cue = "reveal-step"
	CueCountdownTick Cue = "countdown-tick"
	CueRoundStart    Cue = "round-start"
)

// CellState is the colour state of a cell.
//   - "anchor":  start or end cell.
//   - "idle":    a puzzle cell with no feedback.
//   - "path":    revealed path cell (reveal/countdown only).
//   - "correct": resolved in order, or by a hint.
//   - "partial": on the remaining path, selected out of order.
//   - "wrong":   not on the path.
type CellState string

const (
	StateAnchor  CellState = "anchor"
	StateIdle    CellState = "idle"
	StatePath    CellState = "path"
	StateCorrect CellState = "correct"
	StatePartial CellState = "partial"
	StateWrong   CellState = "wrong"
)

// PhaseBuilding is reported while no round exists.
const PhaseBuilding = "building"

// CellView is one cell of a Snapshot.
type CellView struct {
	ID    int       `json:"id"`
	X     int       `json:"x"`
	Y     int       `json:"y"`
	Rect  Rect      `json:"rect"`
	State CellState `json:"state"`
}

// Snapshot is everything a drawing layer needs for one frame.
// It never contains the hidden path itself.
type Snapshot struct {
	RoundID   string     `json:"roundId,omitempty"`
	Dimension int        `json:"dimension"`
	Mode      grid.Mode  `json:"mode"`
	Phase     string     `json:"phase"`
	Countdown string     `json:"countdown"`
	Notice    string     `json:"notice,omitempty"`
	Remaining int        `json:"remaining"`
	Hints     int        `json:"hints"`
	Mistakes  int        `json:"mistakes"`
	Sound     bool       `json:"sound"`
	Cells     []CellView `json:"cells"`
}

// Result summarizes a finished round.
type Result struct {
	RoundID   string
	Dimension int
	Mode      grid.Mode
	PathLen   int
	Hints     int
	Mistakes  int
	Won       bool
	// Recalled is set once the path was hidden; aborting earlier abandons
	// the round rather than losing it.
	Recalled  bool
	StartedAt time.Time
	Elapsed   time.Duration
}

// Hooks receive controller notifications. Nil hooks are skipped.
type Hooks struct {
	Cue     func(Cue)
	Finish  func(Result)
	Options func(Options) // options changed by the controller (level up)
}
