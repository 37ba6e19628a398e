// internal/recall/recall.go
//
// Recall state machine for one round.
// Responsibilities:
//   - Hold the remaining (unconsumed) suffix of the generated path.
//   - Classify each selection as advance / partial / mismatch.
//   - Apply hints (pop the required cell without a guess).
//   - Track phase transitions: revealing → hiding → recalling → won | aborted.
//
// The player walks the path backwards, so the required cell is always the
// tail of the remaining path.

package recall

import (
	"errors"
	"slices"

	"github.com/zyedidia/generic/mapset"

	"github.com/robalobadob/goback/internal/grid"
)

var (
	// ErrHintUnavailable is returned when there is nothing left to reveal.
	ErrHintUnavailable = errors.New("recall: no hint available")
	// ErrNotRecalling is returned for hints requested before the path is hidden.
	ErrNotRecalling = errors.New("recall: not recalling")
)

// Phase is the round's position in the reveal/recall cycle.
type Phase string

const (
	PhaseRevealing Phase = "revealing"
	PhaseHiding    Phase = "hiding"
	PhaseRecalling Phase = "recalling"
	PhaseWon       Phase = "won"
	PhaseAborted   Phase = "aborted"
)

// Outcome classifies a single selection.
//   - "advance":  the cell is the next one required.
//   - "partial":  the cell is on the remaining path, but not next.
//   - "mismatch": the cell is not on the remaining path.
//   - "ignored":  the selection had no effect (wrong phase, locked cell, anchor).
type Outcome string

const (
	OutcomeAdvance  Outcome = "advance"
	OutcomePartial  Outcome = "partial"
	OutcomeMismatch Outcome = "mismatch"
	OutcomeIgnored  Outcome = "ignored"
)

// Mark is the feedback a cell currently shows.
type Mark string

const (
	MarkNone    Mark = ""
	MarkCorrect Mark = "correct"
	MarkPartial Mark = "partial"
	MarkWrong   Mark = "wrong"
)

// Machine validates selections against the remaining path.
type Machine struct {
	g         *grid.Grid
	phase     Phase
	remaining []int
	marks     map[int]Mark
	locked    mapset.Set[int] // resolved cells; further selections are ignored
	claimed   mapset.Set[int]
	hints     int
	mistakes  int
}

// New starts a machine in the revealing phase. The path is copied; anchors
// are locked from the start.
func New(g *grid.Grid, path []int) *Machine {
	m := &Machine{
		g:         g,
		phase:     PhaseRevealing,
		remaining: slices.Clone(path),
		marks:     make(map[int]Mark),
		locked:    mapset.New[int](),
		claimed:   mapset.New[int](),
	}
	m.locked.Put(g.Start().ID)
	m.locked.Put(g.End().ID)
	return m
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// Won reports whether the remaining path has been drained.
func (m *Machine) Won() bool { return m.phase == PhaseWon }

// BeginHiding moves revealing → hiding.
func (m *Machine) BeginHiding() bool {
	if m.phase != PhaseRevealing {
		return false
	}
	m.phase = PhaseHiding
	return true
}

// BeginRecall opens the machine for selections. An empty path wins at once.
func (m *Machine) BeginRecall() bool {
	if m.phase != PhaseRevealing && m.phase != PhaseHiding {
		return false
	}
	m.phase = PhaseRecalling
	if len(m.remaining) == 0 {
		m.phase = PhaseWon
	}
	return true
}

// Abort ends an unfinished round.
func (m *Machine) Abort() bool {
	if m.phase == PhaseWon || m.phase == PhaseAborted {
		return false
	}
	m.phase = PhaseAborted
	return true
}

// Submit classifies a selection and applies it.
func (m *Machine) Submit(id int) Outcome {
	if m.phase != PhaseRecalling {
		return OutcomeIgnored
	}
	if _, ok := m.g.Cell(id); !ok || m.locked.Has(id) {
		return OutcomeIgnored
	}
	if head, ok := m.Head(); ok && head == id {
		m.resolve(id)
		return OutcomeAdvance
	}
	if slices.Contains(m.remaining, id) {
		m.marks[id] = MarkPartial
		return OutcomePartial
	}
	m.marks[id] = MarkWrong
	m.locked.Put(id)
	m.mistakes++
	return OutcomeMismatch
}

// Hint resolves the required cell without a guess and returns its id.
func (m *Machine) Hint() (int, error) {
	head, ok := m.Head()
	if !ok {
		return 0, ErrHintUnavailable
	}
	if m.phase != PhaseRecalling {
		return 0, ErrNotRecalling
	}
	m.resolve(head)
	m.hints++
	return head, nil
}

// resolve pops the tail, which must be id.
func (m *Machine) resolve(id int) {
	m.remaining = m.remaining[:len(m.remaining)-1]
	m.marks[id] = MarkCorrect
	m.locked.Put(id)
	m.claimed.Put(id)
	if c, ok := m.g.Cell(id); ok {
		c.Claimed = true
	}
	if len(m.remaining) == 0 {
		m.phase = PhaseWon
	}
}

// Head returns the cell the player must select next.
func (m *Machine) Head() (int, bool) {
	if len(m.remaining) == 0 {
		return 0, false
	}
	return m.remaining[len(m.remaining)-1], true
}

// Remaining returns a copy of the unconsumed path.
func (m *Machine) Remaining() []int { return slices.Clone(m.remaining) }

// Mark returns the feedback shown on a cell.
func (m *Machine) Mark(id int) Mark { return m.marks[id] }

// Claimed returns the resolved-correct cell ids in ascending order.
func (m *Machine) Claimed() []int {
	out := make([]int, 0, m.claimed.Size())
	m.claimed.Each(func(id int) { out = append(out, id) })
	slices.Sort(out)
	return out
}

// Hints counts hints consumed this round.
func (m *Machine) Hints() int { return m.hints }

// Mistakes counts mismatches this round.
func (m *Machine) Mistakes() int { return m.mistakes }
