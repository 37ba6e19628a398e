// internal/game/engine.go
//
// Round controller.
// Responsibilities:
//   - Build a round: grid → weights → path → recall machine.
//   - Drive the reveal stagger, the hide countdown and the hide itself on the
//     virtual-clock scheduler.
//   - Route selections and hints into the recall machine and emit cues.
//   - Level up after a win (grid dimension + 1) and start the next round.
//
// Notes:
//   - Not safe for concurrent use; Session serializes access.
//   - Every timer of a round lives in the round's timers.Group; starting,
//     restarting or aborting a round releases the previous group first.

package game

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/robalobadob/goback/internal/grid"
	"github.com/robalobadob/goback/internal/path"
	"github.com/robalobadob/goback/internal/recall"
	"github.com/robalobadob/goback/internal/timers"
)

const (
	RevealStagger = 300 * time.Millisecond
	CountdownTick = time.Second
	WinDelay      = 300 * time.Millisecond

	// GoBack is the terminal countdown display; selections open once it shows.
	GoBack = "Go Back!"
	// NoHintNotice is shown when a hint is requested with nothing left.
	NoHintNotice = "Seriously!!"
)

// Round is the state owned by a single round.
type Round struct {
	ID        string
	Dimension int
	Mode      grid.Mode
	Grid      *grid.Grid
	Path      []int
	Machine   *recall.Machine
	StartedAt time.Time

	order     map[int]int // path id → index
	timers    *timers.Group
	revealed  int // leading path cells currently shown
	countdown string
	notice    string
}

// Timers exposes the round's timer group.
func (r *Round) Timers() *timers.Group { return r.timers }

// Controller runs rounds for one player.
type Controller struct {
	opts        Options
	sched       *timers.Scheduler
	rnd         path.Picker
	round       *Round
	autoAdvance bool
	hooks       Hooks
	log         zerolog.Logger
}

// NewController creates a controller whose clock starts at now.
func NewController(opts Options, now time.Time, rnd path.Picker, logger zerolog.Logger) *Controller {
	return &Controller{
		opts:        opts.Clamp(),
		sched:       timers.New(now),
		rnd:         rnd,
		autoAdvance: true,
		log:         logger,
	}
}

// SetHooks installs notification callbacks.
func (c *Controller) SetHooks(h Hooks) { c.hooks = h }

// SetAutoAdvance controls whether a win starts the next level.
func (c *Controller) SetAutoAdvance(on bool) { c.autoAdvance = on }

// Options returns the active options.
func (c *Controller) Options() Options { return c.opts }

// SetOptions replaces the options; they apply from the next round.
func (c *Controller) SetOptions(o Options) { c.opts = o.Clamp() }

// Round returns the current round, or nil before the first one.
func (c *Controller) Round() *Round { return c.round }

// Scheduler exposes the controller's clock.
func (c *Controller) Scheduler() *timers.Scheduler { return c.sched }

// Advance is the tick: it moves the clock to now and fires due timers.
func (c *Controller) Advance(now time.Time) int { return c.sched.Advance(now) }

// NextDue returns when the controller next needs a tick.
func (c *Controller) NextDue() (time.Time, bool) { return c.sched.NextDue() }

// StartRound ends the current round and builds a new one at dim
// (clamped to the valid range).
func (c *Controller) StartRound(dim int) error {
	c.endCurrent()
	c.round = nil

	dim = clampDimension(dim)
	c.opts.GridDimension = dim
	mode := c.opts.Mode

	g, err := grid.New(dim)
	if err != nil {
		return fmt.Errorf("start round: %w", err)
	}
	g.AssignWeights(g.End())
	p, err := path.Generate(g, g.Start(), mode, c.rnd)
	if err != nil {
		c.log.Error().Err(err).Int("dim", dim).Str("mode", string(mode)).Msg("path generation failed")
		return fmt.Errorf("start round: %w", err)
	}

	r := &Round{
		ID:        uuid.NewString(),
		Dimension: dim,
		Mode:      mode,
		Grid:      g,
		Path:      p,
		Machine:   recall.New(g, p),
		StartedAt: c.sched.Now(),
		order:     make(map[int]int, len(p)),
		timers:    c.sched.NewGroup(),
	}
	for i, id := range p {
		r.order[id] = i
	}
	c.round = r
	c.log.Info().Str("round", r.ID).Int("dim", dim).Str("mode", string(mode)).Int("pathLen", len(p)).Msg("round started")

	c.scheduleReveal(r, c.opts.HideAfter)
	return nil
}

// scheduleReveal shows the path one cell per stagger, counts down, then hides
// the path and opens the recall phase.
func (c *Controller) scheduleReveal(r *Round, hideAfter int) {
	for i := range r.Path {
		shown := i + 1
		r.timers.After(time.Duration(i)*RevealStagger, func() {
			r.revealed = shown
			c.emit(CueRevealStep)
		})
	}

	revealDone := time.Duration(len(r.Path)) * RevealStagger
	var tick timers.Token

	// Registered before the countdown interval so that, when both fall due
	// together, the hide wins and the interval never fires a last time.
	r.timers.After(revealDone+time.Duration(hideAfter)*time.Second, func() {
		r.timers.Cancel(tick)
		r.countdown = GoBack
		r.revealed = 0
		r.Machine.BeginRecall()
		c.emit(CueRoundStart)
		if r.Machine.Won() {
			c.win(r)
		}
	})

	r.timers.After(revealDone, func() {
		r.Machine.BeginHiding()
		left := hideAfter
		r.countdown = strconv.Itoa(left)
		tick = r.timers.Every(CountdownTick, func() {
			left--
			if left > 0 {
				r.countdown = strconv.Itoa(left)
			} else {
				r.countdown = GoBack
			}
			c.emit(CueCountdownTick)
		})
	})
}

// Select submits a cell id for the current round.
func (c *Controller) Select(id int) recall.Outcome {
	r := c.round
	if r == nil {
		return recall.OutcomeIgnored
	}
	out := r.Machine.Submit(id)
	switch out {
	case recall.OutcomeAdvance:
		c.emit(CueAdvance)
		if r.Machine.Won() {
			c.win(r)
		}
	case recall.OutcomePartial:
		c.emit(CuePartial)
	case recall.OutcomeMismatch:
		c.emit(CueMismatch)
	case recall.OutcomeIgnored:
	}
	return out
}

// Click resolves a canvas coordinate and selects the cell under it.
func (c *Controller) Click(px, py, width, height float64) (int, recall.Outcome) {
	r := c.round
	if r == nil {
		return 0, recall.OutcomeIgnored
	}
	id, ok := NewLayout(width, height, r.Dimension).CellAt(px, py)
	if !ok {
		return 0, recall.OutcomeIgnored
	}
	return id, c.Select(id)
}

// Hint resolves the required cell for the player.
func (c *Controller) Hint() (int, error) {
	r := c.round
	if r == nil {
		return 0, recall.ErrNotRecalling
	}
	id, err := r.Machine.Hint()
	if errors.Is(err, recall.ErrHintUnavailable) {
		r.notice = NoHintNotice
	}
	if err != nil {
		return 0, err
	}
	if r.Machine.Won() {
		c.win(r)
	}
	return id, nil
}

// Abort ends the current round without a win.
func (c *Controller) Abort() { c.endCurrent() }

func (c *Controller) endCurrent() {
	r := c.round
	if r == nil {
		return
	}
	r.timers.Release()
	recalled := r.Machine.Phase() == recall.PhaseRecalling
	if r.Machine.Abort() {
		c.log.Info().Str("round", r.ID).Bool("recalled", recalled).Msg("round aborted")
		c.finish(r, false, recalled)
	}
}

func (c *Controller) win(r *Round) {
	c.log.Info().Str("round", r.ID).Int("hints", r.Machine.Hints()).Int("mistakes", r.Machine.Mistakes()).Msg("round won")
	c.finish(r, true, true)
	if !c.autoAdvance {
		r.timers.Release()
		return
	}
	r.timers.After(WinDelay, func() {
		c.opts.GridDimension = clampDimension(r.Dimension + 1)
		if c.hooks.Options != nil {
			c.hooks.Options(c.opts)
		}
		if err := c.StartRound(c.opts.GridDimension); err != nil {
			c.log.Error().Err(err).Msg("next level")
		}
	})
}

func (c *Controller) finish(r *Round, won, recalled bool) {
	if c.hooks.Finish == nil {
		return
	}
	c.hooks.Finish(Result{
		RoundID:   r.ID,
		Dimension: r.Dimension,
		Mode:      r.Mode,
		PathLen:   len(r.Path),
		Hints:     r.Machine.Hints(),
		Mistakes:  r.Machine.Mistakes(),
		Won:       won,
		Recalled:  recalled,
		StartedAt: r.StartedAt,
		Elapsed:   c.sched.Now().Sub(r.StartedAt),
	})
}

func (c *Controller) emit(cue Cue) {
	if c.hooks.Cue != nil {
		c.hooks.Cue(cue)
	}
}

// Snapshot renders the current round for a width×height canvas.
func (c *Controller) Snapshot(width, height float64) Snapshot {
	s := Snapshot{
		Dimension: c.opts.GridDimension,
		Mode:      c.opts.Mode,
		Phase:     PhaseBuilding,
		Sound:     c.opts.Sound,
		Cells:     []CellView{},
	}
	r := c.round
	if r == nil {
		return s
	}
	s.RoundID = r.ID
	s.Dimension = r.Dimension
	s.Mode = r.Mode
	s.Phase = string(r.Machine.Phase())
	s.Countdown = r.countdown
	s.Notice = r.notice
	s.Remaining = len(r.Machine.Remaining())
	s.Hints = r.Machine.Hints()
	s.Mistakes = r.Machine.Mistakes()

	l := NewLayout(width, height, r.Dimension)
	s.Cells = make([]CellView, 0, r.Grid.Len())
	for _, cell := range r.Grid.Cells() {
		s.Cells = append(s.Cells, CellView{
			ID:    cell.ID,
			X:     cell.X,
			Y:     cell.Y,
			Rect:  l.Box(cell.X, cell.Y),
			State: c.cellState(r, cell),
		})
	}
	return s
}

func (c *Controller) cellState(r *Round, cell *grid.Cell) CellState {
	if r.Grid.IsAnchor(cell.ID) {
		return StateAnchor
	}
	switch r.Machine.Mark(cell.ID) {
	case recall.MarkCorrect:
		return StateCorrect
	case recall.MarkPartial:
		return StatePartial
	case recall.MarkWrong:
		return StateWrong
	case recall.MarkNone:
	}
	if i, ok := r.order[cell.ID]; ok && i < r.revealed {
		return StatePath
	}
	return StateIdle
}
