// internal/game/scene.go
//
// Player session: the scene shell around a Controller.
//
// Scenes are a closed set (start, help, options, play) and events are tagged
// structs; Dispatch switches exhaustively on both instead of looking up
// per-scene closures. Leaving the play scene aborts the running round.
//
// A Session is the unit of serialization: every exported method takes the
// session mutex and ticks the controller clock before acting, so the
// controller itself never sees concurrent calls.

package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/goback/internal/grid"
	"github.com/robalobadob/goback/internal/path"
	"github.com/robalobadob/goback/internal/recall"
)

// ErrUnsupportedEvent is returned when an event has no meaning in the
// current scene.
var ErrUnsupportedEvent = errors.New("game: event not supported in this scene")

// Scene is the screen the player is on.
type Scene string

const (
	SceneStart   Scene = "start"
	SceneHelp    Scene = "help"
	SceneOptions Scene = "options"
	ScenePlay    Scene = "play"
)

// Valid reports whether s is a known scene.
func (s Scene) Valid() bool {
	switch s {
	case SceneStart, SceneHelp, SceneOptions, ScenePlay:
		return true
	}
	return false
}

// Event is one of the tagged event structs below.
type Event interface{ event() }

// Navigate switches scenes. Navigating to play always starts a fresh round.
type Navigate struct{ To Scene }

// Click is a pointer click in canvas pixels on a Width×Height canvas.
type Click struct{ X, Y, Width, Height float64 }

// Select picks a cell by id, for clients that hit-test themselves.
type Select struct{ CellID int }

// Hint asks for the next required cell.
type Hint struct{}

// ToggleCrazy flips the adjacency mode.
type ToggleCrazy struct{}

// AdjustGrid changes the grid dimension by Delta.
type AdjustGrid struct{ Delta int }

// AdjustHideAfter changes the countdown length by Delta seconds.
type AdjustHideAfter struct{ Delta int }

// ToggleSound flips the sound option.
type ToggleSound struct{}

func (Navigate) event()        {}
func (Click) event()           {}
func (Select) event()          {}
func (Hint) event()            {}
func (ToggleCrazy) event()     {}
func (AdjustGrid) event()      {}
func (AdjustHideAfter) event() {}
func (ToggleSound) event()     {}

// Reply describes what an event did.
type Reply struct {
	Scene   Scene          `json:"scene"`
	CellID  *int           `json:"cellId,omitempty"`
	Outcome recall.Outcome `json:"outcome,omitempty"`
	Options Options        `json:"options"`
}

// View is a session snapshot.
type View struct {
	SessionID string   `json:"sessionId"`
	Scene     Scene    `json:"scene"`
	Options   Options  `json:"options"`
	Round     Snapshot `json:"round"`
}

// Session is one player's game.
type Session struct {
	mu       sync.Mutex
	id       string
	ownerID  string
	scene    Scene
	fixed    bool // play-only session (daily challenge)
	ctrl     *Controller
	lastSeen time.Time
}

// NewSession creates a session on the start scene.
func NewSession(id, ownerID string, opts Options, now time.Time, rnd path.Picker, logger zerolog.Logger) *Session {
	l := logger.With().Str("session", id).Logger()
	return &Session{
		id:       id,
		ownerID:  ownerID,
		scene:    SceneStart,
		ctrl:     NewController(opts, now, rnd, l),
		lastSeen: now,
	}
}

// NewFixedSession creates a single-round, play-only session: no scene
// changes, no option edits, no level up after the win.
func NewFixedSession(id, ownerID string, opts Options, now time.Time, rnd path.Picker, logger zerolog.Logger) (*Session, error) {
	s := NewSession(id, ownerID, opts, now, rnd, logger)
	s.fixed = true
	s.scene = ScenePlay
	s.ctrl.SetAutoAdvance(false)
	if err := s.ctrl.StartRound(s.ctrl.Options().GridDimension); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// OwnerID returns the user or anonymous id that created the session.
func (s *Session) OwnerID() string { return s.ownerID }

// SetHooks installs controller hooks. Hooks run with the session lock held
// and must not call back into the session.
func (s *Session) SetHooks(h Hooks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.SetHooks(h)
}

// LastSeen is the time of the last call into the session.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Tick advances the session clock and returns when it next needs a tick.
func (s *Session) Tick(now time.Time) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(now)
	return s.ctrl.NextDue()
}

// View ticks and renders the session for a width×height canvas.
func (s *Session) View(now time.Time, width, height float64) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(now)
	return View{
		SessionID: s.id,
		Scene:     s.scene,
		Options:   s.ctrl.Options(),
		Round:     s.ctrl.Snapshot(width, height),
	}
}

// Dispatch applies ev in the current scene.
func (s *Session) Dispatch(now time.Time, ev Event) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(now)

	rep, err := s.dispatch(ev)
	rep.Scene = s.scene
	rep.Options = s.ctrl.Options()
	return rep, err
}

func (s *Session) touch(now time.Time) {
	s.ctrl.Advance(now)
	if now.After(s.lastSeen) {
		s.lastSeen = now
	}
}

func (s *Session) dispatch(ev Event) (Reply, error) {
	if nav, ok := ev.(Navigate); ok {
		return Reply{}, s.navigate(nav.To)
	}
	switch s.scene {
	case ScenePlay:
		return s.play(ev)
	case SceneOptions:
		return Reply{}, s.editOptions(ev)
	case SceneStart, SceneHelp:
		return Reply{}, ErrUnsupportedEvent
	}
	return Reply{}, fmt.Errorf("game: unknown scene %q", s.scene)
}

func (s *Session) navigate(to Scene) error {
	if !to.Valid() {
		return fmt.Errorf("game: unknown scene %q", to)
	}
	if s.fixed {
		return ErrUnsupportedEvent
	}
	if to != ScenePlay {
		s.ctrl.Abort()
		s.scene = to
		return nil
	}
	s.scene = ScenePlay
	return s.ctrl.StartRound(s.ctrl.Options().GridDimension)
}

func (s *Session) play(ev Event) (Reply, error) {
	switch e := ev.(type) {
	case Click:
		id, out := s.ctrl.Click(e.X, e.Y, e.Width, e.Height)
		rep := Reply{Outcome: out}
		if out != recall.OutcomeIgnored {
			rep.CellID = &id
		}
		return rep, nil
	case Select:
		out := s.ctrl.Select(e.CellID)
		id := e.CellID
		return Reply{CellID: &id, Outcome: out}, nil
	case Hint:
		id, err := s.ctrl.Hint()
		if err != nil {
			return Reply{}, err
		}
		return Reply{CellID: &id, Outcome: recall.OutcomeAdvance}, nil
	case ToggleCrazy, AdjustGrid, AdjustHideAfter, ToggleSound, Navigate:
		return Reply{}, ErrUnsupportedEvent
	}
	return Reply{}, ErrUnsupportedEvent
}

func (s *Session) editOptions(ev Event) error {
	o := s.ctrl.Options()
	switch e := ev.(type) {
	case ToggleCrazy:
		if o.Mode == grid.ModeCrazy {
			o.Mode = grid.ModeOrthogonal
		} else {
			o.Mode = grid.ModeCrazy
		}
	case AdjustGrid:
		o.GridDimension += e.Delta
	case AdjustHideAfter:
		o.HideAfter += e.Delta
	case ToggleSound:
		o.Sound = !o.Sound
	default:
		return ErrUnsupportedEvent
	}
	s.ctrl.SetOptions(o)
	if h := s.ctrl.hooks.Options; h != nil {
		h(s.ctrl.Options())
	}
	return nil
}

// Options returns the session's options.
func (s *Session) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Options()
}

// Scene returns the current scene.
func (s *Session) Scene() Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene
}
