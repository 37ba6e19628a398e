// internal/httpserver/routes_game.go
//
// Game session endpoints:
//   - POST /game/new              → create a session (optionally jump to a scene)
//   - GET  /game/{id}             → current view (?w=&h= canvas size)
//   - POST /game/{id}/click       → canvas click {x, y, width, height}
//   - POST /game/{id}/select      → cell pick by id {cellId}
//   - POST /game/{id}/hint        → resolve the required cell
//   - POST /game/{id}/scene       → navigate {scene}
//   - POST /game/{id}/options     → edit an option {action}
//
// Every call ticks the session clock to the request time before acting, and
// wakes the session's event loop afterwards.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/goback/internal/daily"
	"github.com/robalobadob/goback/internal/game"
	"github.com/robalobadob/goback/internal/path"
	"github.com/robalobadob/goback/internal/realtime"
	"github.com/robalobadob/goback/internal/recall"
)

// Canvas used for views when the client does not send its size.
const (
	defaultWidth  = 600.0
	defaultHeight = 600.0
)

func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Get("/game/{id}", s.withSession(s.handleView))
	r.Post("/game/{id}/click", s.withSession(s.handleClick))
	r.Post("/game/{id}/select", s.withSession(s.handleSelect))
	r.Post("/game/{id}/hint", s.withSession(s.handleHint))
	r.Post("/game/{id}/scene", s.withSession(s.handleScene))
	r.Post("/game/{id}/options", s.withSession(s.handleOptions))
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *game.Session)

// withSession loads {id} from the store and checks the caller owns it.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil || !canAccess(r, sess.OwnerID()) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		h(w, r, sess)
	}
}

// actionRes is returned by every session endpoint.
type actionRes struct {
	Reply *game.Reply `json:"reply,omitempty"`
	View  game.View   `json:"view"`
}

// ------------------------------- create ------------------------------------

type newGameReq struct {
	Scene  game.Scene `json:"scene"` // optional; "play" starts a round immediately
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
}

type newGameRes struct {
	GameID string    `json:"gameId"`
	View   game.View `json:"view"`
}

// handleNewGame creates a session with the owner's saved options (or the
// server defaults).
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Scene != "" && !req.Scene.Valid() {
		writeError(w, http.StatusBadRequest, "unknown_scene")
		return
	}

	own := s.ownerOf(w, r)
	opts := s.cfg.Defaults
	if saved, ok, err := s.prefs.Load(r.Context(), own.ID); err != nil {
		log.Warn().Err(err).Str("owner", own.ID).Msg("load options")
	} else if ok {
		opts = saved
	}

	now := s.now()
	sess := game.NewSession(uuid.NewString(), own.ID, opts, now, s.newRand(), log.Logger)
	s.attachHooks(sess, own, nil)
	if err := s.store.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	if req.Scene != "" && req.Scene != game.SceneStart {
		if _, err := sess.Dispatch(now, game.Navigate{To: req.Scene}); err != nil {
			s.writeDispatchError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(newGameRes{
		GameID: sess.ID(),
		View:   sess.View(now, orDefault(req.Width, defaultWidth), orDefault(req.Height, defaultHeight)),
	})
}

// attachHooks wires a session's notifications to the event hub and the
// database. ch is non-nil for daily challenge sessions.
func (s *Server) attachHooks(sess *game.Session, own owner, ch *daily.Challenge) {
	id := sess.ID()
	sess.SetHooks(game.Hooks{
		Cue: func(c game.Cue) {
			s.hub.Publish(id, realtime.Event{Name: "cue", Data: string(c)})
		},
		Finish: func(res game.Result) {
			s.persistRound(own, res)
			if ch != nil && res.Won {
				s.daily.record(own, *ch, res)
			}
			b, _ := json.Marshal(map[string]any{
				"roundId":   res.RoundID,
				"status":    roundStatus(res),
				"dimension": res.Dimension,
				"hints":     res.Hints,
				"mistakes":  res.Mistakes,
				"elapsedMs": res.Elapsed.Milliseconds(),
			})
			s.hub.Publish(id, realtime.Event{Name: "finish", Data: string(b)})
		},
		Options: func(o game.Options) {
			if ch == nil {
				s.savePrefs(own, o)
			}
			s.hub.Publish(id, realtime.Event{Name: "state"})
		},
	})
}

// -------------------------------- read -------------------------------------

func (s *Server) handleView(w http.ResponseWriter, r *http.Request, sess *game.Session) {
	width, height := canvasFromQuery(r)
	_ = json.NewEncoder(w).Encode(actionRes{View: sess.View(s.now(), width, height)})
}

// ------------------------------- actions -----------------------------------

type clickReq struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request, sess *game.Session) {
	var req clickReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	req.Width, req.Height = orDefault(req.Width, defaultWidth), orDefault(req.Height, defaultHeight)
	s.dispatch(w, sess, game.Click{X: req.X, Y: req.Y, Width: req.Width, Height: req.Height}, req.Width, req.Height)
}

type selectReq struct {
	CellID *int `json:"cellId"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request, sess *game.Session) {
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CellID == nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	width, height := canvasFromQuery(r)
	s.dispatch(w, sess, game.Select{CellID: *req.CellID}, width, height)
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request, sess *game.Session) {
	width, height := canvasFromQuery(r)
	s.dispatch(w, sess, game.Hint{}, width, height)
}

type sceneReq struct {
	Scene game.Scene `json:"scene"`
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request, sess *game.Session) {
	var req sceneReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if !req.Scene.Valid() {
		writeError(w, http.StatusBadRequest, "unknown_scene")
		return
	}
	width, height := canvasFromQuery(r)
	s.dispatch(w, sess, game.Navigate{To: req.Scene}, width, height)
}

// optionActions maps the options-screen buttons to events.
var optionActions = map[string]game.Event{
	"toggleCrazy":   game.ToggleCrazy{},
	"gridDown":      game.AdjustGrid{Delta: -1},
	"gridUp":        game.AdjustGrid{Delta: 1},
	"hideAfterDown": game.AdjustHideAfter{Delta: -1},
	"hideAfterUp":   game.AdjustHideAfter{Delta: 1},
	"toggleSound":   game.ToggleSound{},
}

type optionsReq struct {
	Action string `json:"action"`
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request, sess *game.Session) {
	var req optionsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	ev, ok := optionActions[req.Action]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_action")
		return
	}
	width, height := canvasFromQuery(r)
	s.dispatch(w, sess, ev, width, height)
}

// dispatch applies ev at the request time and answers with the reply and
// the resulting view.
func (s *Server) dispatch(w http.ResponseWriter, sess *game.Session, ev game.Event, width, height float64) {
	now := s.now()
	rep, err := sess.Dispatch(now, ev)
	s.hub.Wake(sess.ID())
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}
	s.hub.Publish(sess.ID(), realtime.Event{Name: "state"})
	_ = json.NewEncoder(w).Encode(actionRes{Reply: &rep, View: sess.View(now, width, height)})
}

func (s *Server) writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrUnsupportedEvent):
		writeError(w, http.StatusConflict, "unsupported_event")
	case errors.Is(err, recall.ErrHintUnavailable):
		writeError(w, http.StatusConflict, "hint_unavailable")
	case errors.Is(err, recall.ErrNotRecalling):
		writeError(w, http.StatusConflict, "not_recalling")
	case errors.Is(err, path.ErrExhausted):
		log.Error().Err(err).Msg("round start")
		writeError(w, http.StatusInternalServerError, "round_failed")
	default:
		log.Error().Err(err).Msg("dispatch")
		writeError(w, http.StatusInternalServerError, "dispatch_failed")
	}
}

// canvasFromQuery reads ?w=&h=, falling back to the default canvas.
func canvasFromQuery(r *http.Request) (float64, float64) {
	q := r.URL.Query()
	width, _ := strconv.ParseFloat(q.Get("w"), 64)
	height, _ := strconv.ParseFloat(q.Get("h"), 64)
	return orDefault(width, defaultWidth), orDefault(height, defaultHeight)
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
