// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes three endpoints under /daily:
//   - GET  /daily/today       → today's challenge parameters
//   - POST /daily/new         → start today's round (creates or reuses a session)
//   - GET  /daily/leaderboard → top 20 results for today (or ?date=YYYY-MM-DD)
//
// The round itself is played through the regular /game/{id} endpoints; daily
// sessions are play-only and never level up. Each owner has one recorded
// result per day (enforced by the UNIQUE(user_id, date) constraint).

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/goback/internal/daily"
	"github.com/robalobadob/goback/internal/game"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	sessions map[string]string // owner|date → session id
	mu       sync.Mutex        // guards sessions
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	s.daily = &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     s.cfg.DailySalt,
		sessions: make(map[string]string),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Get("/today", s.daily.handleToday)
		r.Post("/new", s.daily.handleNew)
		r.Get("/leaderboard", s.daily.handleLeaderboard)
	})
}

func (d *dailyServer) today() daily.Challenge {
	return daily.For(d.srv.now(), d.salt)
}

func (d *dailyServer) handleToday(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(d.today())
}

// -----------------------------------------------------------------------------
// /daily/new

// dailyNewRes is returned by /daily/new.
type dailyNewRes struct {
	GameID    string          `json:"gameId,omitempty"`
	Challenge daily.Challenge `json:"challenge"`
	Played    bool            `json:"played"`
	View      *game.View      `json:"view,omitempty"`
}

// handleNew creates or reuses today's session.
//   - If the owner already has a result for today → Played=true.
//   - Otherwise reuse the live session for owner|date, or start a new one.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	s := d.srv
	own := s.ownerOf(w, r)
	c := d.today()

	if played, err := d.store.AlreadyPlayed(r.Context(), own.ID, c.Date); err != nil {
		log.Warn().Err(err).Msg("daily already played")
	} else if played {
		_ = json.NewEncoder(w).Encode(dailyNewRes{Challenge: c, Played: true})
		return
	}

	width, height := canvasFromQuery(r)
	now := s.now()
	key := own.ID + "|" + c.Date

	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.sessions[key]; ok {
		if sess, err := s.store.Get(r.Context(), id); err == nil {
			v := sess.View(now, width, height)
			_ = json.NewEncoder(w).Encode(dailyNewRes{GameID: id, Challenge: c, View: &v})
			return
		}
		delete(d.sessions, key) // pruned
	}

	sound := s.cfg.Defaults.Sound
	if saved, ok, err := s.prefs.Load(r.Context(), own.ID); err == nil && ok {
		sound = saved.Sound
	}
	sess, err := game.NewFixedSession(uuid.NewString(), own.ID, c.Options(sound), now, c.Rand(), log.Logger)
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}
	s.attachHooks(sess, own, &c)
	if err := s.store.Save(r.Context(), sess); err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	d.sessions[key] = sess.ID()
	log.Info().Str("date", c.Date).Str("session", sess.ID()).Msg("daily round started")

	v := sess.View(now, width, height)
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(dailyNewRes{GameID: sess.ID(), Challenge: c, View: &v})
}

// record stores a won daily round. Called from the session's Finish hook.
func (d *dailyServer) record(own owner, c daily.Challenge, res game.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := d.store.InsertResult(ctx, daily.Result{
		UserID:    own.ID,
		Date:      c.Date,
		Dimension: res.Dimension,
		Mode:      string(res.Mode),
		Hints:     res.Hints,
		Mistakes:  res.Mistakes,
		ElapsedMs: res.Elapsed.Milliseconds(),
	})
	if err != nil {
		log.Warn().Err(err).Str("owner", own.ID).Msg("insert daily result")
	}
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = d.today().Date
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_date")
		return
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		log.Error().Err(err).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
