// internal/httpserver/server.go
//
// HTTP server wiring for the GO BACK! backend.
// Responsibilities:
//   - Router + middleware (request logging, JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/help".
//   - Game endpoints (optional auth): /game/new, /game/{id}/... (routes_game.go).
//   - Live event stream per session (routes_events.go).
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /rounds/mine.
//
// Notes:
//   - Sessions live in the in-memory store; finished rounds, options and
//     daily results go to SQLite on a best-effort basis.
//   - The stream route sits outside the request timeout.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/goback/assets"
	"github.com/robalobadob/goback/internal/auth"
	"github.com/robalobadob/goback/internal/game"
	"github.com/robalobadob/goback/internal/path"
	"github.com/robalobadob/goback/internal/prefs"
	"github.com/robalobadob/goback/internal/realtime"
	"github.com/robalobadob/goback/internal/store"
)

// Config holds the server settings read from the environment.
type Config struct {
	JWTSecret    string
	JWTTTL       time.Duration
	CookieName   string
	ClientOrigin string
	Production   bool
	DailySalt    string
	Defaults     game.Options
	BcryptCost   int           // 0 means bcrypt.DefaultCost
	SessionTTL   time.Duration // idle sessions are dropped after this
}

// ConfigFromEnv reads JWT_SECRET, JWT_EXPIRES_DAYS, COOKIE_NAME,
// CLIENT_ORIGIN, NODE_ENV and DAILY_SALT. Defaults are the game defaults.
func ConfigFromEnv() Config {
	days, err := strconv.Atoi(getEnv("JWT_EXPIRES_DAYS", "14"))
	if err != nil || days <= 0 {
		days = 14
	}
	return Config{
		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTTTL:       time.Duration(days) * 24 * time.Hour,
		CookieName:   getEnv("COOKIE_NAME", "goback_token"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:   os.Getenv("NODE_ENV") == "production",
		DailySalt:    getEnv("DAILY_SALT", "local_dev_salt"),
		Defaults:     game.DefaultOptions(),
		SessionTTL:   2 * time.Hour,
	}
}

// Server bundles router, session store, event hub and DB-backed stores.
type Server struct {
	r      *chi.Mux
	cfg    Config
	store  store.Store
	db     *sql.DB
	users  *auth.Users
	signer *auth.Signer
	prefs  *prefs.Store
	daily  *dailyServer
	hub    *realtime.Hub

	now     func() time.Time
	newRand func() path.Picker
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg Config, st store.Store, db *sql.DB) *Server {
	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = 14 * 24 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "goback_token"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	cfg.Defaults = cfg.Defaults.Clamp()

	s := &Server{
		r:      chi.NewRouter(),
		cfg:    cfg,
		store:  st,
		db:     db,
		users:  auth.NewUsers(db, cfg.BcryptCost),
		signer: auth.NewSigner(cfg.JWTSecret, cfg.JWTTTL),
		prefs:  prefs.NewStore(db),
		now:    func() time.Time { return time.Now().UTC() },
		newRand: func() path.Picker {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
	s.hub = realtime.NewHubWithClock(func() time.Time { return s.now() })

	// --- middleware ---
	s.r.Use(chimw.RequestID)           // add X-Request-ID
	s.r.Use(chimw.RealIP)              // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger(log.Logger)) // zerolog access log
	s.r.Use(chimw.Recoverer)           // recover from panics
	s.r.Use(jsonContentType)           // default JSON responses
	s.r.Use(s.corsFromConfig)          // credentials-friendly CORS

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"goback","endpoints":["/health","/help","POST /game/new","/game/{id}","/daily/*","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/help", s.handleHelp)

		// Game endpoints: OPTIONAL AUTH (guests can play)
		s.mountGame(r.With(s.withOptionalAuth()))

		// Daily Challenge: OPTIONAL AUTH (guests can play; results persisted on win)
		s.mountDaily(r.With(s.withOptionalAuth()))

		// Auth + profile/stats
		s.mountAuthRoutes(r)
	})

	// Long-lived; no timeout.
	s.r.With(s.withOptionalAuth()).Get("/game/{id}/events", s.withSession(s.stream))

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Start serves HTTP on addr and prunes idle sessions in the background.
func (s *Server) Start(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.janitor(ctx, time.Minute)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// janitor drops sessions idle for longer than SessionTTL.
func (s *Server) janitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.pruneSessions(ctx)
		}
	}
}

func (s *Server) pruneSessions(ctx context.Context) int {
	gone := s.store.Prune(ctx, s.now().Add(-s.cfg.SessionTTL))
	for _, id := range gone {
		s.hub.Remove(id)
	}
	if len(gone) > 0 {
		log.Info().Int("sessions", len(gone)).Msg("pruned idle sessions")
	}
	return len(gone)
}

// ------------------------------- help --------------------------------------

// handleHelp returns the help text. hideAfter defaults to the configured
// default option.
func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	o := s.cfg.Defaults
	if v, err := strconv.Atoi(r.URL.Query().Get("hideAfter")); err == nil {
		o.HideAfter = v
		o = o.Clamp()
	}
	lines, err := assets.HelpLines(o.HideAfter)
	if err != nil {
		log.Error().Err(err).Msg("help text")
		writeError(w, http.StatusInternalServerError, "help_unavailable")
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"title": "GO BACK!", "lines": lines})
}

// ------------------------------ small util ---------------------------------

// writeError writes {"error": code} with status.
func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
