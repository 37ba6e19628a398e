package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/goback/assets"
	"github.com/robalobadob/goback/internal/db"
	"github.com/robalobadob/goback/internal/game"
	"github.com/robalobadob/goback/internal/path"
	"github.com/robalobadob/goback/internal/store"
)

type firstPick struct{}

func (firstPick) IntN(int) int { return 0 }

// clock is a settable time source shared with stream goroutines.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	t     *testing.T
	srv   *Server
	clock *clock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sqlDB, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.Migrate(sqlDB, assets.Migrations()); err != nil {
		t.Fatal(err)
	}

	cfg := Config{
		JWTSecret:    "test-secret",
		CookieName:   "goback_token",
		ClientOrigin: "http://localhost:5173",
		DailySalt:    "test-salt",
		Defaults:     game.Options{GridDimension: 3, Mode: "orthogonal", HideAfter: 3, Sound: true},
		BcryptCost:   bcrypt.MinCost,
	}
	srv := New(cfg, store.NewMemoryStore(), sqlDB)
	c := &clock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	srv.now = c.now
	srv.newRand = func() path.Picker { return firstPick{} }
	return &testEnv{t: t, srv: srv, clock: c}
}

// client carries cookies between requests.
type client struct {
	env     *testEnv
	cookies map[string]*http.Cookie
}

func (e *testEnv) client() *client { return &client{env: e, cookies: map[string]*http.Cookie{}} }

func (c *client) do(method, target string, body any) *httptest.ResponseRecorder {
	c.env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.env.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.env.srv.Router().ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

// newPlayingGame creates a session straight on the play scene.
func (c *client) newPlayingGame() newGameRes {
	c.env.t.Helper()
	rec := c.do(http.MethodPost, "/game/new", map[string]any{"scene": "play"})
	if rec.Code != http.StatusCreated {
		c.env.t.Fatalf("new game: %d %s", rec.Code, rec.Body.String())
	}
	return decode[newGameRes](c.env.t, rec)
}

// hintUntilWon drains the path with hints and returns how many were used.
func (c *client) hintUntilWon(id string) int {
	c.env.t.Helper()
	n := 0
	for {
		rec := c.do(http.MethodPost, "/game/"+id+"/hint", nil)
		if rec.Code == http.StatusConflict {
			if code := errorCode(c.env.t, rec); code != "hint_unavailable" {
				c.env.t.Fatalf("hint: %s", code)
			}
			return n
		}
		if rec.Code != http.StatusOK {
			c.env.t.Fatalf("hint: %d %s", rec.Code, rec.Body.String())
		}
		n++
		if n > 100 {
			c.env.t.Fatal("hints never ran out")
		}
	}
}

func TestHealthAndNotFound(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()
	if rec := c.do(http.MethodGet, "/health", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Errorf("health: %d %s", rec.Code, rec.Body.String())
	}
	rec := c.do(http.MethodGet, "/nope", nil)
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "not_found" {
		t.Errorf("404: %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
		t.Errorf("content type %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	rec := env.client().do(http.MethodOptions, "/game/new", nil)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("preflight: %d %v", rec.Code, rec.Header())
	}
}

func TestHelp(t *testing.T) {
	env := newTestEnv(t)
	rec := env.client().do(http.MethodGet, "/help?hideAfter=5", nil)
	res := decode[struct {
		Lines []string `json:"lines"`
	}](t, rec)
	if !strings.Contains(strings.Join(res.Lines, " "), "After 5 seconds") {
		t.Errorf("help lines %v", res.Lines)
	}
}

func TestGuestPlaysRound(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()
	g := c.newPlayingGame()
	if c.cookies[anonCookieName] == nil {
		t.Fatal("no anonymous cookie")
	}
	if g.View.Scene != game.ScenePlay || g.View.Round.Dimension != 3 {
		t.Fatalf("view %+v", g.View)
	}

	// Selections are ignored until the path hides.
	rec := c.do(http.MethodPost, "/game/"+g.GameID+"/select", map[string]int{"cellId": 7})
	if res := decode[actionRes](t, rec); res.Reply.Outcome != "ignored" {
		t.Errorf("early select: %+v", res.Reply)
	}

	env.clock.advance(time.Minute)
	rec = c.do(http.MethodGet, "/game/"+g.GameID+"?w=800&h=600", nil)
	view := decode[actionRes](t, rec).View
	if view.Round.Countdown != game.GoBack {
		t.Fatalf("countdown %q", view.Round.Countdown)
	}

	// 3x3 first-pick path is [3 6 7]; go back from 7.
	rec = c.do(http.MethodPost, "/game/"+g.GameID+"/select", map[string]int{"cellId": 6})
	if res := decode[actionRes](t, rec); res.Reply.Outcome != "partial" {
		t.Errorf("select 6: %+v", res.Reply)
	}
	rec = c.do(http.MethodPost, "/game/"+g.GameID+"/click", map[string]float64{"x": 1, "y": 1, "width": 600, "height": 600})
	if res := decode[actionRes](t, rec); res.Reply.Outcome != "ignored" || res.Reply.CellID != nil {
		t.Errorf("click in margin: %+v", res.Reply)
	}
	for _, id := range []int{7, 6, 3} {
		rec := c.do(http.MethodPost, "/game/"+g.GameID+"/select", map[string]int{"cellId": id})
		if res := decode[actionRes](t, rec); res.Reply.Outcome != "advance" {
			t.Fatalf("select %d: %+v", id, res.Reply)
		}
	}

	var status string
	var anon string
	err := env.srv.db.QueryRow(`SELECT status, anonymous_id FROM rounds`).Scan(&status, &anon)
	if err != nil || status != statusWon || anon != c.cookies[anonCookieName].Value {
		t.Errorf("round row: %q %q %v", status, anon, err)
	}

	env.clock.advance(game.WinDelay)
	rec = c.do(http.MethodGet, "/game/"+g.GameID, nil)
	if v := decode[actionRes](t, rec).View; v.Round.Dimension != 4 || v.Options.GridDimension != 4 {
		t.Errorf("after win: %+v", v.Round)
	}
}

func TestSessionBelongsToOwner(t *testing.T) {
	env := newTestEnv(t)
	g := env.client().newPlayingGame()

	stranger := env.client()
	if rec := stranger.do(http.MethodGet, "/game/"+g.GameID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("stranger view: %d", rec.Code)
	}
	if rec := stranger.do(http.MethodPost, "/game/"+g.GameID+"/hint", nil); rec.Code != http.StatusNotFound {
		t.Errorf("stranger hint: %d", rec.Code)
	}
}

func TestDispatchErrors(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()
	rec := c.do(http.MethodPost, "/game/new", nil)
	g := decode[newGameRes](t, rec)
	if g.View.Scene != game.SceneStart {
		t.Fatalf("scene %s", g.View.Scene)
	}

	cases := []struct {
		path   string
		body   any
		status int
		code   string
	}{
		{"/hint", nil, http.StatusConflict, "unsupported_event"},
		{"/scene", map[string]string{"scene": "credits"}, http.StatusBadRequest, "unknown_scene"},
		{"/options", map[string]string{"action": "explode"}, http.StatusBadRequest, "unknown_action"},
		{"/options", map[string]string{"action": "gridUp"}, http.StatusConflict, "unsupported_event"},
		{"/select", map[string]string{}, http.StatusBadRequest, "bad_json"},
	}
	for _, tc := range cases {
		rec := c.do(http.MethodPost, "/game/"+g.GameID+tc.path, tc.body)
		if rec.Code != tc.status || errorCode(t, rec) != tc.code {
			t.Errorf("%s: %d, want %d %s", tc.path, rec.Code, tc.status, tc.code)
		}
	}

	c.do(http.MethodPost, "/game/"+g.GameID+"/scene", map[string]string{"scene": "play"})
	rec = c.do(http.MethodPost, "/game/"+g.GameID+"/hint", nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "not_recalling" {
		t.Errorf("hint during reveal: %d", rec.Code)
	}
}

func TestOptionsPersistPerOwner(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()
	g := decode[newGameRes](t, c.do(http.MethodPost, "/game/new", map[string]string{"scene": "options"}))

	for _, action := range []string{"gridUp", "gridUp", "toggleCrazy", "hideAfterDown", "toggleSound"} {
		rec := c.do(http.MethodPost, "/game/"+g.GameID+"/options", map[string]string{"action": action})
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: %d %s", action, rec.Code, rec.Body.String())
		}
	}

	want := game.Options{GridDimension: 5, Mode: "crazy", HideAfter: 2, Sound: false}
	g2 := decode[newGameRes](t, c.do(http.MethodPost, "/game/new", nil))
	if g2.View.Options != want {
		t.Errorf("new session options %+v, want %+v", g2.View.Options, want)
	}

	other := env.client()
	g3 := decode[newGameRes](t, other.do(http.MethodPost, "/game/new", nil))
	if g3.View.Options == want {
		t.Error("options leaked to another owner")
	}
}

type statsRes struct {
	RoundsPlayed  int `json:"roundsPlayed"`
	RoundsWon     int `json:"roundsWon"`
	Streak        int `json:"streak"`
	BestDimension int `json:"bestDimension"`
}

func TestAccountsAndStats(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	if rec := c.do(http.MethodGet, "/stats/me", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("stats as guest: %d", rec.Code)
	}

	// A guest round, claimed on signup.
	g := c.newPlayingGame()
	env.clock.advance(time.Minute)
	c.hintUntilWon(g.GameID)

	rec := c.do(http.MethodPost, "/auth/signup", map[string]string{"username": "dora", "password": "password1"})
	if rec.Code != http.StatusCreated || c.cookies["goback_token"] == nil {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}
	if rec := c.do(http.MethodPost, "/auth/signup", map[string]string{"username": "DORA", "password": "password1"}); rec.Code != http.StatusConflict {
		t.Errorf("duplicate signup: %d", rec.Code)
	}

	me := decode[authUser](t, c.do(http.MethodGet, "/auth/me", nil))
	if me.Username != "dora" {
		t.Errorf("me %+v", me)
	}
	rounds := decode[[]roundRow](t, c.do(http.MethodGet, "/rounds/mine", nil))
	if len(rounds) != 1 || rounds[0].Status != statusWon || rounds[0].Hints != 3 {
		t.Errorf("claimed rounds %+v", rounds)
	}

	// A signed-in win counts towards stats.
	g = c.newPlayingGame()
	env.clock.advance(time.Minute)
	c.hintUntilWon(g.GameID)

	stats := decode[statsRes](t, c.do(http.MethodGet, "/stats/me", nil))
	if stats.RoundsPlayed != 1 || stats.RoundsWon != 1 || stats.Streak != 1 || stats.BestDimension != 3 {
		t.Errorf("stats %+v", stats)
	}

	// Leaving play after the path hid loses the round and resets the streak.
	env.clock.advance(game.WinDelay + time.Minute)
	c.do(http.MethodPost, "/game/"+g.GameID+"/scene", map[string]string{"scene": "start"})
	stats = decode[statsRes](t, c.do(http.MethodGet, "/stats/me", nil))
	if stats.RoundsPlayed != 2 || stats.Streak != 0 {
		t.Errorf("stats after loss %+v", stats)
	}

	c.do(http.MethodPost, "/auth/logout", nil)
	if rec := c.do(http.MethodGet, "/auth/me", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout: %d", rec.Code)
	}

	rec = c.do(http.MethodPost, "/auth/login", map[string]string{"username": "dora", "password": "wrong-pass"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login: %d", rec.Code)
	}
	rec = c.do(http.MethodPost, "/auth/login", map[string]string{"username": "dora", "password": "password1"})
	if rec.Code != http.StatusOK || c.cookies["goback_token"] == nil {
		t.Errorf("login: %d", rec.Code)
	}
}

func TestDailyChallenge(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()

	rec := c.do(http.MethodPost, "/daily/new", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("daily new: %d %s", rec.Code, rec.Body.String())
	}
	first := decode[dailyNewRes](t, rec)
	if first.GameID == "" || first.Challenge.Date != "2026-06-01" || first.View.Scene != game.ScenePlay {
		t.Fatalf("daily %+v", first)
	}
	if first.View.Round.Dimension != first.Challenge.Dimension {
		t.Errorf("round dimension %d, challenge %d", first.View.Round.Dimension, first.Challenge.Dimension)
	}

	again := decode[dailyNewRes](t, c.do(http.MethodPost, "/daily/new", nil))
	if again.GameID != first.GameID {
		t.Errorf("session not reused: %s vs %s", again.GameID, first.GameID)
	}
	if rec := c.do(http.MethodPost, "/game/"+first.GameID+"/scene", map[string]string{"scene": "start"}); rec.Code != http.StatusConflict {
		t.Errorf("navigating a daily session: %d", rec.Code)
	}

	env.clock.advance(time.Minute)
	hints := c.hintUntilWon(first.GameID)

	done := decode[dailyNewRes](t, c.do(http.MethodPost, "/daily/new", nil))
	if !done.Played || done.GameID != "" {
		t.Errorf("after win: %+v", done)
	}

	lb := decode[lbRes](t, c.do(http.MethodGet, "/daily/leaderboard", nil))
	if lb.Date != "2026-06-01" || len(lb.Top) != 1 || lb.Top[0].Hints != hints {
		t.Errorf("leaderboard %+v", lb)
	}
	if rec := c.do(http.MethodGet, "/daily/leaderboard?date=yesterday", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: %d", rec.Code)
	}

	// Another player gets the same round.
	other := decode[dailyNewRes](t, env.client().do(http.MethodPost, "/daily/new", nil))
	if other.Challenge != first.Challenge {
		t.Errorf("challenge differs between players")
	}
}

func TestPruneSessions(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()
	g := c.newPlayingGame()

	env.clock.advance(3 * time.Hour)
	if n := env.srv.pruneSessions(context.Background()); n != 1 {
		t.Errorf("pruned %d", n)
	}
	if rec := c.do(http.MethodGet, "/game/"+g.GameID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("pruned session still served: %d", rec.Code)
	}
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t)
	c := env.client()
	g := c.newPlayingGame()

	ts := httptest.NewServer(env.srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/game/"+g.GameID+"/events", nil)
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}

	events := make(chan string, 64)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 1<<20), 1<<20)
		for sc.Scan() {
			if name, ok := strings.CutPrefix(sc.Text(), "event: "); ok {
				events <- name
			}
		}
		close(events)
	}()

	waitFor := func(want string) {
		t.Helper()
		timeout := time.After(5 * time.Second)
		for {
			select {
			case name, ok := <-events:
				if !ok {
					t.Fatalf("stream closed waiting for %s", want)
				}
				if name == want {
					return
				}
			case <-timeout:
				t.Fatalf("no %s event", want)
			}
		}
	}
	waitFor("state")

	env.clock.advance(time.Minute)
	c.do(http.MethodPost, "/game/"+g.GameID+"/select", map[string]int{"cellId": 7})
	waitFor("cue")
}
