// internal/httpserver/routes_events.go
//
// GET /game/{id}/events: server-sent events for one session.
//
// While a stream is open the session clock runs in real time (realtime.Hub
// loop), so reveal steps, countdown ticks and the hide happen without any
// client requests. Each notification is forwarded as-is, followed by a
// "state" event carrying the full view for the stream's canvas size.

package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/goback/internal/game"
)

const keepAliveEvery = 25 * time.Second

func (s *Server) stream(w http.ResponseWriter, r *http.Request, sess *game.Session) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	width, height := canvasFromQuery(r)

	id := sess.ID()
	hub := s.hub.Broadcaster(id)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	s.hub.Attach(id, func(time.Time) (time.Time, bool) {
		return sess.Tick(s.now())
	})
	defer s.hub.Detach(id)

	sendState := func() {
		b, err := json.Marshal(sess.View(s.now(), width, height))
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("encode view")
			return
		}
		writeSSE(w, "state", string(b))
		flusher.Flush()
	}
	sendState()

	keepAlive := time.NewTicker(keepAliveEvery)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-sub:
			if !open {
				return // session removed
			}
			if ev.Name != "state" {
				writeSSE(w, ev.Name, ev.Data)
			}
			sendState()
		case <-keepAlive.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		}
	}
}

// writeSSE writes one event; multi-line data becomes several data lines.
func writeSSE(w http.ResponseWriter, event string, data string) {
	_, _ = w.Write([]byte("event: " + event + "\n"))
	for _, line := range strings.Split(data, "\n") {
		_, _ = w.Write([]byte("data: " + line + "\n"))
	}
	_, _ = w.Write([]byte("\n"))
}
