// internal/realtime/hub.go
//
// Per-session broadcasters plus the clock loops that drive session timers in
// real time while someone is listening.
//
// A session's timers only move when its clock is ticked. HTTP requests tick it
// on the way in; an attached event stream also runs a loop that sleeps until
// the next due timer, ticks, and goes back to sleep. Wake interrupts the
// sleep after a request scheduled something new.

package realtime

import (
	"sync"
	"time"
)

// TickFunc advances a session to now and returns when it next needs a tick.
type TickFunc func(now time.Time) (next time.Time, ok bool)

type loop struct {
	refs int
	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// Hub owns one Broadcaster and at most one clock loop per session id.
type Hub struct {
	mu    sync.Mutex
	hubs  map[string]*Broadcaster
	loops map[string]*loop
	now   func() time.Time
}

// NewHub creates an empty hub on the wall clock.
func NewHub() *Hub {
	return NewHubWithClock(func() time.Time { return time.Now().UTC() })
}

// NewHubWithClock creates an empty hub whose loops read time from now. It
// should be the same source the tick functions use.
func NewHubWithClock(now func() time.Time) *Hub {
	return &Hub{
		hubs:  make(map[string]*Broadcaster),
		loops: make(map[string]*loop),
		now:   now,
	}
}

// Broadcaster returns the session's broadcaster, creating it on first use.
func (h *Hub) Broadcaster(id string) *Broadcaster {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.hubs[id]
	if !ok {
		b = NewBroadcaster()
		h.hubs[id] = b
	}
	return b
}

// Publish sends ev to the session's subscribers.
func (h *Hub) Publish(id string, ev Event) {
	h.mu.Lock()
	b := h.hubs[id]
	h.mu.Unlock()
	if b != nil {
		b.Publish(ev)
	}
}

// Attach starts the session's clock loop, or joins the running one.
// Every Attach must be paired with a Detach.
func (h *Hub) Attach(id string, tick TickFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.loops[id]; ok {
		l.refs++
		return
	}
	l := &loop{
		refs: 1,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	h.loops[id] = l
	go h.run(l, tick)
}

// Detach releases one Attach; the loop stops with the last one.
func (h *Hub) Detach(id string) {
	h.mu.Lock()
	l, ok := h.loops[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	l.refs--
	if l.refs > 0 {
		h.mu.Unlock()
		return
	}
	delete(h.loops, id)
	h.mu.Unlock()
	close(l.stop)
	<-l.done
}

// Wake makes the session's loop re-read its next due time.
func (h *Hub) Wake(id string) {
	h.mu.Lock()
	l, ok := h.loops[id]
	h.mu.Unlock()
	if !ok {
		return
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Running reports whether a loop is active for id.
func (h *Hub) Running(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.loops[id]
	return ok
}

// Remove stops the session's loop and drops its broadcaster, closing every
// subscriber channel.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	l := h.loops[id]
	delete(h.loops, id)
	b := h.hubs[id]
	delete(h.hubs, id)
	h.mu.Unlock()

	if l != nil {
		close(l.stop)
		<-l.done
	}
	if b != nil {
		b.mu.Lock()
		for ch := range b.subs {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
}

func (h *Hub) run(l *loop, tick TickFunc) {
	defer close(l.done)
	for {
		next, ok := tick(h.now())

		var t *time.Timer
		var fire <-chan time.Time
		if ok {
			t = time.NewTimer(max(next.Sub(h.now()), 0))
			fire = t.C
		}
		select {
		case <-l.stop:
			if t != nil {
				t.Stop()
			}
			return
		case <-l.wake:
		case <-fire:
		}
		if t != nil {
			t.Stop()
		}
	}
}
