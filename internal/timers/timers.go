// internal/timers/timers.go
//
// Virtual-clock timer scheduler.
//
// Time only moves when Advance(now) is called; due callbacks then run on the
// caller's goroutine in due order (ties broken by scheduling order). Nothing
// here starts goroutines or real timers, which keeps the game core
// single-threaded and deterministic under test.
//
// Every timer belongs to a Group. A round acquires one Group when it starts
// and releases it when it ends; Release removes all of the group's pending
// timers at once, so no callback from a finished round can fire later.

package timers

import "time"

// Token identifies a scheduled timer.
type Token uint64

type timer struct {
	id    Token
	due   time.Time
	every time.Duration // zero for one-shot timers
	fn    func()
	group *Group
}

// Scheduler owns every pending timer.
type Scheduler struct {
	now    time.Time
	seq    Token
	timers map[Token]*timer
}

// New returns a scheduler whose clock starts at start.
func New(start time.Time) *Scheduler {
	return &Scheduler{now: start, timers: make(map[Token]*timer)}
}

// Now is the scheduler's current virtual time.
func (s *Scheduler) Now() time.Time { return s.now }

// Pending counts live timers across all groups.
func (s *Scheduler) Pending() int { return len(s.timers) }

// NextDue returns the earliest pending due time.
func (s *Scheduler) NextDue() (time.Time, bool) {
	t := s.earliest()
	if t == nil {
		return time.Time{}, false
	}
	return t.due, true
}

// Advance moves the clock to now, firing every timer due at or before it.
// Callbacks may schedule or cancel timers; newly scheduled timers that fall
// due before now fire in the same call. Returns the number of callbacks run.
// A now earlier than the current clock is ignored.
func (s *Scheduler) Advance(now time.Time) int {
	if now.Before(s.now) {
		return 0
	}
	fired := 0
	for {
		t := s.earliest()
		if t == nil || t.due.After(now) {
			break
		}
		s.now = t.due
		if t.every > 0 {
			t.due = t.due.Add(t.every)
		} else {
			s.remove(t)
		}
		t.fn()
		fired++
	}
	s.now = now
	return fired
}

// NewGroup acquires an empty group.
func (s *Scheduler) NewGroup() *Group {
	return &Group{s: s, ids: make(map[Token]struct{})}
}

func (s *Scheduler) earliest() *timer {
	var best *timer
	for _, t := range s.timers {
		if best == nil || t.due.Before(best.due) || (t.due.Equal(best.due) && t.id < best.id) {
			best = t
		}
	}
	return best
}

func (s *Scheduler) add(g *Group, d, every time.Duration, fn func()) Token {
	s.seq++
	t := &timer{id: s.seq, due: s.now.Add(d), every: every, fn: fn, group: g}
	s.timers[t.id] = t
	g.ids[t.id] = struct{}{}
	return t.id
}

func (s *Scheduler) remove(t *timer) {
	delete(s.timers, t.id)
	delete(t.group.ids, t.id)
}

// Group is a set of timers released together.
type Group struct {
	s        *Scheduler
	ids      map[Token]struct{}
	released bool
}

// After schedules fn once, d from the scheduler's current time.
// Scheduling on a released group is a no-op and returns the zero Token.
func (g *Group) After(d time.Duration, fn func()) Token {
	if g.released {
		return 0
	}
	return g.s.add(g, d, 0, fn)
}

// Every schedules fn repeatedly, first after d.
func (g *Group) Every(d time.Duration, fn func()) Token {
	if g.released || d <= 0 {
		return 0
	}
	return g.s.add(g, d, d, fn)
}

// Cancel stops a single timer of this group. Unknown tokens are ignored.
func (g *Group) Cancel(tok Token) {
	if _, ok := g.ids[tok]; !ok {
		return
	}
	if t, ok := g.s.timers[tok]; ok {
		g.s.remove(t)
	}
}

// Live counts this group's pending timers.
func (g *Group) Live() int { return len(g.ids) }

// Released reports whether Release was called.
func (g *Group) Released() bool { return g.released }

// Release cancels every pending timer of the group and refuses new ones.
// Calling it more than once is safe.
func (g *Group) Release() {
	for id := range g.ids {
		if t, ok := g.s.timers[id]; ok {
			delete(g.s.timers, t.id)
		}
	}
	g.ids = make(map[Token]struct{})
	g.released = true
}
