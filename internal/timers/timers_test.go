package timers

import (
	"testing"
	"time"
)

func TestAfter_FiresInDueOrder(t *testing.T) {
	start := time.Now().UTC()
	s := New(start)
	g := s.NewGroup()
	var got []int
	g.After(300*time.Millisecond, func() { got = append(got, 3) })
	g.After(100*time.Millisecond, func() { got = append(got, 1) })
	g.After(200*time.Millisecond, func() { got = append(got, 2) })
	g.After(200*time.Millisecond, func() { got = append(got, 22) })

	if n := s.Advance(start.Add(50 * time.Millisecond)); n != 0 {
		t.Errorf("fired %d before anything was due", n)
	}
	if n := s.Advance(start.Add(250 * time.Millisecond)); n != 3 {
		t.Errorf("fired %d, want 3", n)
	}
	s.Advance(start.Add(time.Second))
	want := []int{1, 2, 22, 3}
	if len(got) != len(want) {
		t.Fatalf("order %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
	if s.Pending() != 0 || g.Live() != 0 {
		t.Errorf("pending %d live %d, want 0", s.Pending(), g.Live())
	}
}

func TestEvery_RepeatsUntilCancelled(t *testing.T) {
	start := time.Now().UTC()
	s := New(start)
	g := s.NewGroup()
	ticks := 0
	var tok Token
	tok = g.Every(time.Second, func() {
		ticks++
		if ticks == 3 {
			g.Cancel(tok)
		}
	})
	s.Advance(start.Add(10 * time.Second))
	if ticks != 3 {
		t.Errorf("ticks %d, want 3", ticks)
	}
	if g.Live() != 0 {
		t.Errorf("live %d, want 0", g.Live())
	}
}

func TestAdvance_CallbackSchedulesWithinWindow(t *testing.T) {
	start := time.Now().UTC()
	s := New(start)
	g := s.NewGroup()
	var at []time.Duration
	g.After(100*time.Millisecond, func() {
		at = append(at, s.Now().Sub(start))
		g.After(100*time.Millisecond, func() { at = append(at, s.Now().Sub(start)) })
	})
	s.Advance(start.Add(time.Second))
	if len(at) != 2 || at[0] != 100*time.Millisecond || at[1] != 200*time.Millisecond {
		t.Errorf("fire times %v, want [100ms 200ms]", at)
	}
	if s.Now() != start.Add(time.Second) {
		t.Errorf("clock %v, want start+1s", s.Now().Sub(start))
	}
}

func TestAdvance_IgnoresPast(t *testing.T) {
	start := time.Now().UTC()
	s := New(start)
	s.Advance(start.Add(time.Second))
	if n := s.Advance(start); n != 0 {
		t.Errorf("fired %d going backwards", n)
	}
	if s.Now() != start.Add(time.Second) {
		t.Error("clock moved backwards")
	}
}

func TestRelease_DropsOnlyItsGroup(t *testing.T) {
	start := time.Now().UTC()
	s := New(start)
	old := s.NewGroup()
	cur := s.NewGroup()
	oldFired, curFired := 0, 0
	old.After(time.Second, func() { oldFired++ })
	old.Every(time.Second, func() { oldFired++ })
	cur.After(time.Second, func() { curFired++ })

	old.Release()
	if old.Live() != 0 || !old.Released() {
		t.Errorf("old live %d released %v", old.Live(), old.Released())
	}
	if s.Pending() != 1 {
		t.Errorf("pending %d, want 1", s.Pending())
	}
	if tok := old.After(time.Millisecond, func() { oldFired++ }); tok != 0 {
		t.Error("released group accepted a timer")
	}
	s.Advance(start.Add(5 * time.Second))
	if oldFired != 0 {
		t.Errorf("released group fired %d times", oldFired)
	}
	if curFired != 1 {
		t.Errorf("current group fired %d, want 1", curFired)
	}
	old.Release()
}

func TestNextDue(t *testing.T) {
	start := time.Now().UTC()
	s := New(start)
	if _, ok := s.NextDue(); ok {
		t.Error("NextDue on empty scheduler")
	}
	g := s.NewGroup()
	g.After(2*time.Second, func() {})
	g.After(time.Second, func() {})
	next, ok := s.NextDue()
	if !ok || next != start.Add(time.Second) {
		t.Errorf("NextDue %v %v, want start+1s", next.Sub(start), ok)
	}
}
