package realtime

import (
	"testing"
)

func TestBroadcaster_PublishDeliversToSubscribers(t *testing.T) {
	b := NewBroadcaster()
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Unsubscribe(ch1)
	defer b.Unsubscribe(ch2)

	b.Publish(Event{Name: "cue", Data: "advance"})
	for i, ch := range []chan Event{ch1, ch2} {
		if got := <-ch; got.Name != "cue" || got.Data != "advance" {
			t.Errorf("ch%d got %+v", i+1, got)
		}
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Error("channel should be closed after Unsubscribe")
	}
	b.Unsubscribe(ch) // second call is a no-op
	if b.Subscribers() != 0 {
		t.Errorf("subscribers %d", b.Subscribers())
	}
}

func TestBroadcaster_DropsForLaggingSubscriber(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)
	for i := 0; i < cap(ch)+5; i++ {
		b.Publish(Event{Name: "state"})
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered %d, want %d", len(ch), cap(ch))
	}
}
