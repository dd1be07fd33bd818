package events

import (
	"context"
	"testing"
	"time"
)

func TestKindString(t *testing.T) {
	if DayChanged.String() != "day_changed" {
		t.Errorf("unexpected string for DayChanged: %s", DayChanged.String())
	}
	if SessionChanged.String() != "session_changed" {
		t.Errorf("unexpected string for SessionChanged: %s", SessionChanged.String())
	}
}

func TestListenWithNilRedisReturnsImmediately(t *testing.T) {
	s := NewSource(nil)
	done := make(chan struct{})
	go func() {
		s.Listen(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen did not return immediately with a nil redis client")
	}
}

func TestDeliverDropsWhenChannelFull(t *testing.T) {
	s := &Source{events: make(chan Kind, 1)}
	s.deliver(DayChanged)
	s.deliver(SessionChanged) // channel full, should be dropped not block

	select {
	case k := <-s.Events():
		if k != DayChanged {
			t.Errorf("expected first delivered event to survive, got %v", k)
		}
	default:
		t.Fatal("expected one event to have been delivered")
	}
}
