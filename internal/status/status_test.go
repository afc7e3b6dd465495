package status

import (
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish(Event{Kind: Started, ProfileID: "p1"})

	for _, ch := range []chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.Kind != Started || ev.ProfileID != "p1" {
				t.Errorf("unexpected event: %+v", ev)
			}
			if ev.Time.IsZero() {
				t.Error("expected Publish to stamp the event time")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()

	done := make(chan struct{})
	go func() {
		// More events than the subscriber buffer holds
		for i := 0; i < 200; i++ {
			bus.Publish(Event{Kind: StepExecuted, StepIndex: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	// The buffer should hold the earliest events; the rest were dropped
	ev := <-ch
	if ev.StepIndex != 0 {
		t.Errorf("expected first buffered event, got index %d", ev.StepIndex)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	if _, open := <-ch; open {
		t.Error("expected channel to be closed after Unsubscribe")
	}

	// Second call must be a no-op, not a double close
	bus.Unsubscribe(ch)
	bus.Publish(Event{Kind: Stopped})
}
