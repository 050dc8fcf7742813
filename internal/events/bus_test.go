package events

import (
	"context"
	"testing"
	"time"
)

func TestBusPublishesToSubscriber(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := bus.Subscribe(ctx)
	defer cleanup()

	bus.Publish(ApplicationCreated)

	select {
	case received := <-stream:
		if received != ApplicationCreated {
			t.Fatalf("expected %s, got %s", ApplicationCreated, received)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event within deadline")
	}
}

func TestBusFiltersByName(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := bus.Subscribe(ctx, PracticeDeleted)
	defer cleanup()

	bus.Publish(MessageSent)

	select {
	case name := <-stream:
		t.Fatalf("did not expect event %s for filtered subscriber", name)
	case <-time.After(200 * time.Millisecond):
	}

	bus.Publish(PracticeDeleted)

	select {
	case name := <-stream:
		if name != PracticeDeleted {
			t.Fatalf("expected %s, got %s", PracticeDeleted, name)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected matching event within deadline")
	}
}

func TestBusDropsWhenSubscriberBufferFull(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := bus.Subscribe(ctx)
	defer cleanup()

	for i := 0; i < 64; i++ {
		bus.Publish(DataUpdated)
	}

	received := 0
	for {
		select {
		case <-stream:
			received++
		default:
			if received == 0 {
				t.Fatal("expected at least one buffered event")
			}
			if received > 16 {
				t.Fatalf("expected drops beyond buffer size, received %d", received)
			}
			return
		}
	}
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := bus.Subscribe(ctx)
	cleanup()

	bus.Publish(UserDeleted)

	select {
	case name := <-stream:
		t.Fatalf("did not expect event %s after unsubscribe", name)
	case <-time.After(200 * time.Millisecond):
	}
}
