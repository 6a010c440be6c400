package event

import (
	"testing"
	"time"
)

func TestBusDeliversToSubscriber(t *testing.T) {
	bus := NewBus[Event](BusOptions{})
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(Event{Type: TypeChangeDetected, Path: "/a/b.go", Timestamp: time.Now()})

	select {
	case ev := <-ch:
		if ev.Type != TypeChangeDetected || ev.Path != "/a/b.go" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusFilteredSubscription(t *testing.T) {
	bus := NewBus[Event](BusOptions{})
	defer bus.Close()

	ch, cancel := bus.SubscribeFiltered(func(ev Event) bool {
		return ev.Type == TypeReloadStarted
	})
	defer cancel()

	bus.Publish(Event{Type: TypeWatchAdded})
	bus.Publish(Event{Type: TypeReloadStarted, Mode: "exec"})

	select {
	case ev := <-ch:
		if ev.Type != TypeReloadStarted {
			t.Fatalf("filter let through %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for filtered event")
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected second event %+v", ev)
	default:
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus[Event](BusOptions{SubscriberBufferSize: 1})
	defer bus.Close()

	_, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(Event{Type: TypeWatchAdded})
	bus.Publish(Event{Type: TypeWatchAdded})

	published, dropped := bus.Stats()
	if published != 2 {
		t.Fatalf("expected 2 published, got %d", published)
	}
	if dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", dropped)
	}
}

func TestBusSubscribeAfterClose(t *testing.T) {
	bus := NewBus[Event](BusOptions{})
	bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel from closed bus")
	}
}

func TestBusCancelIsIdempotent(t *testing.T) {
	bus := NewBus[Event](BusOptions{})
	defer bus.Close()

	_, cancel := bus.Subscribe()
	cancel()
	cancel()
}
