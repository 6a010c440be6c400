package fsevents

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestSource(t *testing.T) (*Notify, chan Event) {
	t.Helper()
	events := make(chan Event, 16)
	source := NewNotify(func(event Event) {
		select {
		case events <- event:
		default:
		}
	}, Options{Debounce: 10 * time.Millisecond})
	if err := source.Start(); err != nil {
		t.Fatalf("start source: %v", err)
	}
	t.Cleanup(func() {
		_ = source.Close()
	})
	return source, events
}

func waitForEvent(events <-chan Event) (Event, bool) {
	select {
	case event := <-events:
		return event, true
	case <-time.After(2 * time.Second):
		return Event{}, false
	}
}

func TestNotifyDeliversWriteEvent(t *testing.T) {
	source, events := newTestSource(t)

	dir := t.TempDir()
	handle, err := source.Schedule(dir, true)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	defer handle.Close()

	path := filepath.Join(dir, "unit.go")
	if err := os.WriteFile(path, []byte("package unit"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	event, ok := waitForEvent(events)
	if !ok {
		t.Fatal("timed out waiting for write event")
	}
	if event.Path != path {
		t.Fatalf("expected path %q, got %q", path, event.Path)
	}
}

func TestNotifyRecursiveCoversExistingSubdir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	source, events := newTestSource(t)
	handle, err := source.Schedule(dir, true)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	defer handle.Close()

	path := filepath.Join(sub, "deep.go")
	if err := os.WriteFile(path, []byte("package deep"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	event, ok := waitForEvent(events)
	if !ok {
		t.Fatal("timed out waiting for nested event")
	}
	if event.Path != path {
		t.Fatalf("expected path %q, got %q", path, event.Path)
	}
}

func TestNotifyScheduleBeforeStart(t *testing.T) {
	source := NewNotify(nil, Options{})
	if _, err := source.Schedule(t.TempDir(), true); err != ErrNotStarted {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestNotifyScheduleMissingDirectory(t *testing.T) {
	source, _ := newTestSource(t)

	missing := filepath.Join(t.TempDir(), "gone")
	if _, err := source.Schedule(missing, true); err == nil {
		t.Fatal("expected error scheduling a missing directory")
	}
}

func TestNotifyScheduleDuplicate(t *testing.T) {
	source, _ := newTestSource(t)

	dir := t.TempDir()
	handle, err := source.Schedule(dir, true)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	defer handle.Close()

	if _, err := source.Schedule(dir, true); err == nil {
		t.Fatal("expected error scheduling the same path twice")
	}
}

func TestNotifyUnscheduleStopsDelivery(t *testing.T) {
	source, events := newTestSource(t)

	dir := t.TempDir()
	handle, err := source.Schedule(dir, true)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("unschedule: %v", err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("second unschedule should be a no-op, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "late.go"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	select {
	case event := <-events:
		t.Fatalf("unexpected event after unschedule: %+v", event)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNotifyMaxWatches(t *testing.T) {
	events := make(chan Event, 1)
	source := NewNotify(func(event Event) { events <- event }, Options{MaxWatches: 1})
	if err := source.Start(); err != nil {
		t.Fatalf("start source: %v", err)
	}
	defer source.Close()

	first := t.TempDir()
	if _, err := source.Schedule(first, false); err != nil {
		t.Fatalf("schedule first: %v", err)
	}
	if _, err := source.Schedule(t.TempDir(), false); err != ErrMaxWatchesExceeded {
		t.Fatalf("expected ErrMaxWatchesExceeded, got %v", err)
	}
}

func TestNotifyCloseIsIdempotent(t *testing.T) {
	source := NewNotify(nil, Options{})
	if err := source.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := source.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := source.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
