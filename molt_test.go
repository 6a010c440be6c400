package molt

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"molt/internal/fsevents"
	"molt/internal/process"
	"molt/internal/restart"
)

// recordingPlatform captures restart side effects instead of touching the
// real process.
type recordingPlatform struct {
	mu       sync.Mutex
	replaced []string
}

func (p *recordingPlatform) platform() restart.Platform {
	return restart.Platform{
		Invocation: func() process.Invocation {
			return process.Invocation{Bin: "/bin/app", Args: []string{"app"}}
		},
		Replace: func(inv process.Invocation) error {
			p.mu.Lock()
			p.replaced = append(p.replaced, inv.Bin)
			p.mu.Unlock()
			return nil
		},
		SpawnDetached: func(process.Invocation) (int, error) { return 1, nil },
		SpawnWait:     func(process.Invocation) (int, error) { return 0, nil },
		SpawnWaitPTY:  func(process.Invocation) (int, error) { return 0, nil },
		InterruptSelf: func() error { return nil },
		Exit:          func(int) {},
	}
}

func (p *recordingPlatform) replaceCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.replaced)
}

type failingSource struct{}

func (failingSource) Start() error { return errors.New("backend unavailable") }
func (failingSource) Close() error { return nil }
func (failingSource) Schedule(string, bool) (fsevents.Handle, error) {
	return nil, errors.New("not started")
}

func TestNewRejectsInvalidMode(t *testing.T) {
	if _, err := New(Config{Mode: "hot_patch"}); err == nil {
		t.Fatal("expected error for invalid mode")
	}
}

func TestNewRejectsInvalidLogLevel(t *testing.T) {
	if _, err := New(Config{LogLevel: "loud"}); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestNewAcceptsZeroConfig(t *testing.T) {
	reloader, err := New(Config{}, WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if reloader.config.PollInterval != DefaultPollInterval {
		t.Fatalf("poll interval default not applied: %v", reloader.config.PollInterval)
	}
}

func TestStartWatcherSurfacesSourceStartFailure(t *testing.T) {
	reloader, err := New(Config{}, WithEventSource(failingSource{}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := reloader.StartWatcher(); err == nil {
		t.Fatal("expected event source start failure to propagate")
	}
}

func TestReloaderTriggersOnSourceChange(t *testing.T) {
	dir := t.TempDir()
	platform := &recordingPlatform{}

	reloader, err := New(
		Config{
			Mode:         "exec",
			PollInterval: 50 * time.Millisecond,
			Debounce:     10 * time.Millisecond,
		},
		WithInspector(InspectorFunc(func() Snapshot {
			return Snapshot{SearchPaths: []string{dir}}
		})),
		WithLogOutput(io.Discard),
		withPlatform(platform.platform()),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	events, cancel := reloader.Events()
	defer cancel()

	watch, err := reloader.StartWatcher()
	if err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer watch.Stop()

	if err := os.WriteFile(filepath.Join(dir, "unit.go"), []byte("package unit"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	deadline := time.After(3 * time.Second)
	sawChange := false
	for !sawChange {
		select {
		case ev := <-events:
			if ev.Type == EventChangeDetected {
				sawChange = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for change_detected event")
		}
	}

	waitUntil := time.Now().Add(2 * time.Second)
	for platform.replaceCount() == 0 {
		if time.Now().After(waitUntil) {
			t.Fatal("reload never executed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReloaderIgnoresNonSourceChange(t *testing.T) {
	dir := t.TempDir()
	platform := &recordingPlatform{}

	reloader, err := New(
		Config{Mode: "exec", PollInterval: 50 * time.Millisecond, Debounce: 10 * time.Millisecond},
		WithInspector(InspectorFunc(func() Snapshot {
			return Snapshot{SearchPaths: []string{dir}}
		})),
		WithLogOutput(io.Discard),
		withPlatform(platform.platform()),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	watch, err := reloader.StartWatcher()
	if err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer watch.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	time.Sleep(500 * time.Millisecond)
	if platform.replaceCount() != 0 {
		t.Fatal("non-source change must not trigger a reload")
	}
}

func TestReloaderExtraPathTriggersRegardlessOfSuffix(t *testing.T) {
	dir := t.TempDir()
	extra := filepath.Join(dir, "config.ini")
	if err := os.WriteFile(extra, []byte("k=v"), 0o600); err != nil {
		t.Fatalf("seed extra path: %v", err)
	}
	platform := &recordingPlatform{}

	reloader, err := New(
		Config{
			Mode:         "exec",
			ExtraPaths:   []string{extra},
			PollInterval: 50 * time.Millisecond,
			Debounce:     10 * time.Millisecond,
		},
		WithInspector(InspectorFunc(func() Snapshot { return Snapshot{} })),
		WithLogOutput(io.Discard),
		withPlatform(platform.platform()),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	watch, err := reloader.StartWatcher()
	if err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer watch.Stop()

	if err := os.WriteFile(extra, []byte("k=v2"), 0o600); err != nil {
		t.Fatalf("rewrite extra path: %v", err)
	}

	waitUntil := time.Now().Add(3 * time.Second)
	for platform.replaceCount() == 0 {
		if time.Now().After(waitUntil) {
			t.Fatal("extra-path change never triggered a reload")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchStopIsIdempotent(t *testing.T) {
	reloader, err := New(Config{PollInterval: 20 * time.Millisecond},
		WithInspector(InspectorFunc(func() Snapshot { return Snapshot{} })),
		WithLogOutput(io.Discard),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	watch, err := reloader.StartWatcher()
	if err != nil {
		t.Fatalf("start watcher: %v", err)
	}

	watch.Stop()
	watch.Stop()

	select {
	case <-watch.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher loop did not exit")
	}
}

func TestStartWatcherIsOnce(t *testing.T) {
	reloader, err := New(Config{PollInterval: 20 * time.Millisecond},
		WithInspector(InspectorFunc(func() Snapshot { return Snapshot{} })),
		WithLogOutput(io.Discard),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	first, err := reloader.StartWatcher()
	if err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer first.Stop()

	second, err := reloader.StartWatcher()
	if err != nil {
		t.Fatalf("second start watcher: %v", err)
	}
	if first != second {
		t.Fatal("expected the same watch handle from repeated starts")
	}
}
