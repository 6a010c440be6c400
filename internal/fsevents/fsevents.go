package fsevents

import (
	"errors"
	"sync"
	"time"

	"molt/internal/logging"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultDebounce    = 100 * time.Millisecond
	defaultMaxWatches  = 4096
	maxRestartAttempts = 3
	restartBaseDelay   = 200 * time.Millisecond
)

var (
	ErrMaxWatchesExceeded = errors.New("max watches exceeded")
	ErrNotStarted         = errors.New("event source not started")
	ErrClosed             = errors.New("event source closed")
)

// Event is a single filesystem change delivered to the handler.
type Event struct {
	Path      string
	Op        fsnotify.Op
	Timestamp time.Time
}

// Handler receives change events. It is invoked from the source's dispatch
// goroutine.
type Handler func(Event)

// Handle releases one scheduled registration.
type Handle interface {
	Close() error
}

// Source is the event-source capability consumed by the synchronizer.
type Source interface {
	// Start initializes the notification backend. A failure here is fatal
	// to watch setup and must be surfaced to the caller.
	Start() error
	// Schedule registers path for change notification. With recursive set,
	// descendants created before and during the registration are covered.
	Schedule(path string, recursive bool) (Handle, error)
	// Close releases the backend and all registrations.
	Close() error
}

// Options controls the fsnotify-backed source.
type Options struct {
	Logger     *logging.Logger
	Debounce   time.Duration
	MaxWatches int
}

// Notify is the fsnotify implementation of Source.
type Notify struct {
	handler Handler
	logger  *logging.Logger

	mutex         sync.Mutex
	backend       *fsnotify.Watcher
	roots         map[string]*rootEntry
	watched       map[string]int
	activeWatches int
	maxWatches    int
	debouncer     *debouncer
	started       bool
	closed        bool

	events chan fsnotify.Event
	errors chan error
	done   chan struct{}

	restartMutex    sync.Mutex
	restartTimer    *time.Timer
	restartAttempts int
}

type rootEntry struct {
	path      string
	recursive bool
	dirs      []string
}

// NewNotify creates a source that delivers events to handler. The backend is
// not initialized until Start.
func NewNotify(handler Handler, options Options) *Notify {
	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(logging.LevelInfo, nil)
	}
	debounce := options.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	maxWatches := options.MaxWatches
	if maxWatches <= 0 {
		maxWatches = defaultMaxWatches
	}

	return &Notify{
		handler:    handler,
		logger:     logger,
		roots:      make(map[string]*rootEntry),
		watched:    make(map[string]int),
		maxWatches: maxWatches,
		debouncer:  newDebouncer(debounce),
		events:     make(chan fsnotify.Event, 64),
		errors:     make(chan error, 4),
		done:       make(chan struct{}),
	}
}

// Start creates the fsnotify backend and begins dispatching events.
func (n *Notify) Start() error {
	n.mutex.Lock()
	if n.closed {
		n.mutex.Unlock()
		return ErrClosed
	}
	if n.started {
		n.mutex.Unlock()
		return nil
	}

	backend, err := fsnotify.NewWatcher()
	if err != nil {
		n.mutex.Unlock()
		return err
	}
	n.backend = backend
	n.started = true
	n.mutex.Unlock()

	n.startForwarder(backend)
	go n.run()
	return nil
}

// Close shuts the source down. Safe to call more than once.
func (n *Notify) Close() error {
	n.mutex.Lock()
	if n.closed {
		n.mutex.Unlock()
		return nil
	}
	n.closed = true
	backend := n.backend
	n.backend = nil
	if n.debouncer != nil {
		n.debouncer.stop()
		n.debouncer = nil
	}
	started := n.started
	n.mutex.Unlock()

	n.restartMutex.Lock()
	if n.restartTimer != nil {
		n.restartTimer.Stop()
		n.restartTimer = nil
	}
	n.restartMutex.Unlock()

	if started {
		close(n.done)
	}
	if backend == nil {
		return nil
	}
	return backend.Close()
}

func (n *Notify) run() {
	for {
		select {
		case event := <-n.events:
			n.handleEvent(event)
		case err := <-n.errors:
			n.handleError(err)
		case <-n.done:
			return
		}
	}
}

// startForwarder pumps a backend's channels into the source's own. The
// indirection survives backend replacement during error recovery.
func (n *Notify) startForwarder(backend *fsnotify.Watcher) {
	go func() {
		events := backend.Events
		errors := backend.Errors
		for events != nil || errors != nil {
			select {
			case event, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				select {
				case n.events <- event:
				case <-n.done:
					return
				}
			case err, ok := <-errors:
				if !ok {
					errors = nil
					continue
				}
				select {
				case n.errors <- err:
				case <-n.done:
					return
				}
			case <-n.done:
				return
			}
		}
	}()
}
