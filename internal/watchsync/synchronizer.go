// Package watchsync keeps the event source's registrations converged on the
// desired watch set.
//
// A Synchronizer owns the watcher loop: each tick it recomputes the desired
// set from a fresh introspection snapshot, registers what is missing,
// unregisters what is stale, and publishes the new set as an immutable
// snapshot for the change filter. A directory that fails to register is
// marked unwatchable and not retried for the life of the process, matching
// the behavior this supervisor replaces.
package watchsync

import (
	"sync"
	"sync/atomic"
	"time"

	"molt/internal/event"
	"molt/internal/fsevents"
	"molt/internal/inspect"
	"molt/internal/logging"
	"molt/internal/pathset"
)

const DefaultInterval = time.Second

type Options struct {
	Source     fsevents.Source
	Inspector  inspect.Inspector
	ExtraPaths []string
	Interval   time.Duration
	Logger     *logging.Logger
	Bus        *event.Bus[event.Event]
}

type Synchronizer struct {
	source     fsevents.Source
	inspector  inspect.Inspector
	extraPaths []string
	interval   time.Duration
	logger     *logging.Logger
	bus        *event.Bus[event.Event]

	// registrations maps a directory to its live handle. A nil value marks
	// a failed registration attempt; such paths are never retried.
	registrations map[string]fsevents.Handle

	current atomic.Pointer[Set]

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func New(options Options) *Synchronizer {
	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(logging.LevelInfo, nil)
	}
	interval := options.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Synchronizer{
		source:        options.Source,
		inspector:     options.Inspector,
		extraPaths:    options.ExtraPaths,
		interval:      interval,
		logger:        logger,
		bus:           options.Bus,
		registrations: make(map[string]fsevents.Handle),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	s.current.Store(NewSet(nil))
	return s
}

// Current returns the most recently published watch set. Never nil.
func (s *Synchronizer) Current() *Set {
	return s.current.Load()
}

// Run loops until Stop is called: one reconciliation pass, then a sleep of
// the configured interval. The stop flag is honored once per iteration; an
// in-flight pass always completes first.
func (s *Synchronizer) Run() {
	defer close(s.done)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		s.Sync()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.interval)

		select {
		case <-s.stop:
			return
		case <-timer.C:
		}
	}
}

// Stop requests loop termination. It does not wait; use Done for that.
func (s *Synchronizer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Done is closed once Run has returned.
func (s *Synchronizer) Done() <-chan struct{} {
	return s.done
}

// Sync performs a single reconciliation pass. Exposed so the watcher can do
// a deterministic first pass before the host continues, and for tests.
//
// The registration table is owned by the watcher goroutine: Sync and
// Registered must only be called from it, or before Run starts / after Done
// is closed.
func (s *Synchronizer) Sync() {
	desired := pathset.Compute(s.inspector.Snapshot(), s.extraPaths)

	desiredSet := make(map[string]struct{}, len(desired))
	for _, dir := range desired {
		desiredSet[dir] = struct{}{}
		if _, known := s.registrations[dir]; known {
			continue
		}
		handle, err := s.source.Schedule(dir, true)
		if err != nil {
			// Unwatchable: recorded so the failure is not retried, and
			// never fatal to the loop.
			s.registrations[dir] = nil
			s.logger.Warn("watch registration failed", map[string]string{
				"path":  dir,
				"error": err.Error(),
			})
			s.publish(event.Event{Type: event.TypeWatchFailed, Path: dir, Error: err.Error()})
			continue
		}
		s.registrations[dir] = handle
		s.logger.Debug("watch registered", map[string]string{"path": dir})
		s.publish(event.Event{Type: event.TypeWatchAdded, Path: dir})
	}

	for dir, handle := range s.registrations {
		if _, wanted := desiredSet[dir]; wanted {
			continue
		}
		delete(s.registrations, dir)
		if handle != nil {
			if err := handle.Close(); err != nil {
				s.logger.Debug("watch unregister failed", map[string]string{
					"path":  dir,
					"error": err.Error(),
				})
			}
		}
		s.logger.Debug("watch unregistered", map[string]string{"path": dir})
		s.publish(event.Event{Type: event.TypeWatchRemoved, Path: dir})
	}

	// Publish after reconciling: readers see either the previous complete
	// snapshot or this one, never a partial update.
	s.current.Store(NewSet(desired))
}

// Registered returns the registration table's key set, including paths held
// by the unwatchable sentinel.
func (s *Synchronizer) Registered() []string {
	out := make([]string, 0, len(s.registrations))
	for dir := range s.registrations {
		out = append(out, dir)
	}
	return out
}

func (s *Synchronizer) publish(ev event.Event) {
	if s.bus == nil {
		return
	}
	ev.Timestamp = time.Now().UTC()
	s.bus.Publish(ev)
}
