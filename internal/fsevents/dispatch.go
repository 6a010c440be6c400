package fsevents

import (
	"os"
	"path/filepath"
	"time"

	"molt/internal/fsutil"

	"github.com/fsnotify/fsnotify"
)

type debounceEntry struct {
	timer *time.Timer
	event Event
}

// debouncer coalesces bursts of events for the same path. Editors and build
// tools commonly emit several writes per save; only the last one matters.
type debouncer struct {
	duration time.Duration
	entries  map[string]debounceEntry
}

func newDebouncer(duration time.Duration) *debouncer {
	return &debouncer{
		duration: duration,
		entries:  make(map[string]debounceEntry),
	}
}

func (d *debouncer) schedule(path string, event Event, flush func(string)) {
	if d == nil {
		return
	}
	entry := d.entries[path]
	entry.event = event
	if entry.timer == nil {
		entry.timer = time.AfterFunc(d.duration, func() {
			flush(path)
		})
	} else {
		entry.timer.Reset(d.duration)
	}
	d.entries[path] = entry
}

func (d *debouncer) pop(path string) (Event, bool) {
	if d == nil {
		return Event{}, false
	}
	entry, ok := d.entries[path]
	if !ok {
		return Event{}, false
	}
	delete(d.entries, path)
	return entry.event, true
}

func (d *debouncer) stop() {
	if d == nil {
		return
	}
	for _, entry := range d.entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
	d.entries = nil
}

func (n *Notify) handleEvent(raw fsnotify.Event) {
	if raw.Op.Has(fsnotify.Create) {
		n.maybeWatchNewDir(raw.Name)
	}

	entry := Event{
		Path:      raw.Name,
		Op:        raw.Op,
		Timestamp: time.Now().UTC(),
	}

	n.mutex.Lock()
	if n.closed || n.debouncer == nil {
		n.mutex.Unlock()
		return
	}
	n.debouncer.schedule(raw.Name, entry, n.flush)
	n.mutex.Unlock()
}

func (n *Notify) flush(path string) {
	n.mutex.Lock()
	if n.closed || n.debouncer == nil {
		n.mutex.Unlock()
		return
	}
	event, ok := n.debouncer.pop(path)
	handler := n.handler
	n.mutex.Unlock()

	if !ok || handler == nil {
		return
	}
	handler(event)
}

// maybeWatchNewDir extends recursive registrations to directories created
// after Schedule ran. Files created inside the new directory before the
// watch lands can be missed; the next write to them is caught.
func (n *Notify) maybeWatchNewDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	parent := filepath.Dir(path)

	n.mutex.Lock()
	var owner *rootEntry
	for _, entry := range n.roots {
		if entry.recursive && fsutil.Within(entry.path, parent) {
			owner = entry
			break
		}
	}
	n.mutex.Unlock()

	if owner == nil {
		return
	}
	if err := n.addWatch(path); err != nil {
		n.logger.Debug("new directory watch failed", map[string]string{
			"path":  path,
			"error": err.Error(),
		})
		return
	}

	n.mutex.Lock()
	if current, ok := n.roots[owner.path]; ok {
		current.dirs = append(current.dirs, path)
		n.mutex.Unlock()
		return
	}
	n.mutex.Unlock()
	// Root was unscheduled while we were adding; undo.
	n.removeWatch(path)
}
