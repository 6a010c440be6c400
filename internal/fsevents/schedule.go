package fsevents

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
)

type scheduleHandle struct {
	source *Notify
	path   string
	once   sync.Once
}

func (h *scheduleHandle) Close() error {
	if h == nil || h.source == nil {
		return nil
	}
	var err error
	h.once.Do(func() {
		err = h.source.unschedule(h.path)
	})
	return err
}

// Schedule registers path with the backend. When recursive, every existing
// descendant directory is registered as well, and directories created later
// under path are picked up as their create events arrive.
func (n *Notify) Schedule(path string, recursive bool) (Handle, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}

	n.mutex.Lock()
	if n.closed {
		n.mutex.Unlock()
		return nil, ErrClosed
	}
	if !n.started {
		n.mutex.Unlock()
		return nil, ErrNotStarted
	}
	if _, exists := n.roots[path]; exists {
		n.mutex.Unlock()
		return nil, errors.New("path already scheduled")
	}
	n.mutex.Unlock()

	dirs := []string{path}
	if recursive {
		descendants, err := collectDescendantDirs(path)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, descendants...)
	}

	added := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if err := n.addWatch(dir); err != nil {
			// Descendant failures are tolerated so one unreadable
			// subdirectory does not make the whole root unwatchable.
			if dir != path {
				n.logger.Warn("descendant watch failed", map[string]string{
					"path":  dir,
					"error": err.Error(),
				})
				continue
			}
			n.removeWatches(added)
			return nil, err
		}
		added = append(added, dir)
	}

	n.mutex.Lock()
	if n.closed {
		n.mutex.Unlock()
		n.removeWatches(added)
		return nil, ErrClosed
	}
	n.roots[path] = &rootEntry{path: path, recursive: recursive, dirs: added}
	n.mutex.Unlock()

	n.logger.Debug("scheduled", map[string]string{"path": path})
	return &scheduleHandle{source: n, path: path}, nil
}

func (n *Notify) unschedule(path string) error {
	n.mutex.Lock()
	entry, ok := n.roots[path]
	if ok {
		delete(n.roots, path)
	}
	n.mutex.Unlock()

	if !ok {
		return nil
	}
	n.removeWatches(entry.dirs)
	n.logger.Debug("unscheduled", map[string]string{"path": path})
	return nil
}

func collectDescendantDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !entry.IsDir() || path == root {
			return nil
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

func (n *Notify) addWatch(dir string) error {
	n.mutex.Lock()
	if n.closed {
		n.mutex.Unlock()
		return ErrClosed
	}
	if count := n.watched[dir]; count > 0 {
		n.watched[dir] = count + 1
		n.mutex.Unlock()
		return nil
	}
	if n.activeWatches >= n.maxWatches {
		n.mutex.Unlock()
		return ErrMaxWatchesExceeded
	}
	n.watched[dir] = 1
	n.activeWatches++
	backend := n.backend
	n.mutex.Unlock()

	if backend == nil {
		n.dropWatch(dir)
		return ErrNotStarted
	}
	if err := backend.Add(dir); err != nil {
		n.dropWatch(dir)
		return err
	}
	return nil
}

func (n *Notify) removeWatches(dirs []string) {
	for _, dir := range dirs {
		n.removeWatch(dir)
	}
}

func (n *Notify) removeWatch(dir string) {
	n.mutex.Lock()
	count := n.watched[dir]
	if count > 1 {
		n.watched[dir] = count - 1
		n.mutex.Unlock()
		return
	}
	if count == 0 {
		n.mutex.Unlock()
		return
	}
	delete(n.watched, dir)
	if n.activeWatches > 0 {
		n.activeWatches--
	}
	backend := n.backend
	n.mutex.Unlock()

	if backend != nil {
		if err := backend.Remove(dir); err != nil {
			n.logger.Debug("watch remove failed", map[string]string{
				"path":  dir,
				"error": err.Error(),
			})
		}
	}
}

func (n *Notify) dropWatch(dir string) {
	n.mutex.Lock()
	count := n.watched[dir]
	if count > 1 {
		n.watched[dir] = count - 1
		n.mutex.Unlock()
		return
	}
	if count == 1 {
		delete(n.watched, dir)
		if n.activeWatches > 0 {
			n.activeWatches--
		}
	}
	n.mutex.Unlock()
}

// watchedDirs returns a snapshot of every directory currently registered,
// used when rebuilding the backend after an error.
func (n *Notify) watchedDirs() []string {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	dirs := make([]string, 0, len(n.watched))
	for dir := range n.watched {
		dirs = append(dirs, dir)
	}
	return dirs
}
