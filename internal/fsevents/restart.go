package fsevents

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

// Backend errors are recovered by rebuilding the fsnotify watcher and
// re-adding every registered directory, with capped exponential backoff.

func (n *Notify) handleError(err error) {
	if err == nil {
		return
	}
	n.logger.Warn("event source error", map[string]string{
		"error": err.Error(),
	})
	n.scheduleRestart(err)
}

func restartDelay(attempt int) time.Duration {
	return restartBaseDelay * time.Duration(1<<attempt)
}

func (n *Notify) scheduleRestart(err error) {
	n.restartMutex.Lock()
	defer n.restartMutex.Unlock()

	if n.restartTimer != nil {
		return
	}
	if n.restartAttempts >= maxRestartAttempts {
		n.logger.Error("event source restart attempts exhausted", map[string]string{
			"error": err.Error(),
		})
		return
	}
	delay := restartDelay(n.restartAttempts)
	n.restartAttempts++
	n.restartTimer = time.AfterFunc(delay, n.performRestart)
}

func (n *Notify) performRestart() {
	restartErr := n.restart()

	n.restartMutex.Lock()
	n.restartTimer = nil
	if restartErr == nil {
		n.restartAttempts = 0
		n.restartMutex.Unlock()
		return
	}
	n.restartMutex.Unlock()

	n.logger.Warn("event source restart failed", map[string]string{
		"error": restartErr.Error(),
	})
	n.scheduleRestart(restartErr)
}

func (n *Notify) restart() error {
	n.mutex.Lock()
	if n.closed {
		n.mutex.Unlock()
		return nil
	}
	n.mutex.Unlock()

	replacement, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	for _, dir := range n.watchedDirs() {
		if err := replacement.Add(dir); err != nil {
			n.logger.Warn("watch re-add failed", map[string]string{
				"path":  dir,
				"error": err.Error(),
			})
		}
	}

	n.mutex.Lock()
	if n.closed {
		n.mutex.Unlock()
		_ = replacement.Close()
		return nil
	}
	previous := n.backend
	n.backend = replacement
	n.mutex.Unlock()

	n.startForwarder(replacement)
	if previous != nil {
		_ = previous.Close()
	}
	return nil
}
