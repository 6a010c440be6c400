package event

import "time"

// Type identifies a reload lifecycle event.
type Type string

const (
	// TypeWatchAdded is published when a directory is registered with the
	// event source.
	TypeWatchAdded Type = "watch_added"
	// TypeWatchFailed is published when registration fails and the path is
	// marked unwatchable.
	TypeWatchFailed Type = "watch_failed"
	// TypeWatchRemoved is published when a stale registration is dropped.
	TypeWatchRemoved Type = "watch_removed"
	// TypeChangeDetected is published when a filesystem event passes the
	// change filter.
	TypeChangeDetected Type = "change_detected"
	// TypeReloadStarted is published immediately before the restart strategy
	// runs. It is usually the last event the current process emits.
	TypeReloadStarted Type = "reload_started"
)

// Event is one reload lifecycle notification.
type Event struct {
	Type      Type      `json:"type"`
	Path      string    `json:"path,omitempty"`
	Mode      string    `json:"mode,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
