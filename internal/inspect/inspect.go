// Package inspect answers "which files make up the running program" for the
// watch-path computation.
//
// The reloader treats introspection as a pluggable collaborator: hosts with
// richer knowledge of their own layout (code generators, plugin loaders)
// supply their own Inspector.
package inspect

import (
	"os"
	"path/filepath"
	"sync"
)

// Snapshot is one observation of the host's source layout.
type Snapshot struct {
	// SearchPaths are directories the host resolves code from, analogous to
	// a module search path. Entries are used as directories, not files.
	SearchPaths []string

	// UnitFiles are absolute paths of individual source units known to be
	// loaded. Entries that are not absolute or no longer resolvable are
	// skipped by consumers.
	UnitFiles []string
}

// Inspector produces a fresh Snapshot each call. Implementations must be
// safe for concurrent use; the watcher thread calls Snapshot once per tick.
type Inspector interface {
	Snapshot() Snapshot
}

// InspectorFunc adapts a function to the Inspector interface.
type InspectorFunc func() Snapshot

func (f InspectorFunc) Snapshot() Snapshot {
	return f()
}

// ProcessInspector derives a Snapshot from the running process: the working
// directory, the executable's directory, and any source units registered by
// the host. It is the default Inspector.
type ProcessInspector struct {
	mu    sync.Mutex
	units []string
}

func NewProcessInspector(units ...string) *ProcessInspector {
	inspector := &ProcessInspector{}
	inspector.RegisterUnits(units...)
	return inspector
}

// RegisterUnits records additional source files to consider loaded. Relative
// paths are resolved against the current working directory at call time.
func (p *ProcessInspector) RegisterUnits(units ...string) {
	if p == nil || len(units) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, unit := range units {
		if unit == "" {
			continue
		}
		abs, err := filepath.Abs(unit)
		if err != nil {
			continue
		}
		p.units = append(p.units, abs)
	}
}

func (p *ProcessInspector) Snapshot() Snapshot {
	snap := Snapshot{}

	if wd, err := os.Getwd(); err == nil {
		snap.SearchPaths = append(snap.SearchPaths, wd)
	}
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		snap.SearchPaths = append(snap.SearchPaths, filepath.Dir(exe))
	}

	if p != nil {
		p.mu.Lock()
		snap.UnitFiles = append(snap.UnitFiles, p.units...)
		p.mu.Unlock()
	}

	return snap
}
