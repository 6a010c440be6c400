// Package trigger decides, per filesystem event, whether a reload is due.
package trigger

import (
	"path/filepath"
	"strings"

	"molt/internal/fsutil"
	"molt/internal/logging"
	"molt/internal/watchsync"
)

// Filter classifies raw change events. It only reads the published watch
// set, so it is safe to call concurrently with reconciliation passes.
type Filter struct {
	extraPaths map[string]struct{}

	// suffixes are the source-unit suffixes that qualify a file for reload.
	suffixes []string

	// artifacts maps a compiled-artifact suffix to its source suffix, so an
	// on-disk artifact and its source file count as the same logical unit.
	artifacts map[string]string

	current func() *watchsync.Set
	logger  *logging.Logger
}

type Options struct {
	ExtraPaths []string
	Suffixes   []string
	Artifacts  map[string]string
	Current    func() *watchsync.Set
	Logger     *logging.Logger
}

func New(options Options) *Filter {
	extras := make(map[string]struct{}, len(options.ExtraPaths))
	for _, path := range options.ExtraPaths {
		if path == "" {
			continue
		}
		extras[fsutil.Abs(path)] = struct{}{}
	}

	suffixes := options.Suffixes
	if len(suffixes) == 0 {
		suffixes = []string{".go"}
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(logging.LevelInfo, nil)
	}

	return &Filter{
		extraPaths: extras,
		suffixes:   suffixes,
		artifacts:  options.Artifacts,
		current:    options.Current,
		logger:     logger,
	}
}

// ShouldReload reports whether the changed path warrants a restart.
//
// An exact extra-path match triggers unconditionally, with no suffix check.
// Any other path must resolve to a source-unit suffix (after artifact
// normalization) and sit inside the current watch set. Everything else is
// ignored; most events are unrelated noise.
func (f *Filter) ShouldReload(path string) bool {
	if _, ok := f.extraPaths[path]; ok {
		return true
	}

	normalized := f.normalizeArtifact(path)
	if !f.hasSourceSuffix(normalized) {
		return false
	}

	set := f.currentSet()
	if !set.Covers(filepath.Dir(normalized)) {
		f.logger.Debug("change outside watch set", map[string]string{"path": path})
		return false
	}
	return true
}

func (f *Filter) normalizeArtifact(path string) string {
	for artifact, source := range f.artifacts {
		if strings.HasSuffix(path, artifact) {
			return strings.TrimSuffix(path, artifact) + source
		}
	}
	return path
}

func (f *Filter) hasSourceSuffix(path string) bool {
	for _, suffix := range f.suffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func (f *Filter) currentSet() *watchsync.Set {
	if f.current == nil {
		return nil
	}
	return f.current()
}
