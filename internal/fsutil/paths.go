// Package fsutil contains small path helpers shared by the watch-set
// machinery.
package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Abs returns the cleaned absolute form of path. When the working directory
// cannot be resolved the cleaned input is returned unchanged.
func Abs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// Within reports whether child is parent itself or nested under parent,
// comparing whole path segments so /foo does not cover /foobar.
func Within(parent, child string) bool {
	parentPath := filepath.Clean(parent)
	childPath := filepath.Clean(child)
	rel, err := filepath.Rel(parentPath, childPath)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}

// SplitSegments breaks an absolute path into its separator-delimited
// segments. The leading empty segment of rooted paths is preserved so that
// joining the segments reproduces the original path.
func SplitSegments(path string) []string {
	return strings.Split(filepath.Clean(path), string(os.PathSeparator))
}

// JoinSegments is the inverse of SplitSegments.
func JoinSegments(segments []string) string {
	joined := strings.Join(segments, string(os.PathSeparator))
	if joined == "" {
		return string(os.PathSeparator)
	}
	return joined
}
