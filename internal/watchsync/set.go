package watchsync

import "molt/internal/fsutil"

// Set is an immutable snapshot of the published watch set. Readers obtain a
// Set from Synchronizer.Current and may query it freely while the next
// reconciliation pass builds its replacement.
type Set struct {
	dirs []string
}

func NewSet(dirs []string) *Set {
	copied := make([]string, len(dirs))
	copy(copied, dirs)
	return &Set{dirs: copied}
}

// Covers reports whether dir is a member of the set or nested under one.
func (s *Set) Covers(dir string) bool {
	if s == nil {
		return false
	}
	for _, member := range s.dirs {
		if fsutil.Within(member, dir) {
			return true
		}
	}
	return false
}

// Paths returns the member directories.
func (s *Set) Paths() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.dirs))
	copy(out, s.dirs)
	return out
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.dirs)
}
