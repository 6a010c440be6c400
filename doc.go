// Package molt is a live-reload supervisor embedded in the process it
// protects: it watches the program's own source directories and restarts
// the process when one of them changes.
//
// A Reloader continuously derives the minimal set of directories worth
// watching from the host's source layout, keeps the filesystem
// notification backend's registrations converged on that set, filters the
// resulting events down to genuine source changes, and then restarts the
// process using one of three strategies: in-place image replacement
// ("exec"), detached successor ("spawn_exit"), or supervised successor
// ("spawn_wait").
//
// Typical use:
//
//	reloader, err := molt.New(molt.Config{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if _, err := reloader.StartWatcher(); err != nil {
//		log.Fatal(err)
//	}
//	// run the host program; on a source change the process restarts.
//
// File contents are never diffed and nothing is hot-patched: any write to a
// matching file under a watched directory unconditionally triggers a full
// process replacement or respawn.
package molt
