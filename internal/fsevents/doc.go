// Package fsevents is the filesystem notification collaborator.
//
// Source is the capability the synchronizer programs against: start the
// backend, schedule recursive directory registrations, and deliver change
// callbacks. Notify is the fsnotify-backed implementation. Callbacks run on
// the source's own dispatch goroutine; callers must treat delivery as
// best-effort and coalesced.
package fsevents
