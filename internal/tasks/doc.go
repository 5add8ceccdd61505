// Package tasks runs the upload queue: each accepted file is uploaded, its analysis is polled
// until the server reports a final status, and the outcome is kept in an in-memory queue.
//
// # Queue State
//
// [Queue] is an immutable snapshot. Every change is an [Event] applied by [Reduce], a pure
// function, so the rules for each item are testable without any I/O:
//
//	pending → uploading → analyzing → complete
//	              │            └────→ error
//	              └─────────────────→ error
//
// Events addressed to an id that is no longer queued, or that would take an item backwards,
// leave the queue unchanged.
//
// # Pipelines
//
// [Orchestrator.Enqueue] filters files by extension and (name, size), then starts one goroutine
// per item with its own cancel func. [Orchestrator.Remove] and [Orchestrator.Clear] cancel
// the affected pipelines before dropping the items.
//
// Polling uses a [rate.Limiter] with a burst of one: the first poll runs as soon as the upload
// returns and later polls run at a fixed interval. Poll transport errors are retried at the same
// interval until MaxPollFailures consecutive failures, after which the item ends in error.
//
// # Progress Reporting
//
// Every change is also published as a [ProgressUpdate] on an optional channel. Updates use
// select with default to prevent blocking.
//
// # Track Caching
//
// The optional [TrackCacher] and [UploadRecorder] interfaces persist completed tracks and
// finished uploads (repositories.TrackRepository and repositories.UploadRepository).
// Persistence errors are logged and otherwise ignored.
package tasks
