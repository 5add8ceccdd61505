// Package repositories implements SQLite persistence for the local track cache and upload history.
//
// Key Implementations:
//   - [TrackRepository] : Cached server tracks stored as JSON payloads with soft deletes
//   - [UploadRepository] : History of finished queue items, ordered by sequence
//   - [TrackCacheAdapter] : Adapts both to the cacher interfaces used by the queue and the editor
//
// Sequence numbers provide stable, human-readable ordering (e.g., upload #15) independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
