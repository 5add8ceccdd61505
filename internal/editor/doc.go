// Package editor reconciles user edits with server-computed track metadata.
//
// # Effective Values
//
// A track's displayed values are resolved by precedence:
//   - scalars (bpm, key): edits → final_* → analysis → zero value
//   - lists (genres, moods): edits when non-empty → suggested_*
//
// [Effective] and [EffectiveList] implement the rule; every other accessor in this package is
// built on them, including [Summary].
//
// # Sessions
//
// A [Session] caches the track list and holds one editable snapshot, a deep copy of the
// selected track. [Patch] values change exactly one override field on the snapshot.
// [Session.Save] sends only the edits overlay and adopts the server's response; a failed
// save keeps the snapshot and its dirty flag so no work is lost.
package editor
