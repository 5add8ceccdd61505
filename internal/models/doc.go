// Package models defines the data types shared by the upload queue, the edit session and the HTTP client.
//
// The package contains two categories of types:
//
// 1. Server-owned records, decoded from the analysis API and never mutated in place:
//   - [Track] : canonical metadata for one uploaded file
//   - [Analysis] : confidence-scored features produced by the analyzer
//   - [Edits] : sparse user overrides persisted alongside a track
//
// 2. Client-only state:
//   - [FileHandle] : a file offered for upload ([LocalFile] on disk)
//   - [FileItem] : one queue entry tracking a file through upload and analysis
//
// [Track.Clone] returns a structural deep copy so an edit snapshot never aliases the cached record.
package models
